package schema

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/roach88/quri/internal/ir"
)

// checkEnv declares the single variable a field rule can see.
var checkEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("value", cel.DynType))
})

// checkRule is a compiled field rule. cel.Program is safe for concurrent use.
type checkRule struct {
	src string
	prg cel.Program
}

func compileCheck(src string) (*checkRule, error) {
	env, err := checkEnv()
	if err != nil {
		return nil, fmt.Errorf("cel environment: %w", err)
	}
	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("check %q: %w", src, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("check %q: %w", src, err)
	}
	return &checkRule{src: src, prg: prg}, nil
}

func (r *checkRule) eval(v ir.IRValue) error {
	var native any
	switch x := v.(type) {
	case ir.IRInt:
		native = int64(x)
	case ir.IRString:
		native = string(x)
	case ir.IRBool:
		native = bool(x)
	default:
		return fmt.Errorf("check %q: unsupported operand %s", r.src, ir.Literal(v))
	}

	out, _, err := r.prg.Eval(map[string]any{"value": native})
	if err != nil {
		return fmt.Errorf("check %q: %w", r.src, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return fmt.Errorf("check %q did not produce a bool", r.src)
	}
	if !ok {
		return fmt.Errorf("value %s fails check %q", ir.Literal(v), r.src)
	}
	return nil
}
