package filter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quri/internal/ir"
)

// exprDoc is the on-disk shape of an expression group.
type exprDoc struct {
	Connector   string    `yaml:"connector"`
	Operations  []opDoc   `yaml:"operations"`
	Expressions []exprDoc `yaml:"expressions"`
}

// opDoc is the on-disk shape of an operation. Either value or values may be
// given; value is shorthand for a one-element list. Value is held by value
// so an explicit null is still seen as present.
type opDoc struct {
	Field  string      `yaml:"field"`
	Op     string      `yaml:"op"`
	Value  yaml.Node   `yaml:"value"`
	Values []yaml.Node `yaml:"values"`
}

var (
	exprKeys = []string{"connector", "operations", "expressions"}
	opKeys   = []string{"field", "op", "value", "values"}
)

// UnmarshalYAML decodes an expression group from YAML (or JSON, which YAML
// accepts). Scalars keep their YAML type: quoted numbers stay strings.
// Unknown keys anywhere in the tree are rejected: a misspelled key must not
// silently widen the filter.
func (e *Expr) UnmarshalYAML(node *yaml.Node) error {
	if err := checkExprKeys(node, "$"); err != nil {
		return err
	}
	var doc exprDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	expr, err := doc.toExpr("$")
	if err != nil {
		return err
	}
	*e = expr
	return nil
}

func (d exprDoc) toExpr(path string) (Expr, error) {
	expr := Expr{Conn: ir.ConnectorAnd}
	if d.Connector != "" {
		conn, err := ir.ParseConnector(d.Connector)
		if err != nil {
			return Expr{}, fmt.Errorf("%s.connector: %w", path, err)
		}
		expr.Conn = conn
	}

	for i, od := range d.Operations {
		op, err := od.toOp(fmt.Sprintf("%s.operations[%d]", path, i))
		if err != nil {
			return Expr{}, err
		}
		expr.Ops = append(expr.Ops, op)
	}

	for i, nd := range d.Expressions {
		child, err := nd.toExpr(fmt.Sprintf("%s.expressions[%d]", path, i))
		if err != nil {
			return Expr{}, err
		}
		expr.Nested = append(expr.Nested, child)
	}

	return expr, nil
}

func (d opDoc) toOp(path string) (Op, error) {
	if d.Field == "" {
		return Op{}, fmt.Errorf("%s: field is required", path)
	}
	if d.Op == "" {
		return Op{}, fmt.Errorf("%s: op is required", path)
	}
	hasValue := d.Value.Kind != 0
	if hasValue && len(d.Values) > 0 {
		return Op{}, fmt.Errorf("%s: use either value or values, not both", path)
	}

	nodes := d.Values
	if hasValue {
		nodes = []yaml.Node{d.Value}
	}

	op := Op{Field: d.Field, Token: d.Op, Vals: make([]ir.IRValue, 0, len(nodes))}
	for i := range nodes {
		v, err := scalarValue(&nodes[i])
		if err != nil {
			return Op{}, fmt.Errorf("%s.values[%d]: %w", path, i, err)
		}
		op.Vals = append(op.Vals, v)
	}
	return op, nil
}

// checkExprKeys walks an expression mapping and its children, rejecting
// keys the decoder would otherwise drop.
func checkExprKeys(n *yaml.Node, path string) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: line %d: expression must be a mapping", path, n.Line)
	}
	if err := checkKeys(n, path, exprKeys); err != nil {
		return err
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		if val.Kind != yaml.SequenceNode {
			continue
		}
		for j, item := range val.Content {
			at := fmt.Sprintf("%s.%s[%d]", path, key, j)
			switch key {
			case "operations":
				if item.Kind != yaml.MappingNode {
					return fmt.Errorf("%s: line %d: operation must be a mapping", at, item.Line)
				}
				if err := checkKeys(item, at, opKeys); err != nil {
					return err
				}
			case "expressions":
				if err := checkExprKeys(item, at); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkKeys(n *yaml.Node, path string, allowed []string) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if !slices.Contains(allowed, k.Value) {
			return fmt.Errorf("%s: line %d: unknown key %q (allowed: %s)", path, k.Line, k.Value, strings.Join(allowed, ", "))
		}
	}
	return nil
}

// scalarValue converts a YAML scalar node into a literal using its resolved tag.
func scalarValue(n *yaml.Node) (ir.IRValue, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: values must be scalars", n.Line)
	}
	switch n.ShortTag() {
	case "!!null":
		return ir.IRNull{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return ir.IRBool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return ir.IRInt(i), nil
	case "!!str":
		return ir.IRString(n.Value), nil
	case "!!float":
		return nil, fmt.Errorf("line %d: floats are forbidden in filter literals: %s (quote decimals as strings)", n.Line, n.Value)
	default:
		return nil, fmt.Errorf("line %d: unsupported literal tag %s", n.Line, n.ShortTag())
	}
}

// Decode reads one expression tree from r.
func Decode(r io.Reader) (Expr, error) {
	var e Expr
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&e); err != nil {
		if err == io.EOF {
			return Expr{}, fmt.Errorf("empty filter document")
		}
		return Expr{}, fmt.Errorf("decode filter: %w", err)
	}
	return e, nil
}

// DecodeString decodes an inline YAML or JSON filter.
func DecodeString(s string) (Expr, error) {
	return Decode(bytes.NewBufferString(s))
}

// LoadFile decodes the filter stored at path.
func LoadFile(path string) (Expr, error) {
	f, err := os.Open(path)
	if err != nil {
		return Expr{}, fmt.Errorf("open filter: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
