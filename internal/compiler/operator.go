package compiler

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
)

// operators is the single operator policy: every token the compiler
// accepts and the comparison it maps to. Arity lives on the comparison.
var operators = map[string]queryir.Comparison{
	"eq":      queryir.Equals,
	"neq":     queryir.NotEquals,
	"gt":      queryir.GreaterThan,
	"lt":      queryir.LessThan,
	"gte":     queryir.GreaterOrEqual,
	"lte":     queryir.LessOrEqual,
	"like":    queryir.Like,
	"between": queryir.Between,
	"in":      queryir.In,
	"nin":     queryir.NotIn,
}

// Operators returns the accepted tokens in sorted order.
func Operators() []string {
	tokens := make([]string, 0, len(operators))
	for token := range operators {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Arity returns the operand bounds of token. hi is queryir.Unbounded for
// list operators. ok is false for unknown tokens.
func Arity(token string) (lo, hi int, ok bool) {
	cmp, ok := operators[token]
	if !ok {
		return 0, 0, false
	}
	lo, hi = cmp.Arity()
	return lo, hi, true
}

// MapOperator translates an operator token into a comparison, checking the
// operand count. It is pure.
func MapOperator(token string, values []ir.IRValue) (queryir.Comparison, error) {
	cmp, ok := operators[token]
	if !ok {
		return "", &FilterError{
			Code:     ErrCodeUnsupportedOperator,
			Message:  fmt.Sprintf("unsupported operator %q", token),
			Operator: token,
		}
	}

	if !cmp.Accepts(len(values)) {
		lo, hi := cmp.Arity()
		return "", &FilterError{
			Code:     ErrCodeValueArity,
			Message:  fmt.Sprintf("%s expects %s value(s), got %d", token, arityText(lo, hi), len(values)),
			Operator: token,
			Details: map[string]string{
				"expected": arityText(lo, hi),
				"actual":   strconv.Itoa(len(values)),
			},
		}
	}

	return cmp, nil
}

func arityText(lo, hi int) string {
	switch {
	case hi == queryir.Unbounded:
		return fmt.Sprintf("at least %d", lo)
	case lo == hi:
		return fmt.Sprintf("exactly %d", lo)
	default:
		return fmt.Sprintf("%d to %d", lo, hi)
	}
}
