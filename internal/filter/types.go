package filter

import "github.com/roach88/quri/internal/ir"

// Expression is a node of the filter tree: a connector, nested groups and
// leaf operations, each in source order.
type Expression interface {
	Connector() ir.Connector
	NestedExpressions() []Expression
	Operations() []Operation
}

// Operation is a single field/operator/values comparison.
type Operation interface {
	FieldName() string
	Operator() string
	Values() []ir.IRValue
	FirstValue() ir.IRValue
}

// Expr is the concrete Expression.
type Expr struct {
	Conn   ir.Connector
	Ops    []Op
	Nested []Expr
}

// Op is the concrete Operation.
type Op struct {
	Field string
	Token string
	Vals  []ir.IRValue
}

// And builds an AND group from operations and nested groups.
func And(ops []Op, nested ...Expr) Expr {
	return Expr{Conn: ir.ConnectorAnd, Ops: ops, Nested: nested}
}

// Or builds an OR group from operations and nested groups.
func Or(ops []Op, nested ...Expr) Expr {
	return Expr{Conn: ir.ConnectorOr, Ops: ops, Nested: nested}
}

// NewOp builds an operation.
func NewOp(field, token string, vals ...ir.IRValue) Op {
	return Op{Field: field, Token: token, Vals: vals}
}

// Ops is shorthand for a list of operations.
func Ops(ops ...Op) []Op {
	return ops
}

// Connector implements Expression. An unset connector means AND.
func (e Expr) Connector() ir.Connector {
	if e.Conn == "" {
		return ir.ConnectorAnd
	}
	return e.Conn
}

// NestedExpressions implements Expression.
func (e Expr) NestedExpressions() []Expression {
	out := make([]Expression, len(e.Nested))
	for i := range e.Nested {
		out[i] = e.Nested[i]
	}
	return out
}

// Operations implements Expression.
func (e Expr) Operations() []Operation {
	out := make([]Operation, len(e.Ops))
	for i := range e.Ops {
		out[i] = e.Ops[i]
	}
	return out
}

// FieldName implements Operation.
func (o Op) FieldName() string { return o.Field }

// Operator implements Operation.
func (o Op) Operator() string { return o.Token }

// Values implements Operation. The returned slice is a copy.
func (o Op) Values() []ir.IRValue {
	out := make([]ir.IRValue, len(o.Vals))
	copy(out, o.Vals)
	return out
}

// FirstValue implements Operation. Returns IRNull when there are no values.
func (o Op) FirstValue() ir.IRValue {
	if len(o.Vals) == 0 {
		return ir.IRNull{}
	}
	return o.Vals[0]
}

// Walk visits every operation depth-first: nested groups before the node's own
// operations, left to right. depth is 1 for the root's operations.
func Walk(e Expression, fn func(op Operation, depth int) error) error {
	return walk(e, 1, fn)
}

func walk(e Expression, depth int, fn func(Operation, int) error) error {
	for _, child := range e.NestedExpressions() {
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	for _, op := range e.Operations() {
		if err := fn(op, depth); err != nil {
			return err
		}
	}
	return nil
}
