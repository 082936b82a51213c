package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/quri/internal/ir"
)

// Node is one item of a constraint tree: a Constraint or a *Group.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	queryNode()
}

// Comparison is the backend-neutral comparison descriptor.
type Comparison string

const (
	Equals         Comparison = "="
	NotEquals      Comparison = "!="
	GreaterThan    Comparison = ">"
	LessThan       Comparison = "<"
	GreaterOrEqual Comparison = ">="
	LessOrEqual    Comparison = "<="
	Like           Comparison = "LIKE"
	Between        Comparison = "BETWEEN"
	In             Comparison = "IN"
	NotIn          Comparison = "NOT IN"
)

// Unbounded is the max arity of list comparisons.
const Unbounded = -1

// Arity returns how many operands the comparison takes. hi is Unbounded
// for list comparisons. Unknown comparisons report (0, 0).
func (c Comparison) Arity() (lo, hi int) {
	switch c {
	case Equals, NotEquals, GreaterThan, LessThan, GreaterOrEqual, LessOrEqual, Like:
		return 1, 1
	case Between:
		return 2, 2
	case In, NotIn:
		return 1, Unbounded
	default:
		return 0, 0
	}
}

// Accepts reports whether n operands satisfy the comparison's arity.
func (c Comparison) Accepts(n int) bool {
	lo, hi := c.Arity()
	if lo == 0 {
		return false
	}
	return n >= lo && (hi == Unbounded || n <= hi)
}

// AllowsNull reports whether a null operand is meaningful. Only equality
// has an IS NULL form.
func (c Comparison) AllowsNull() bool {
	return c == Equals || c == NotEquals
}

// Constraint is a single comparison against a whitelisted, physically
// qualified reference ("posts.title", "tags.name").
type Constraint struct {
	Field      string
	Comparison Comparison
	Values     []ir.IRValue
	Connector  ir.Connector
}

func (Constraint) queryNode() {}

// Relation returns the qualifier of Field.
func (c Constraint) Relation() string {
	qualifier, _, _ := strings.Cut(c.Field, ".")
	return qualifier
}

// String renders the constraint with literal operands, for diagnostics and
// golden files. It is never sent to a database.
func (c Constraint) String() string {
	switch c.Comparison {
	case Between:
		if len(c.Values) == 2 {
			return fmt.Sprintf("%s BETWEEN %s AND %s", c.Field, ir.Literal(c.Values[0]), ir.Literal(c.Values[1]))
		}
	case In, NotIn:
		lits := make([]string, len(c.Values))
		for i, v := range c.Values {
			lits[i] = ir.Literal(v)
		}
		return fmt.Sprintf("%s %s (%s)", c.Field, c.Comparison, strings.Join(lits, ", "))
	}
	if len(c.Values) == 1 {
		return fmt.Sprintf("%s %s %s", c.Field, c.Comparison, ir.Literal(c.Values[0]))
	}
	lits := make([]string, len(c.Values))
	for i, v := range c.Values {
		lits[i] = ir.Literal(v)
	}
	return fmt.Sprintf("%s %s [%s]", c.Field, c.Comparison, strings.Join(lits, ", "))
}

// Group is an ordered list of nodes combined with one connector.
type Group struct {
	Connector ir.Connector
	Items     []Node
}

func (*Group) queryNode() {}

// NewGroup returns an empty group.
func NewGroup(conn ir.Connector) *Group {
	return &Group{Connector: conn}
}

// Add appends a constraint, stamping it with the group's connector.
func (g *Group) Add(c Constraint) {
	c.Connector = g.Connector
	g.Items = append(g.Items, c)
}

// AddGroup appends a nested group.
func (g *Group) AddGroup(child *Group) {
	g.Items = append(g.Items, child)
}

// Empty reports whether the group and all its descendants hold no constraint.
func (g *Group) Empty() bool {
	return g == nil || len(g.Constraints()) == 0
}

// Constraints returns every constraint in depth-first order.
func (g *Group) Constraints() []Constraint {
	if g == nil {
		return nil
	}
	var out []Constraint
	for _, item := range g.Items {
		switch n := item.(type) {
		case Constraint:
			out = append(out, n)
		case *Group:
			out = append(out, n.Constraints()...)
		}
	}
	return out
}

// String renders the tree as CONNECTOR[item, item, ...].
func (g *Group) String() string {
	if g == nil {
		return "<nil>"
	}
	parts := make([]string, len(g.Items))
	for i, item := range g.Items {
		switch n := item.(type) {
		case Constraint:
			parts[i] = n.String()
		case *Group:
			parts[i] = n.String()
		}
	}
	return fmt.Sprintf("%s[%s]", g.Connector, strings.Join(parts, ", "))
}

// JoinKind selects the join flavour.
type JoinKind string

const (
	JoinLeft  JoinKind = "LEFT"
	JoinInner JoinKind = "INNER"
)

// JoinCondition is an equality between two qualified references.
type JoinCondition struct {
	Left  string
	Right string
}

func (c JoinCondition) String() string {
	return c.Left + " = " + c.Right
}

// JoinStep is an intermediate join, used for junction tables. Alias keeps
// two relations sharing one junction table apart; empty means the bare table.
type JoinStep struct {
	Table string
	Alias string
	On    JoinCondition
}

// Name is the name the step's columns are qualified with.
func (s JoinStep) Name() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Table
}

// Clause renders the step's table reference and condition.
func (s JoinStep) Clause() string {
	if s.Alias != "" && s.Alias != s.Table {
		return fmt.Sprintf("%s AS %s ON %s", s.Table, s.Alias, s.On)
	}
	return fmt.Sprintf("%s ON %s", s.Table, s.On)
}

// JoinSpec is everything a backend needs to reach one related entity.
// Relation is the alias the related table is joined under.
type JoinSpec struct {
	Relation string
	Table    string
	On       JoinCondition
	Kind     JoinKind
	Via      *JoinStep
}

// String renders the join clauses in execution order.
func (j JoinSpec) String() string {
	var b strings.Builder
	if j.Via != nil {
		fmt.Fprintf(&b, "%s JOIN %s; ", j.Kind, j.Via.Clause())
	}
	fmt.Fprintf(&b, "%s JOIN %s AS %s ON %s", j.Kind, j.Table, j.Relation, j.On)
	return b.String()
}

// Plan is a compiled filter: the constraint tree and the joins it needs,
// rooted at one primary table.
type Plan struct {
	Entity      string
	Table       string
	PrimaryKey  string
	Where       *Group
	Joins       []JoinSpec
	Fingerprint string
}

// String renders the plan for golden files. The fingerprint is omitted.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "entity: %s (%s.%s)\n", p.Entity, p.Table, p.PrimaryKey)
	b.WriteString("joins:\n")
	for _, j := range p.Joins {
		if j.Via != nil {
			fmt.Fprintf(&b, "  %s JOIN %s\n", j.Kind, j.Via.Clause())
		}
		fmt.Fprintf(&b, "  %s JOIN %s AS %s ON %s\n", j.Kind, j.Table, j.Relation, j.On)
	}
	fmt.Fprintf(&b, "where: %s\n", p.Where)
	return b.String()
}

// Canonical returns the plan as plain maps and slices accepted by
// ir.MarshalCanonical. The fingerprint itself is excluded.
func (p *Plan) Canonical() map[string]any {
	joins := make([]any, len(p.Joins))
	for i, j := range p.Joins {
		jm := map[string]any{
			"relation": j.Relation,
			"table":    j.Table,
			"kind":     string(j.Kind),
			"on":       []string{j.On.Left, j.On.Right},
		}
		if j.Via != nil {
			via := map[string]any{
				"table": j.Via.Table,
				"on":    []string{j.Via.On.Left, j.Via.On.Right},
			}
			if j.Via.Alias != "" {
				via["alias"] = j.Via.Alias
			}
			jm["via"] = via
		}
		joins[i] = jm
	}

	out := map[string]any{
		"entity":      p.Entity,
		"table":       p.Table,
		"primary_key": p.PrimaryKey,
		"joins":       joins,
	}
	if p.Where != nil {
		out["where"] = canonicalGroup(p.Where)
	}
	return out
}

func canonicalGroup(g *Group) map[string]any {
	items := make([]any, len(g.Items))
	for i, item := range g.Items {
		switch n := item.(type) {
		case Constraint:
			items[i] = map[string]any{
				"field":      n.Field,
				"comparison": string(n.Comparison),
				"values":     n.Values,
				"connector":  string(n.Connector),
			}
		case *Group:
			items[i] = canonicalGroup(n)
		}
	}
	return map[string]any{
		"connector": string(g.Connector),
		"items":     items,
	}
}
