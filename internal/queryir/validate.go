package queryir

import (
	"fmt"
	"regexp"

	"github.com/roach88/quri/internal/ir"
)

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	refPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidationResult lists structural problems found in a plan.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Err folds the problems into one error, or nil when the plan is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid plan: %s (and %d more)", r.Problems[0], len(r.Problems)-1)
}

// Validate re-checks a plan before a backend turns it into a query.
//
// Rules:
//  1. Table, key, alias and reference names are plain identifiers.
//  2. Every constraint references the primary table or a joined alias.
//  3. Operand counts match the comparison; null only under equality.
//  4. Each constraint carries its group's connector.
//  5. Join aliases, junction names included, are unique.
//
// Validate is a pure function with no side effects.
func Validate(plan *Plan) ValidationResult {
	v := &validator{problems: []string{}}
	v.validatePlan(plan)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
	aliases  map[string]bool // names constraints may reference
	names    map[string]bool // every name in the FROM clause
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validatePlan(plan *Plan) {
	if plan == nil {
		v.addProblem("nil plan")
		return
	}
	if !identPattern.MatchString(plan.Table) {
		v.addProblem("table %q is not an identifier", plan.Table)
	}
	if !identPattern.MatchString(plan.PrimaryKey) {
		v.addProblem("primary key %q is not an identifier", plan.PrimaryKey)
	}

	v.aliases = map[string]bool{plan.Table: true}
	v.names = map[string]bool{plan.Table: true}
	for _, j := range plan.Joins {
		v.validateJoin(j)
	}

	if plan.Where != nil {
		v.validateGroup(plan.Where, "where")
	}
}

func (v *validator) validateJoin(j JoinSpec) {
	if !identPattern.MatchString(j.Relation) {
		v.addProblem("join alias %q is not an identifier", j.Relation)
	}
	v.claim(j.Relation)
	v.aliases[j.Relation] = true

	if !identPattern.MatchString(j.Table) {
		v.addProblem("join %s: table %q is not an identifier", j.Relation, j.Table)
	}
	if j.Kind != JoinLeft && j.Kind != JoinInner {
		v.addProblem("join %s: unknown kind %q", j.Relation, j.Kind)
	}
	v.validateCondition(j.Relation, j.On)

	if j.Via != nil {
		if !identPattern.MatchString(j.Via.Table) {
			v.addProblem("join %s: junction table %q is not an identifier", j.Relation, j.Via.Table)
		}
		if j.Via.Alias != "" && !identPattern.MatchString(j.Via.Alias) {
			v.addProblem("join %s: junction alias %q is not an identifier", j.Relation, j.Via.Alias)
		}
		v.claim(j.Via.Name())
		v.validateCondition(j.Relation, j.Via.On)
	}
}

func (v *validator) claim(name string) {
	if v.names[name] {
		v.addProblem("join alias %q used twice", name)
	}
	v.names[name] = true
}

func (v *validator) validateCondition(alias string, on JoinCondition) {
	for _, ref := range []string{on.Left, on.Right} {
		if !refPattern.MatchString(ref) {
			v.addProblem("join %s: %q is not a qualified reference", alias, ref)
		}
	}
}

func (v *validator) validateGroup(g *Group, path string) {
	if !g.Connector.Valid() {
		v.addProblem("%s: unknown connector %q", path, g.Connector)
	}
	for i, item := range g.Items {
		at := fmt.Sprintf("%s[%d]", path, i)
		switch n := item.(type) {
		case Constraint:
			v.validateConstraint(n, g.Connector, at)
		case *Group:
			if n == nil {
				v.addProblem("%s: nil group", at)
				continue
			}
			v.validateGroup(n, at)
		default:
			v.addProblem("%s: unknown node type %T", at, item)
		}
	}
}

func (v *validator) validateConstraint(c Constraint, conn ir.Connector, at string) {
	if !refPattern.MatchString(c.Field) {
		v.addProblem("%s: %q is not a qualified reference", at, c.Field)
	} else if !v.aliases[c.Relation()] {
		v.addProblem("%s: %q references %q which is not joined", at, c.Field, c.Relation())
	}

	if c.Connector != conn {
		v.addProblem("%s: connector %q differs from group connector %q", at, c.Connector, conn)
	}

	if !c.Comparison.Accepts(len(c.Values)) {
		lo, _ := c.Comparison.Arity()
		if lo == 0 {
			v.addProblem("%s: unknown comparison %q", at, c.Comparison)
		} else {
			v.addProblem("%s: %s cannot take %d value(s)", at, c.Comparison, len(c.Values))
		}
	}

	for _, val := range c.Values {
		switch {
		case ir.IsNull(val) && !c.Comparison.AllowsNull():
			v.addProblem("%s: null operand for %s", at, c.Comparison)
		case isObject(val):
			v.addProblem("%s: object operand", at)
		}
	}
}

func isObject(v ir.IRValue) bool {
	_, ok := v.(ir.IRObject)
	return ok
}
