package queryir

import (
	"fmt"

	"github.com/roach88/quri/internal/ir"
)

// Applier receives a plan in execution order. The SQL backend implements
// it; tests implement it to observe the exact call sequence.
type Applier interface {
	ApplyJoin(join JoinSpec) error
	BeginGroup(conn ir.Connector) error
	ApplyConstraint(field string, cmp Comparison, values []ir.IRValue, conn ir.Connector) error
	EndGroup() error
}

// Apply hands every join, then the constraint tree, to a.
// The first error aborts the walk.
func Apply(plan *Plan, a Applier) error {
	if plan == nil {
		return fmt.Errorf("apply: nil plan")
	}
	for _, j := range plan.Joins {
		if err := a.ApplyJoin(j); err != nil {
			return fmt.Errorf("apply join %s: %w", j.Relation, err)
		}
	}
	if plan.Where == nil {
		return nil
	}
	return applyGroup(plan.Where, a)
}

func applyGroup(g *Group, a Applier) error {
	if err := a.BeginGroup(g.Connector); err != nil {
		return err
	}
	for _, item := range g.Items {
		switch n := item.(type) {
		case Constraint:
			if err := a.ApplyConstraint(n.Field, n.Comparison, n.Values, n.Connector); err != nil {
				return fmt.Errorf("apply %s: %w", n.Field, err)
			}
		case *Group:
			if err := applyGroup(n, a); err != nil {
				return err
			}
		default:
			return fmt.Errorf("apply: unknown node type %T", item)
		}
	}
	return a.EndGroup()
}
