package compiler

import (
	"fmt"

	"github.com/roach88/quri/internal/filter"
	"github.com/roach88/quri/internal/queryir"
	"github.com/roach88/quri/internal/schema"
)

// defaultKey is assumed when a hand-built relationship leaves a key empty.
// Registry-built relationships always carry explicit keys.
const defaultKey = "id"

// junctionSuffix names a junction table's alias after the relation it serves.
const junctionSuffix = "_via"

// SynthesizeJoins walks expr depth-first (nested groups, then operations)
// and returns one join per relation the expression references, in first
// occurrence order.
func SynthesizeJoins(expr filter.Expression, fields schema.FieldConfig, primary string) ([]queryir.JoinSpec, error) {
	r := &joinCollector{
		resolve: func(name string) (ResolvedField, error) {
			return ResolveField(name, fields, primary)
		},
		primary:  primary,
		maxDepth: DefaultMaxDepth,
		seen:     make(map[string]bool),
	}
	if err := r.walk(expr); err != nil {
		return nil, err
	}
	return r.joins, nil
}

// JoinFor builds the join reaching rel under alias from the primary table.
func JoinFor(rel *schema.Relationship, alias, primary string) (queryir.JoinSpec, error) {
	owner := keyOr(rel.OwnerKey)
	local := keyOr(rel.LocalKey)

	j := queryir.JoinSpec{
		Relation: alias,
		Table:    rel.Table,
		Kind:     queryir.JoinLeft,
	}

	switch rel.Cardinality {
	case schema.ManyToMany:
		if rel.Junction == nil {
			return queryir.JoinSpec{}, &FilterError{
				Code:     ErrCodeUnsupportedRelation,
				Message:  fmt.Sprintf("relation %q is many_to_many but has no junction", alias),
				Relation: alias,
			}
		}
		via := alias + junctionSuffix
		j.Via = &queryir.JoinStep{
			Table: rel.Junction.Table,
			Alias: via,
			On:    queryir.JoinCondition{Left: ref(primary, local), Right: ref(via, rel.Junction.LocalKey)},
		}
		j.On = queryir.JoinCondition{Left: ref(via, rel.Junction.ForeignKey), Right: ref(alias, owner)}

	case schema.BelongsTo:
		if rel.ForeignKey == "" {
			return queryir.JoinSpec{}, missingForeignKey(rel, alias)
		}
		j.On = queryir.JoinCondition{Left: ref(primary, rel.ForeignKey), Right: ref(alias, owner)}

	case schema.HasMany:
		if rel.ForeignKey == "" {
			return queryir.JoinSpec{}, missingForeignKey(rel, alias)
		}
		j.On = queryir.JoinCondition{Left: ref(alias, rel.ForeignKey), Right: ref(primary, local)}

	default:
		return queryir.JoinSpec{}, &FilterError{
			Code:     ErrCodeUnsupportedRelation,
			Message:  fmt.Sprintf("relation %q has unsupported kind %q", alias, rel.Cardinality),
			Relation: alias,
			Details:  map[string]string{"kind": string(rel.Cardinality)},
		}
	}

	return j, nil
}

func missingForeignKey(rel *schema.Relationship, alias string) error {
	return &FilterError{
		Code:     ErrCodeUnsupportedRelation,
		Message:  fmt.Sprintf("relation %q is %s but has no foreign key", alias, rel.Cardinality),
		Relation: alias,
		Details:  map[string]string{"kind": string(rel.Cardinality)},
	}
}

type joinCollector struct {
	resolve  func(name string) (ResolvedField, error)
	primary  string
	maxDepth int
	seen     map[string]bool
	joins    []queryir.JoinSpec
}

// walk visits operations in compile order. The depth cap is checked at
// each operation; groups holding none add no joins.
func (c *joinCollector) walk(expr filter.Expression) error {
	return filter.Walk(expr, func(op filter.Operation, depth int) error {
		if depth > c.maxDepth {
			return depthError(c.maxDepth)
		}
		rf, err := c.resolve(op.FieldName())
		if err != nil {
			return err
		}
		if rf.Relation == "" || c.seen[rf.Relation] {
			return nil
		}
		j, err := JoinFor(rf.Relationship, rf.Relation, c.primary)
		if err != nil {
			return withField(err, op.FieldName())
		}
		c.seen[rf.Relation] = true
		c.joins = append(c.joins, j)
		return nil
	})
}

func ref(table, column string) string {
	return table + separator + column
}

func keyOr(key string) string {
	if key == "" {
		return defaultKey
	}
	return key
}
