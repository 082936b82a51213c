package querysql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
)

// Dialect selects the placeholder format.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts "sqlite" or "postgres" (case-insensitive).
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case DialectSQLite, DialectPostgres:
		return d, nil
	}
	return "", fmt.Errorf("unknown dialect %q (want sqlite or postgres)", s)
}

func (d Dialect) placeholders() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	dialect Dialect
}

// WithDialect selects the placeholder format (default sqlite).
func WithDialect(d Dialect) Option {
	return func(c *buildConfig) {
		if d != "" {
			c.dialect = d
		}
	}
}

// Build validates plan and renders it as a SELECT statement.
func Build(plan *queryir.Plan, opts ...Option) (string, []any, error) {
	cfg := buildConfig{dialect: DialectSQLite}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := queryir.Validate(plan).Err(); err != nil {
		return "", nil, err
	}

	b := NewBuilder(plan.Table, plan.PrimaryKey)
	if err := queryir.Apply(plan, b); err != nil {
		return "", nil, err
	}
	return b.ToSql(cfg.dialect)
}

// Builder implements queryir.Applier on top of a squirrel SelectBuilder.
// Groups are collected on a stack and folded into sq.And / sq.Or when they
// close. A Builder is single-use and not safe for concurrent use.
type Builder struct {
	table string
	pk    string
	joins []queryir.JoinSpec
	stack []frame
	where sq.Sqlizer
}

type frame struct {
	conn  ir.Connector
	parts []sq.Sqlizer
}

// NewBuilder starts a query over table ordered by pk.
func NewBuilder(table, pk string) *Builder {
	return &Builder{table: table, pk: pk}
}

// ApplyJoin implements queryir.Applier.
func (b *Builder) ApplyJoin(j queryir.JoinSpec) error {
	b.joins = append(b.joins, j)
	return nil
}

// BeginGroup implements queryir.Applier.
func (b *Builder) BeginGroup(conn ir.Connector) error {
	if !conn.Valid() {
		return fmt.Errorf("unknown connector %q", conn)
	}
	b.stack = append(b.stack, frame{conn: conn})
	return nil
}

// ApplyConstraint implements queryir.Applier. The connector is implied by
// the enclosing group.
func (b *Builder) ApplyConstraint(field string, cmp queryir.Comparison, values []ir.IRValue, _ ir.Connector) error {
	if len(b.stack) == 0 {
		return fmt.Errorf("constraint on %s outside a group", field)
	}
	cond, err := Condition(field, cmp, values)
	if err != nil {
		return err
	}
	top := &b.stack[len(b.stack)-1]
	top.parts = append(top.parts, cond)
	return nil
}

// EndGroup implements queryir.Applier. Empty groups are dropped: a group
// with no constraints does not restrict the result.
func (b *Builder) EndGroup() error {
	if len(b.stack) == 0 {
		return fmt.Errorf("unbalanced group")
	}
	f := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	if len(f.parts) == 0 {
		return nil
	}

	var folded sq.Sqlizer
	if f.conn == ir.ConnectorOr {
		folded = sq.Or(f.parts)
	} else {
		folded = sq.And(f.parts)
	}

	if len(b.stack) == 0 {
		b.where = folded
		return nil
	}
	top := &b.stack[len(b.stack)-1]
	top.parts = append(top.parts, folded)
	return nil
}

// ToSql renders the collected query.
func (b *Builder) ToSql(d Dialect) (string, []any, error) {
	if len(b.stack) != 0 {
		return "", nil, fmt.Errorf("%d group(s) left open", len(b.stack))
	}

	q := sq.Select(b.table + ".*").
		Distinct().
		From(b.table)

	for _, j := range b.joins {
		if j.Via != nil {
			q = joinClause(q, j.Kind, j.Via.Clause())
		}
		q = joinClause(q, j.Kind, fmt.Sprintf("%s AS %s ON %s", j.Table, j.Relation, j.On))
	}

	if b.where != nil {
		q = q.Where(b.where)
	}

	return q.OrderBy(b.table + "." + b.pk + " ASC").
		PlaceholderFormat(d.placeholders()).
		ToSql()
}

func joinClause(q sq.SelectBuilder, kind queryir.JoinKind, clause string) sq.SelectBuilder {
	if kind == queryir.JoinInner {
		return q.Join(clause)
	}
	return q.LeftJoin(clause)
}

// Condition renders one constraint. Null operands under Equals and
// NotEquals become IS NULL and IS NOT NULL.
func Condition(field string, cmp queryir.Comparison, values []ir.IRValue) (sq.Sqlizer, error) {
	if !cmp.Accepts(len(values)) {
		return nil, fmt.Errorf("%s %s: wrong operand count %d", field, cmp, len(values))
	}
	args, err := params(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}

	switch cmp {
	case queryir.Equals:
		return sq.Eq{field: args[0]}, nil
	case queryir.NotEquals:
		return sq.NotEq{field: args[0]}, nil
	case queryir.GreaterThan:
		return sq.Gt{field: args[0]}, nil
	case queryir.LessThan:
		return sq.Lt{field: args[0]}, nil
	case queryir.GreaterOrEqual:
		return sq.GtOrEq{field: args[0]}, nil
	case queryir.LessOrEqual:
		return sq.LtOrEq{field: args[0]}, nil
	case queryir.Like:
		return sq.Like{field: args[0]}, nil
	case queryir.Between:
		return sq.Expr(field+" BETWEEN ? AND ?", args[0], args[1]), nil
	case queryir.In:
		return sq.Eq{field: args}, nil
	case queryir.NotIn:
		return sq.NotEq{field: args}, nil
	}
	return nil, fmt.Errorf("%s: unsupported comparison %q", field, cmp)
}

func params(values []ir.IRValue) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		p, err := ir.ToParam(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
