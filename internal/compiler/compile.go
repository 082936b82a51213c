package compiler

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/quri/internal/filter"
	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
	"github.com/roach88/quri/internal/schema"
)

// CompileExpression translates expr into a constraint tree using the
// whitelist fields of the entity stored as primary. It applies no relation
// narrowing and no value validation; use a Compiler for those.
func CompileExpression(expr filter.Expression, fields schema.FieldConfig, primary string) (*queryir.Group, error) {
	return New(staticEntity{fields: fields, table: primary}).Compile(expr)
}

// Compiler compiles filters for one entity. It is immutable after New and
// safe for concurrent use.
type Compiler struct {
	fields     schema.FieldConfig
	primary    string
	name       string
	primaryKey string
	whitelist  schema.RelationWhitelister
	validator  schema.ValueValidator
	maxDepth   int
	logger     *slog.Logger
}

// New returns a compiler for entity. The whitelist is read once, here.
func New(entity schema.SearchableEntity, opts ...Option) *Compiler {
	c := &Compiler{
		fields:     entity.SearchableFields(),
		primary:    entity.PrimaryStorageName(),
		primaryKey: defaultKey,
		maxDepth:   DefaultMaxDepth,
		logger:     discardLogger(),
	}
	c.name = c.primary
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForEntity returns a compiler wired to a registry entity: its relation
// narrowing, its value checks, its name and its primary key. opts are
// applied afterwards and may override any of these.
func ForEntity(e *schema.Entity, opts ...Option) *Compiler {
	base := []Option{
		WithName(e.Name),
		WithPrimaryKey(e.PrimaryKey),
		WithRelationWhitelist(e),
		WithValueValidator(e),
	}
	return New(e, append(base, opts...)...)
}

// Primary returns the storage name constraints are qualified with.
func (c *Compiler) Primary() string {
	return c.primary
}

// Resolve maps a logical field name to its physical reference, applying
// relation narrowing.
func (c *Compiler) Resolve(name string) (ResolvedField, error) {
	return resolve(name, c.fields, c.primary, c.whitelist, false)
}

// Compile translates expr into a constraint tree isomorphic to it.
func (c *Compiler) Compile(expr filter.Expression) (*queryir.Group, error) {
	if expr == nil {
		return nil, fmt.Errorf("compile: nil expression")
	}
	return c.compileGroup(expr, 1)
}

// Joins returns the joins expr needs, in first occurrence order.
func (c *Compiler) Joins(expr filter.Expression) ([]queryir.JoinSpec, error) {
	if expr == nil {
		return nil, fmt.Errorf("joins: nil expression")
	}
	jc := &joinCollector{
		resolve:  c.Resolve,
		primary:  c.primary,
		maxDepth: c.maxDepth,
		seen:     make(map[string]bool),
	}
	if err := jc.walk(expr); err != nil {
		return nil, err
	}
	return jc.joins, nil
}

// Plan compiles expr and synthesizes its joins, then fingerprints the
// result over its canonical form.
func (c *Compiler) Plan(expr filter.Expression) (*queryir.Plan, error) {
	where, err := c.Compile(expr)
	if err != nil {
		return nil, err
	}
	joins, err := c.Joins(expr)
	if err != nil {
		return nil, err
	}

	plan := &queryir.Plan{
		Entity:     c.name,
		Table:      c.primary,
		PrimaryKey: c.primaryKey,
		Where:      where,
		Joins:      joins,
	}
	plan.Fingerprint, err = ir.Fingerprint(ir.DomainPlan, plan.Canonical())
	if err != nil {
		return nil, fmt.Errorf("fingerprint plan: %w", err)
	}

	c.logger.Debug("compiled filter",
		"entity", plan.Entity,
		"constraints", len(where.Constraints()),
		"joins", len(joins),
		"fingerprint", plan.Fingerprint)

	return plan, nil
}

func (c *Compiler) compileGroup(expr filter.Expression, depth int) (*queryir.Group, error) {
	if depth > c.maxDepth {
		return nil, depthError(c.maxDepth)
	}

	conn := expr.Connector()
	if !conn.Valid() {
		return nil, &FilterError{
			Code:    ErrCodeInvalidConnector,
			Message: fmt.Sprintf("unknown connector %q", conn),
		}
	}

	g := queryir.NewGroup(conn)
	for _, child := range expr.NestedExpressions() {
		sub, err := c.compileGroup(child, depth+1)
		if err != nil {
			return nil, err
		}
		g.AddGroup(sub)
	}
	for _, op := range expr.Operations() {
		cons, err := c.compileOperation(op)
		if err != nil {
			return nil, err
		}
		g.Add(cons)
	}
	return g, nil
}

func (c *Compiler) compileOperation(op filter.Operation) (queryir.Constraint, error) {
	rf, err := c.Resolve(op.FieldName())
	if err != nil {
		return queryir.Constraint{}, err
	}

	values := op.Values()
	cmp, err := MapOperator(op.Operator(), values)
	if err != nil {
		return queryir.Constraint{}, withField(err, op.FieldName())
	}

	for _, v := range values {
		switch {
		case ir.IsNull(v) && !cmp.AllowsNull():
			return queryir.Constraint{}, c.invalid(op, "null is only allowed with eq and neq")
		case isObject(v):
			return queryir.Constraint{}, c.invalid(op, "operands must be scalars")
		}
	}

	if cmp == queryir.Like {
		if err := checkPattern(rf.Field, values[0]); err != nil {
			return queryir.Constraint{}, c.invalid(op, err.Error())
		}
	} else if c.validator != nil {
		normalized, err := c.validator.ValidateValues(rf.Field, values)
		if err != nil {
			return queryir.Constraint{}, c.invalid(op, err.Error())
		}
		if len(normalized) != len(values) {
			return queryir.Constraint{}, c.invalid(op, "validator changed the operand count")
		}
		values = normalized
	}

	return queryir.Constraint{
		Field:      rf.Ref,
		Comparison: cmp,
		Values:     values,
	}, nil
}

// checkPattern allows like only on text-shaped fields, with a string pattern.
func checkPattern(f schema.Field, pattern ir.IRValue) error {
	switch f.Type {
	case schema.TypeInt, schema.TypeBoolean:
		return fmt.Errorf("like is not supported on %s field %q", f.Type, f.Name)
	}
	if _, ok := pattern.(ir.IRString); !ok {
		return fmt.Errorf("like pattern must be a string, got %s", ir.Literal(pattern))
	}
	return nil
}

func (c *Compiler) invalid(op filter.Operation, msg string) error {
	return &FilterError{
		Code:     ErrCodeInvalidValue,
		Message:  msg,
		Field:    op.FieldName(),
		Operator: op.Operator(),
	}
}

func depthError(limit int) error {
	return &FilterError{
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("expression nests deeper than %d group(s)", limit),
		Details: map[string]string{"max_depth": strconv.Itoa(limit)},
	}
}

func isObject(v ir.IRValue) bool {
	_, ok := v.(ir.IRObject)
	return ok
}

// staticEntity adapts a bare whitelist to schema.SearchableEntity.
type staticEntity struct {
	fields schema.FieldConfig
	table  string
}

func (s staticEntity) SearchableFields() schema.FieldConfig { return s.fields }
func (s staticEntity) PrimaryStorageName() string           { return s.table }
