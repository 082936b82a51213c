package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/quri/internal/compiler"
	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
	"github.com/roach88/quri/internal/querysql"
	"github.com/roach88/quri/internal/schema"
	"github.com/roach88/quri/internal/store"
)

// Harness runs scenarios. A scenario that names its own schema or fixtures
// overrides the harness defaults.
type Harness struct {
	registry *schema.Registry
	fixtures string
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry sets the default schema.
func WithRegistry(reg *schema.Registry) Option {
	return func(h *Harness) { h.registry = reg }
}

// WithFixtures sets the default fixture script.
func WithFixtures(sql string) Option {
	return func(h *Harness) { h.fixtures = sql }
}

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with default harness settings.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	return New(opts...).Run(ctx, scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Resolve the schema and the entity
//  2. Compile the filter into a plan (a filter error is an outcome, not a failure)
//  3. Render SQL
//  4. If rows are expected, load fixtures into a fresh in-memory database and run the query
//  5. Compare everything against the expect clause
//
// The returned error is reserved for problems with the scenario's
// environment: missing schema, unknown entity, broken fixtures.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	reg, err := h.schemaFor(scenario)
	if err != nil {
		return nil, err
	}

	entity, ok := reg.Get(scenario.Entity)
	if !ok {
		return nil, fmt.Errorf("scenario %s: unknown entity %q", scenario.Name, scenario.Entity)
	}

	opts := []compiler.Option{compiler.WithLogger(h.logger)}
	if scenario.MaxDepth > 0 {
		opts = append(opts, compiler.WithMaxDepth(scenario.MaxDepth))
	}

	result := NewResult()
	plan, err := compiler.ForEntity(entity, opts...).Plan(scenario.Filter)
	if err != nil {
		code := compiler.CodeOf(err)
		if code == "" {
			return nil, fmt.Errorf("scenario %s: compile: %w", scenario.Name, err)
		}
		result.ErrorCode = string(code)
		h.finish(scenario, result)
		return result, nil
	}
	result.Plan = plan

	result.SQL, result.Args, err = querysql.Build(plan)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: build sql: %w", scenario.Name, err)
	}

	if scenario.Expect.HasRows() {
		ids, err := h.queryRows(ctx, scenario, plan)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.RowIDs = ids
	}

	h.finish(scenario, result)
	return result, nil
}

func (h *Harness) finish(scenario *Scenario, result *Result) {
	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"error_code", result.ErrorCode)
}

func (h *Harness) schemaFor(scenario *Scenario) (*schema.Registry, error) {
	if scenario.Schema != "" {
		reg, err := schema.LoadDir(scenario.Schema)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: load schema: %w", scenario.Name, err)
		}
		return reg, nil
	}
	if h.registry == nil {
		return nil, fmt.Errorf("scenario %s: no schema given and no default registry", scenario.Name)
	}
	return h.registry, nil
}

func (h *Harness) fixturesFor(scenario *Scenario) (string, error) {
	if scenario.Fixtures != "" {
		data, err := os.ReadFile(scenario.Fixtures)
		if err != nil {
			return "", fmt.Errorf("read fixtures: %w", err)
		}
		return string(data), nil
	}
	if h.fixtures == "" {
		return "", fmt.Errorf("rows expected but no fixtures given")
	}
	return h.fixtures, nil
}

// queryRows runs the plan in a fresh in-memory database for isolation and
// returns the primary keys in result order.
func (h *Harness) queryRows(ctx context.Context, scenario *Scenario, plan *queryir.Plan) ([]int64, error) {
	script, err := h.fixturesFor(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.LoadFixtures(ctx, script); err != nil {
		return nil, err
	}

	rows, err := st.Filter(ctx, plan)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for i, v := range store.Column(rows, plan.PrimaryKey) {
		id, ok := v.(ir.IRInt)
		if !ok {
			return nil, fmt.Errorf("row %d: primary key %s is %s, not an integer", i, plan.PrimaryKey, ir.Literal(v))
		}
		ids = append(ids, int64(id))
	}
	return ids, nil
}
