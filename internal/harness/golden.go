package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/quri/internal/ir"
)

// Snapshot captures everything a scenario produced.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Entity       string
	Result       *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	m := map[string]any{
		"scenario": s.ScenarioName,
		"entity":   s.Entity,
	}

	r := s.Result
	if r.ErrorCode != "" {
		m["error"] = r.ErrorCode
		return m
	}

	if r.Plan != nil {
		joins := make([]string, len(r.Plan.Joins))
		for i, j := range r.Plan.Joins {
			joins[i] = j.String()
		}
		m["where"] = r.Plan.Where.String()
		m["joins"] = joins
	}
	m["sql"] = r.SQL

	args := r.Args
	if args == nil {
		args = []any{}
	}
	m["args"] = args

	if r.RowIDs != nil {
		rows := make([]any, len(r.RowIDs))
		for i, id := range r.RowIDs {
			rows[i] = id
		}
		m["rows"] = rows
	}
	return m
}

// Marshal returns the snapshot as canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, h *Harness, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := h.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, scenario.Entity, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName, entity string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Entity: entity, Result: result}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
