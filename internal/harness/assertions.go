package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// AssertionError describes one expectation that did not hold.
type AssertionError struct {
	Kind     string
	Expected string
	Actual   string
	Diff     string
}

func (e *AssertionError) Error() string {
	if e.Diff != "" {
		return fmt.Sprintf("%s mismatch (-want +got):\n%s", e.Kind, e.Diff)
	}
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.Kind, e.Expected, e.Actual)
}

// EvaluateExpectations checks a result against the scenario's expect
// clause and returns one message per mismatch.
func EvaluateExpectations(result *Result, expect ExpectClause) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	add(assertError(result, expect.Error))
	if result.Plan == nil {
		return errs
	}

	if expect.Where != "" {
		add(assertText("where", expect.Where, result.Plan.Where.String()))
	}
	if len(expect.Joins) > 0 {
		got := make([]string, len(result.Plan.Joins))
		for i, j := range result.Plan.Joins {
			got[i] = j.String()
		}
		add(assertList("joins", expect.Joins, got))
	}
	if expect.SQL != "" {
		add(assertText("sql", normalizeSpace(expect.SQL), result.SQL))
	}
	if expect.HasRows() {
		add(assertRows(expect.Rows, result.RowIDs))
	}
	return errs
}

func assertError(result *Result, want string) error {
	got := result.ErrorCode
	if want == got {
		return nil
	}
	if want == "" {
		return &AssertionError{Kind: "error", Expected: "success", Actual: got}
	}
	if got == "" {
		return &AssertionError{Kind: "error", Expected: want, Actual: "success"}
	}
	return &AssertionError{Kind: "error", Expected: want, Actual: got}
}

func assertText(kind, want, got string) error {
	if want == got {
		return nil
	}
	return &AssertionError{Kind: kind, Expected: fmt.Sprintf("%q", want), Actual: fmt.Sprintf("%q", got)}
}

func assertList(kind string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{Kind: kind, Diff: cmp.Diff(want, got)}
}

func assertRows(want, got []int64) error {
	if want == nil {
		want = []int64{}
	}
	if got == nil {
		got = []int64{}
	}
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{Kind: "rows", Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
}

// normalizeSpace folds the line breaks YAML block scalars leave in long
// SQL strings.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
