package harness

import (
	"github.com/roach88/quri/internal/queryir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation matched.
	Pass bool `json:"pass"`

	// ErrorCode is the filter error code when compilation failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Plan is the compiled plan, nil when compilation failed.
	Plan *queryir.Plan `json:"-"`

	// SQL and Args are the rendered query.
	SQL  string `json:"sql,omitempty"`
	Args []any  `json:"args,omitempty"`

	// RowIDs are the primary keys returned from the fixture database.
	// Nil when the scenario does not check rows.
	RowIDs []int64 `json:"rows,omitempty"`

	// Errors contains expectation mismatches.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
