package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// PlanOutput is the JSON form of a compiled plan.
type PlanOutput struct {
	Entity      string             `json:"entity"`
	Table       string             `json:"table"`
	PrimaryKey  string             `json:"primary_key"`
	Where       string             `json:"where"`
	Constraints []ConstraintOutput `json:"constraints"`
	Joins       []string           `json:"joins"`
	Fingerprint string             `json:"fingerprint"`
}

// ConstraintOutput is one constraint of a plan, in depth-first order.
type ConstraintOutput struct {
	Field      string       `json:"field"`
	Comparison string       `json:"comparison"`
	Values     []ir.IRValue `json:"values"`
	Connector  string       `json:"connector"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <filter-file>",
		Short: "Compile a filter into a constraint plan",
		Long: `Compile a filter expression against one entity of the schema.

Prints the constraint tree, the joins it needs and the plan fingerprint.
Use "-" to read the filter from stdin.

Examples:
  quri compile --schema ./schema --entity posts filter.yaml
  echo '{operations: [{field: title, op: eq, value: hi}]}' | quri compile -s ./schema -e posts -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical plan JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	plan, err := compilePlan(opts.RootOptions, cmd, path)
	if err != nil {
		return fail(formatter, err)
	}

	formatter.VerboseLog("Compiled %d constraint(s), %d join(s)", len(plan.Where.Constraints()), len(plan.Joins))

	if opts.Output != "" {
		if err := writePlanToFile(plan, opts.Output); err != nil {
			return fail(formatter, &cliError{code: ErrCodeWriteFailed, exit: ExitCommandError, message: fmt.Sprintf("writing output file: %v", err)})
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(planOutput(plan))
	}

	// Human-readable text output
	fmt.Fprint(formatter.Writer, plan.String())
	fmt.Fprintf(formatter.Writer, "fingerprint: %s\n", plan.Fingerprint)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical plan to %s\n", opts.Output)
	}
	return nil
}

func planOutput(plan *queryir.Plan) PlanOutput {
	out := PlanOutput{
		Entity:      plan.Entity,
		Table:       plan.Table,
		PrimaryKey:  plan.PrimaryKey,
		Where:       plan.Where.String(),
		Constraints: []ConstraintOutput{},
		Joins:       make([]string, len(plan.Joins)),
		Fingerprint: plan.Fingerprint,
	}
	for _, c := range plan.Where.Constraints() {
		out.Constraints = append(out.Constraints, ConstraintOutput{
			Field:      c.Field,
			Comparison: string(c.Comparison),
			Values:     c.Values,
			Connector:  string(c.Connector),
		})
	}
	for i, j := range plan.Joins {
		out.Joins[i] = j.String()
	}
	return out
}

// writePlanToFile writes the plan in canonical JSON, the same encoding its
// fingerprint is computed over.
func writePlanToFile(plan *queryir.Plan, filename string) error {
	data, err := ir.MarshalCanonical(plan.Canonical())
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
