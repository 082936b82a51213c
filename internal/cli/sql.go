package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quri/internal/querysql"
)

// SQLOutput is the rendered query.
type SQLOutput struct {
	SQL         string `json:"sql"`
	Args        []any  `json:"args"`
	Dialect     string `json:"dialect"`
	Fingerprint string `json:"fingerprint"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql <filter-file>",
		Short: "Render a filter as parameterized SQL",
		Long: `Compile a filter and render the SELECT it describes.

Operands are never inlined: they are returned as bound arguments. The
--dialect flag picks the placeholder style (? for sqlite, $n for postgres).

Examples:
  quri sql --schema ./schema --entity posts filter.yaml
  quri sql -s ./schema -e posts --dialect postgres filter.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSQL(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	out, err := renderSQL(opts, cmd, path)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	fmt.Fprintln(formatter.Writer, out.SQL)
	for i, arg := range out.Args {
		fmt.Fprintf(formatter.Writer, "  $%d = %#v\n", i+1, arg)
	}
	return nil
}

func renderSQL(opts *RootOptions, cmd *cobra.Command, path string) (*SQLOutput, error) {
	dialect, err := querysql.ParseDialect(opts.Dialect)
	if err != nil {
		return nil, &cliError{code: ErrCodeGeneric, exit: ExitCommandError, message: err.Error()}
	}

	plan, err := compilePlan(opts, cmd, path)
	if err != nil {
		return nil, err
	}

	query, args, err := querysql.Build(plan, querysql.WithDialect(dialect))
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	return &SQLOutput{SQL: query, Args: args, Dialect: string(dialect), Fingerprint: plan.Fingerprint}, nil
}
