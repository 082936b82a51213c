package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/querysql"
	"github.com/roach88/quri/internal/store"
)

// QueryOutput is the result of running a filter.
type QueryOutput struct {
	SQL   string        `json:"sql"`
	Count int           `json:"count"`
	Rows  []ir.IRObject `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <filter-file>",
		Short: "Run a filter against a SQLite database",
		Long: `Compile a filter and run it against the SQLite database given by --db.

Rows are printed in primary-key order, one canonical JSON object per line
in text mode.

Exit codes:
  0 - Query ran (even with zero rows)
  1 - Filter rejected
  2 - Command error (missing database, bad schema path, etc.)

Examples:
  quri query --schema ./schema --entity posts --db blog.db filter.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runQuery(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if opts.DB == "" {
		return fail(formatter, &cliError{code: ErrCodeDatabase, exit: ExitCommandError, message: "no database: set --db, QURI_DB or db in the config file"})
	}
	// sqlite creates missing files; a typo should not silently query an empty database
	if _, err := os.Stat(opts.DB); err != nil {
		return fail(formatter, &cliError{code: ErrCodeNotFound, exit: ExitCommandError, message: fmt.Sprintf("database not found: %s", opts.DB)})
	}

	plan, err := compilePlan(opts, cmd, path)
	if err != nil {
		return fail(formatter, err)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return fail(formatter, &cliError{code: ErrCodeDatabase, exit: ExitCommandError, message: err.Error()})
	}
	defer st.Close()

	query, _, err := querysql.Build(plan)
	if err != nil {
		return fail(formatter, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := st.Filter(ctx, plan)
	if err != nil {
		return fail(formatter, &cliError{code: ErrCodeDatabase, exit: ExitCommandError, message: err.Error()})
	}
	opts.log().Debug("query finished", "entity", plan.Entity, "rows", len(rows))

	if formatter.Format == "json" {
		return formatter.Success(QueryOutput{SQL: query, Count: len(rows), Rows: rows})
	}

	for _, row := range rows {
		data, err := ir.MarshalCanonical(row)
		if err != nil {
			return fail(formatter, err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	fmt.Fprintf(formatter.Writer, "(%d row(s))\n", len(rows))
	return nil
}
