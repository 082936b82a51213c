package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quri/internal/schema"
)

// SchemaSummary describes a loaded schema.
type SchemaSummary struct {
	Valid    bool            `json:"valid"`
	Entities []EntitySummary `json:"entities"`
}

// EntitySummary describes one entity's whitelist.
type EntitySummary struct {
	Name       string            `json:"name"`
	Table      string            `json:"table"`
	PrimaryKey string            `json:"primary_key"`
	Fields     map[string]string `json:"fields"`
	Relations  map[string]string `json:"relations"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Validate a CUE schema",
		Long: `Load and validate a CUE schema without compiling any filter.

Reports every problem at once: bad identifiers, unknown field types,
relations to unknown entities, missing keys and bad narrowing lists.
Defaults to the --schema directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				rootOpts.Schema = args[0]
			}
			return runValidate(rootOpts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, err := loadSchema(opts)
	if err != nil {
		if ce := classify(err); ce.details != nil && formatter.Format != "json" {
			return outputValidationProblems(formatter, ce, err)
		}
		return fail(formatter, err)
	}

	summary := summarize(reg)
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid: %d entit(ies)\n\n", len(summary.Entities))
	for _, e := range summary.Entities {
		fmt.Fprintf(formatter.Writer, "  %s (%s.%s): %d field(s), %d relation(s)\n",
			e.Name, e.Table, e.PrimaryKey, len(e.Fields), len(e.Relations))
	}
	return nil
}

// outputValidationProblems lists every validation problem in text mode.
func outputValidationProblems(formatter *OutputFormatter, ce *cliError, err error) error {
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	if problems, ok := ce.details.([]Problem); ok {
		for _, p := range problems {
			loc := p.Entity
			if p.Path != "" {
				loc += "." + p.Path
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", p.Code, loc, p.Message)
		}
	}
	return WrapExitError(ce.exit, ce.message, err)
}

func summarize(reg *schema.Registry) SchemaSummary {
	out := SchemaSummary{Valid: true, Entities: make([]EntitySummary, 0, reg.Len())}
	for _, name := range reg.Names() {
		e, _ := reg.Get(name)
		es := EntitySummary{
			Name:       e.Name,
			Table:      e.Table,
			PrimaryKey: e.PrimaryKey,
			Fields:     map[string]string{},
			Relations:  map[string]string{},
		}
		fields := e.SearchableFields()
		for _, fname := range fields.Names() {
			spec := fields[fname]
			if spec.Relation != nil {
				es.Relations[fname] = fmt.Sprintf("%s %s", spec.Relation.Cardinality, spec.Relation.Target)
				continue
			}
			es.Fields[fname] = string(spec.Field.Type)
		}
		out.Entities = append(out.Entities, es)
	}
	return out
}
