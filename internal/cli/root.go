package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. Values are resolved
// through viper before any command runs: flag > QURI_* env > config file >
// default.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // optional YAML config file
	Schema   string // CUE schema directory
	DB       string // SQLite database path (query only)
	Dialect  string // "sqlite" | "postgres"
	Entity   string // primary entity filters compile against
	MaxDepth int    // nesting cap, 0 means the compiler default

	// Session is the id of this invocation, stamped on logs and on JSON
	// responses as trace_id.
	Session string
	Logger  *slog.Logger

	sessions SessionGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the quri CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(UUIDv7Generator{})
}

func newRootCommand(sessions SessionGenerator) *cobra.Command {
	opts := &RootOptions{sessions: sessions}

	cmd := &cobra.Command{
		Use:   "quri",
		Short: "quri - filter expressions to SQL",
		Long: `quri compiles client-supplied filter expressions into whitelisted,
parameterized SQL constraints.

Entities and their filterable fields are declared in CUE. Filters are YAML
or JSON trees of operations and nested AND/OR groups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, opts); err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.Session = opts.sessions.Generate()
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose).With("session", opts.Session)
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.Config, "config", "", "config file (YAML)")
	pf.StringVarP(&opts.Schema, "schema", "s", "", "CUE schema directory")
	pf.StringVar(&opts.DB, "db", "", "SQLite database path")
	pf.StringVar(&opts.Dialect, "dialect", "sqlite", "SQL placeholder dialect (sqlite|postgres)")
	pf.StringVarP(&opts.Entity, "entity", "e", "", "entity to filter")
	pf.IntVar(&opts.MaxDepth, "max-depth", 0, "maximum group nesting (0 = default)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// log returns the invocation logger, or a discarding one before the root
// command has resolved its options.
func (o *RootOptions) log() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// newLogger returns a text logger on w. Verbose enables debug records.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
