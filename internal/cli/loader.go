package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/quri/internal/compiler"
	"github.com/roach88/quri/internal/filter"
	"github.com/roach88/quri/internal/queryir"
	"github.com/roach88/quri/internal/schema"
)

// Error code constants - unified across all CLI commands.
// Schema load (E001-E006, E207) and validation (E201-E206) codes come
// from the schema package unchanged.
const (
	ErrCodeGeneric     = schema.ErrCodeGeneric
	ErrCodeNotFound    = schema.ErrCodeNotFound
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Database open/query error
	ErrCodeBadFilter   = "E009" // Filter file unreadable or malformed
	ErrCodeNoEntity    = "E010" // --entity missing or unknown

	// Filter compile errors
	ErrCodeFieldNotAllowed     = "E301"
	ErrCodeRelationNotAllowed  = "E302"
	ErrCodeUnsupportedOperator = "E303"
	ErrCodeValueArity          = "E304"
	ErrCodeUnsupportedRelation = "E305"
	ErrCodeInvalidValue        = "E306"
	ErrCodeDepthExceeded       = "E307"
	ErrCodeInvalidConnector    = "E308"
)

var filterCodes = map[compiler.FilterErrorCode]string{
	compiler.ErrCodeFieldNotAllowed:     ErrCodeFieldNotAllowed,
	compiler.ErrCodeRelationNotAllowed:  ErrCodeRelationNotAllowed,
	compiler.ErrCodeUnsupportedOperator: ErrCodeUnsupportedOperator,
	compiler.ErrCodeValueArity:          ErrCodeValueArity,
	compiler.ErrCodeUnsupportedRelation: ErrCodeUnsupportedRelation,
	compiler.ErrCodeInvalidValue:        ErrCodeInvalidValue,
	compiler.ErrCodeDepthExceeded:       ErrCodeDepthExceeded,
	compiler.ErrCodeInvalidConnector:    ErrCodeInvalidConnector,
}

// MapFilterErrorCode maps a compiler error code to a CLI error code.
func MapFilterErrorCode(code compiler.FilterErrorCode) string {
	if c, ok := filterCodes[code]; ok {
		return c
	}
	return ErrCodeGeneric
}

// cliError is an error that already knows its CLI code and exit code.
type cliError struct {
	code    string
	exit    int
	message string
	details interface{}
}

func (e *cliError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// classify turns any command error into a code, an exit code, a message
// and optional details.
func classify(err error) *cliError {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce
	}

	var fe *compiler.FilterError
	if errors.As(err, &fe) {
		details := map[string]string{"filter_code": string(fe.Code)}
		if fe.Field != "" {
			details["field"] = fe.Field
		}
		if fe.Operator != "" {
			details["operator"] = fe.Operator
		}
		if fe.Relation != "" {
			details["relation"] = fe.Relation
		}
		for k, v := range fe.Details {
			details[k] = v
		}
		return &cliError{code: MapFilterErrorCode(fe.Code), exit: ExitFailure, message: fe.Message, details: details}
	}

	var le *schema.LoadError
	if errors.As(err, &le) {
		exit := ExitFailure
		if le.Code == schema.ErrCodeNotFound {
			exit = ExitCommandError
		}
		return &cliError{code: le.Code, exit: exit, message: le.Error()}
	}

	var merr *multierror.Error
	if errors.As(err, &merr) {
		problems := validationProblems(merr)
		code := ErrCodeGeneric
		if len(problems) > 0 {
			code = problems[0].Code
		}
		return &cliError{
			code:    code,
			exit:    ExitFailure,
			message: fmt.Sprintf("schema has %d problem(s)", len(merr.Errors)),
			details: problems,
		}
	}

	return &cliError{code: ErrCodeGeneric, exit: ExitCommandError, message: err.Error()}
}

// fail reports err through the formatter and returns the matching ExitError.
func fail(f *OutputFormatter, err error) error {
	ce := classify(err)
	_ = f.Error(ce.code, ce.message, ce.details)
	return WrapExitError(ce.exit, ce.code, err)
}

// Problem is one schema validation problem, as reported by the CLI.
type Problem struct {
	Code    string `json:"code"`
	Entity  string `json:"entity,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func validationProblems(merr *multierror.Error) []Problem {
	out := make([]Problem, 0, len(merr.Errors))
	for _, err := range merr.Errors {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			out = append(out, Problem{Code: ve.Code, Entity: ve.Entity, Path: ve.Path, Message: ve.Message})
			continue
		}
		out = append(out, Problem{Code: ErrCodeGeneric, Message: err.Error()})
	}
	return out
}

// loadSchema loads the registry named by --schema.
func loadSchema(opts *RootOptions) (*schema.Registry, error) {
	if opts.Schema == "" {
		return nil, &cliError{code: ErrCodeNotFound, exit: ExitCommandError, message: "no schema directory: set --schema, QURI_SCHEMA or schema in the config file"}
	}
	reg, err := schema.LoadDir(opts.Schema)
	if err != nil {
		return nil, err
	}
	opts.log().Debug("schema loaded", "dir", opts.Schema, "entities", reg.Len())
	return reg, nil
}

// loadEntity loads the schema and picks the --entity entity.
func loadEntity(opts *RootOptions) (*schema.Entity, error) {
	reg, err := loadSchema(opts)
	if err != nil {
		return nil, err
	}
	if opts.Entity == "" {
		return nil, &cliError{code: ErrCodeNoEntity, exit: ExitCommandError, message: fmt.Sprintf("no entity: set --entity (one of %s)", strings.Join(reg.Names(), ", "))}
	}
	e, ok := reg.Get(opts.Entity)
	if !ok {
		return nil, &cliError{code: ErrCodeNoEntity, exit: ExitCommandError, message: fmt.Sprintf("unknown entity %q (one of %s)", opts.Entity, strings.Join(reg.Names(), ", "))}
	}
	return e, nil
}

// readFilter reads a filter from path, or from stdin when path is "-".
func readFilter(cmd *cobra.Command, path string) (filter.Expr, error) {
	var (
		expr filter.Expr
		err  error
	)
	if path == "-" {
		expr, err = filter.Decode(cmd.InOrStdin())
	} else {
		if _, statErr := os.Stat(path); statErr != nil {
			return filter.Expr{}, &cliError{code: ErrCodeNotFound, exit: ExitCommandError, message: fmt.Sprintf("filter file not found: %s", path)}
		}
		expr, err = filter.LoadFile(path)
	}
	if err != nil {
		return filter.Expr{}, &cliError{code: ErrCodeBadFilter, exit: ExitFailure, message: err.Error()}
	}
	return expr, nil
}

// compilePlan runs the whole front half shared by compile, sql and query:
// schema, entity, filter file, plan.
func compilePlan(opts *RootOptions, cmd *cobra.Command, path string) (*queryir.Plan, error) {
	entity, err := loadEntity(opts)
	if err != nil {
		return nil, err
	}
	expr, err := readFilter(cmd, path)
	if err != nil {
		return nil, err
	}

	copts := []compiler.Option{compiler.WithLogger(opts.log())}
	if opts.MaxDepth > 0 {
		copts = append(copts, compiler.WithMaxDepth(opts.MaxDepth))
	}
	return compiler.ForEntity(entity, copts...).Plan(expr)
}
