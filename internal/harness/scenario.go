package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quri/internal/filter"
)

// Scenario defines a conformance scenario: one filter compiled against one
// entity, with expectations on the compiled plan, the SQL, and the rows the
// query returns from a fixture database.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a directory of CUE schema files. Relative paths resolve
	// against the scenario file. Empty means the harness default.
	Schema string `yaml:"schema,omitempty"`

	// Fixtures is a SQL script loaded into a fresh in-memory database before
	// rows are checked. Relative paths resolve against the scenario file.
	Fixtures string `yaml:"fixtures,omitempty"`

	// Entity is the primary entity the filter is compiled against.
	Entity string `yaml:"entity"`

	// Filter is the expression under test.
	Filter filter.Expr `yaml:"filter"`

	// MaxDepth overrides the compiler's nesting cap when non-zero.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Expect holds the expectations. At least one must be set.
	Expect ExpectClause `yaml:"expect"`

	// path is the file the scenario was loaded from.
	path string
}

// ExpectClause specifies the expected compile outcome.
type ExpectClause struct {
	// Error is the expected filter error code (e.g., "FIELD_NOT_ALLOWED").
	// When set, the other expectations must be empty.
	Error string `yaml:"error,omitempty"`

	// Where is the expected rendering of the constraint tree.
	Where string `yaml:"where,omitempty"`

	// Joins are the expected join renderings, in plan order.
	Joins []string `yaml:"joins,omitempty"`

	// SQL is the expected query text (sqlite placeholders).
	SQL string `yaml:"sql,omitempty"`

	// Rows are the expected primary keys, in result order. An explicit empty
	// list asserts that nothing matches.
	Rows []int64 `yaml:"rows,omitempty"`

	rowsSet bool
}

// UnmarshalYAML records whether rows was present so `rows: []` can assert
// an empty result. Unknown keys are rejected here since node.Decode does
// not inherit the outer decoder's strictness.
func (e *ExpectClause) UnmarshalYAML(node *yaml.Node) error {
	type plain ExpectClause
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = ExpectClause(p)
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch key := node.Content[i]; key.Value {
		case "rows":
			e.rowsSet = true
		case "error", "where", "joins", "sql":
		default:
			return fmt.Errorf("line %d: field %s not found in expect", key.Line, key.Value)
		}
	}
	return nil
}

// HasRows reports whether the scenario asserts on returned rows.
func (e ExpectClause) HasRows() bool {
	return e.rowsSet || len(e.Rows) > 0
}

// Path returns the file the scenario was loaded from, if any.
func (s *Scenario) Path() string {
	return s.path
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Schema and fixture paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.path = path

	base := filepath.Dir(path)
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(base, scenario.Schema)
	}
	if scenario.Fixtures != "" && !filepath.IsAbs(scenario.Fixtures) {
		scenario.Fixtures = filepath.Join(base, scenario.Fixtures)
	}

	if err := validatePaths(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes a scenario from YAML. Paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	if len(matches) == 0 {
		return nil, &ScenarioNotFoundError{Dir: dir}
	}
	sort.Strings(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	seen := make(map[string]string, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(path), s.Name, filepath.Base(prev))
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// ScenarioNotFoundError is returned when a directory holds no scenarios.
type ScenarioNotFoundError struct {
	Dir string
}

func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("no scenarios found in %s", e.Dir)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Entity == "" {
		return fmt.Errorf("entity is required")
	}

	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	e := s.Expect
	outcome := e.Where != "" || len(e.Joins) > 0 || e.SQL != "" || e.HasRows()
	if e.Error == "" && !outcome {
		return fmt.Errorf("expect needs at least one of error, where, joins, sql, rows")
	}
	if e.Error != "" && outcome {
		return fmt.Errorf("expect.error cannot be combined with other expectations")
	}

	return nil
}

func validatePaths(s *Scenario) error {
	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); err != nil {
			return fmt.Errorf("schema directory not found: %s", s.Schema)
		}
	}
	if s.Fixtures != "" {
		if _, err := os.Stat(s.Fixtures); err != nil {
			return fmt.Errorf("fixtures file not found: %s", s.Fixtures)
		}
	}
	return nil
}
