package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/roach88/quri/internal/ir"
)

// FieldType tags a scalar field.
type FieldType string

const (
	TypeInt       FieldType = "int"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
	TypeString    FieldType = "string"
)

// ValidFieldTypes lists every scalar type tag.
var ValidFieldTypes = map[FieldType]bool{
	TypeInt:       true,
	TypeBoolean:   true,
	TypeDate:      true,
	TypeTimestamp: true,
	TypeString:    true,
}

// Cardinality tags how a relationship is joined.
type Cardinality string

const (
	ManyToMany Cardinality = "many_to_many"
	BelongsTo  Cardinality = "belongs_to"
	HasMany    Cardinality = "has_many"
)

// IdentifierPattern is the shape every storage identifier must have.
var IdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is a scalar whitelist entry.
type Field struct {
	Name  string
	Type  FieldType
	Check string // optional CEL rule over `value`
}

// Junction is the linking table of a many-to-many relationship.
type Junction struct {
	Table      string
	LocalKey   string // junction column referencing the owning entity
	ForeignKey string // junction column referencing the related entity
}

// Relationship describes how the owning entity reaches a related one.
type Relationship struct {
	Name        string
	Target      string      // related entity name
	Table       string      // related entity storage name
	Fields      FieldConfig // related entity's whitelist, scalar entries only
	ForeignKey  string
	OwnerKey    string // key on the related entity (its primary key by default)
	LocalKey    string // key on the owning entity (its primary key by default)
	Cardinality Cardinality
	Junction    *Junction
}

// FieldSpec is one whitelist entry: exactly one of Field or Relation is set.
type FieldSpec struct {
	Field    *Field
	Relation *Relationship
}

// FieldConfig maps logical field names to whitelist entries.
// It must not be mutated once a compile has started.
type FieldConfig map[string]FieldSpec

// Scalar returns the scalar entry for name.
func (fc FieldConfig) Scalar(name string) (*Field, bool) {
	spec, ok := fc[name]
	if !ok || spec.Field == nil {
		return nil, false
	}
	return spec.Field, true
}

// Relation returns the relationship entry for name.
func (fc FieldConfig) Relation(name string) (*Relationship, bool) {
	spec, ok := fc[name]
	if !ok || spec.Relation == nil {
		return nil, false
	}
	return spec.Relation, true
}

// Names returns the whitelist keys in sorted order.
func (fc FieldConfig) Names() []string {
	names := make([]string, 0, len(fc))
	for name := range fc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Only returns the subset of fc holding the named scalar entries.
// Unknown names are an error so a narrowing list cannot widen access.
func (fc FieldConfig) Only(names []string) (FieldConfig, error) {
	out := make(FieldConfig, len(names))
	for _, name := range names {
		f, ok := fc.Scalar(name)
		if !ok {
			return nil, fmt.Errorf("field %q is not a scalar field", name)
		}
		out[name] = FieldSpec{Field: f}
	}
	return out, nil
}

// Scalars builds a FieldConfig of scalar fields from name/type pairs.
func Scalars(types map[string]FieldType) FieldConfig {
	fc := make(FieldConfig, len(types))
	for name, typ := range types {
		fc[name] = FieldSpec{Field: &Field{Name: name, Type: typ}}
	}
	return fc
}

// SearchableEntity provides the whitelist of the primary entity.
type SearchableEntity interface {
	SearchableFields() FieldConfig
	PrimaryStorageName() string
}

// RelationWhitelister is an optional collaborator narrowing the fields
// reachable through a relationship.
type RelationWhitelister interface {
	RelationFields(relation string) (FieldConfig, bool)
}

// ValueValidator is an optional collaborator that validates and normalizes
// the operands compared against a field.
type ValueValidator interface {
	ValidateValues(field Field, values []ir.IRValue) ([]ir.IRValue, error)
}
