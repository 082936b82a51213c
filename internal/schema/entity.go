package schema

import (
	"fmt"
	"sort"

	"github.com/roach88/quri/internal/ir"
)

// EntityDef is the declarative form of an entity, as written in a schema file.
type EntityDef struct {
	Name       string
	Table      string
	PrimaryKey string
	Fields     map[string]FieldDef
	Relations  map[string]RelationDef
}

// FieldDef declares a scalar field.
type FieldDef struct {
	Type  FieldType
	Check string
}

// RelationDef declares a relationship to another entity.
type RelationDef struct {
	Entity     string
	Kind       Cardinality
	ForeignKey string
	OwnerKey   string
	LocalKey   string
	Junction   *Junction
	Fields     []string // optional narrowing of the related entity's fields
}

// Entity is a linked, validated entity. It implements SearchableEntity,
// RelationWhitelister and ValueValidator. Entities are immutable once the
// registry that built them is returned, so they are safe to share across
// concurrent compiles.
type Entity struct {
	Name       string
	Table      string
	PrimaryKey string

	fields   FieldConfig
	narrowed map[string]FieldConfig
	rules    map[string]*checkRule // keyed by CEL source
}

// SearchableFields implements SearchableEntity.
func (e *Entity) SearchableFields() FieldConfig {
	return e.fields
}

// PrimaryStorageName implements SearchableEntity.
func (e *Entity) PrimaryStorageName() string {
	return e.Table
}

// RelationFields implements RelationWhitelister. It reports false when the
// relation declares no narrowing list.
func (e *Entity) RelationFields(relation string) (FieldConfig, bool) {
	fc, ok := e.narrowed[relation]
	return fc, ok
}

// ValidateValues implements ValueValidator: operands are coerced to the
// field's type and checked against the field's CEL rule. Nulls pass through.
func (e *Entity) ValidateValues(field Field, values []ir.IRValue) ([]ir.IRValue, error) {
	out := make([]ir.IRValue, len(values))
	for i, v := range values {
		nv, err := Coerce(field.Type, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		if field.Check != "" && !ir.IsNull(nv) {
			rule, ok := e.rules[field.Check]
			if !ok {
				return nil, fmt.Errorf("field %q: check %q was not compiled", field.Name, field.Check)
			}
			if err := rule.eval(nv); err != nil {
				return nil, fmt.Errorf("field %q: %w", field.Name, err)
			}
		}
		out[i] = nv
	}
	return out, nil
}

// Registry holds every entity of a schema, keyed by name.
type Registry struct {
	entities map[string]*Entity
}

// Get returns the named entity.
func (r *Registry) Get(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Names returns entity names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	return len(r.entities)
}

// NewRegistry validates the definitions and links relationships to their
// target entities. All problems are reported together.
func NewRegistry(defs ...EntityDef) (*Registry, error) {
	if err := Validate(defs); err != nil {
		return nil, err
	}

	byName := make(map[string]EntityDef, len(defs))
	for _, def := range defs {
		byName[def.Name] = withDefaults(def)
	}

	reg := &Registry{entities: make(map[string]*Entity, len(defs))}
	rules := make(map[string]*checkRule)

	for _, def := range byName {
		e := &Entity{
			Name:       def.Name,
			Table:      def.Table,
			PrimaryKey: def.PrimaryKey,
			fields:     scalarConfig(def),
			narrowed:   make(map[string]FieldConfig),
			rules:      rules,
		}
		for name, fd := range def.Fields {
			if fd.Check == "" {
				continue
			}
			if _, ok := rules[fd.Check]; ok {
				continue
			}
			rule, err := compileCheck(fd.Check)
			if err != nil {
				return nil, fmt.Errorf("entity %q field %q: %w", def.Name, name, err)
			}
			rules[fd.Check] = rule
		}
		reg.entities[def.Name] = e
	}

	for _, def := range byName {
		e := reg.entities[def.Name]
		for name, rd := range def.Relations {
			target := byName[rd.Entity]
			rel := &Relationship{
				Name:        name,
				Target:      target.Name,
				Table:       target.Table,
				Fields:      scalarConfig(target),
				ForeignKey:  rd.ForeignKey,
				OwnerKey:    rd.OwnerKey,
				LocalKey:    rd.LocalKey,
				Cardinality: rd.Kind,
				Junction:    rd.Junction,
			}
			if rel.OwnerKey == "" {
				rel.OwnerKey = target.PrimaryKey
			}
			if rel.LocalKey == "" {
				rel.LocalKey = def.PrimaryKey
			}
			e.fields[name] = FieldSpec{Relation: rel}

			if len(rd.Fields) > 0 {
				narrowed, err := rel.Fields.Only(rd.Fields)
				if err != nil {
					return nil, fmt.Errorf("entity %q relation %q: %w", def.Name, name, err)
				}
				e.narrowed[name] = narrowed
			}
		}
	}

	return reg, nil
}

func withDefaults(def EntityDef) EntityDef {
	if def.Table == "" {
		def.Table = def.Name
	}
	if def.PrimaryKey == "" {
		def.PrimaryKey = "id"
	}
	return def
}

func scalarConfig(def EntityDef) FieldConfig {
	fc := make(FieldConfig, len(def.Fields)+len(def.Relations))
	for name, fd := range def.Fields {
		fc[name] = FieldSpec{Field: &Field{Name: name, Type: fd.Type, Check: fd.Check}}
	}
	return fc
}
