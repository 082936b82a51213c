package schema

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// ValidationError is one problem found in a set of entity definitions.
type ValidationError struct {
	Code    string
	Entity  string
	Path    string // field or relation name, empty for entity-level problems
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Entity, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Entity, e.Message)
}

// Validation error codes.
const (
	ErrInvalidIdentifier = "E201"
	ErrUnknownFieldType  = "E202"
	ErrUnknownEntity     = "E203"
	ErrMissingKey        = "E204"
	ErrDuplicateName     = "E205"
	ErrInvalidNarrowing  = "E206"
)

// Validate checks entity definitions before they are linked. Every problem
// is collected; the result is nil or a *multierror.Error.
//
// Unknown relationship kinds are accepted here. Join synthesis rejects them
// when a filter actually crosses the relationship.
func Validate(defs []EntityDef) error {
	var result *multierror.Error
	add := func(code, entity, path, format string, args ...any) {
		result = multierror.Append(result, &ValidationError{
			Code:    code,
			Entity:  entity,
			Path:    path,
			Message: fmt.Sprintf(format, args...),
		})
	}

	byName := make(map[string]EntityDef, len(defs))
	for _, def := range defs {
		if _, dup := byName[def.Name]; dup {
			add(ErrDuplicateName, def.Name, "", "entity declared twice")
		}
		byName[def.Name] = withDefaults(def)
	}

	for _, name := range sortedKeys(byName) {
		def := byName[name]
		ident := func(path, what, v string) {
			if !IdentifierPattern.MatchString(v) {
				add(ErrInvalidIdentifier, name, path, "%s %q is not a valid identifier", what, v)
			}
		}

		ident("", "entity name", def.Name)
		ident("", "table", def.Table)
		ident("", "primary key", def.PrimaryKey)

		for _, fname := range sortedKeys(def.Fields) {
			fd := def.Fields[fname]
			ident(fname, "field", fname)
			if !ValidFieldTypes[fd.Type] {
				add(ErrUnknownFieldType, name, fname, "unknown type %q", fd.Type)
			}
		}

		for _, rname := range sortedKeys(def.Relations) {
			rd := def.Relations[rname]
			ident(rname, "relation", rname)
			if _, clash := def.Fields[rname]; clash {
				add(ErrDuplicateName, name, rname, "name is both a field and a relation")
			}
			if rname == def.Name || rname == def.Table {
				add(ErrDuplicateName, name, rname, "relation shadows the entity's own prefix")
			}

			target, ok := byName[rd.Entity]
			if !ok {
				add(ErrUnknownEntity, name, rname, "unknown entity %q", rd.Entity)
				continue
			}

			for _, key := range []struct{ what, v string }{
				{"foreign key", rd.ForeignKey},
				{"owner key", rd.OwnerKey},
				{"local key", rd.LocalKey},
			} {
				if key.v != "" {
					ident(rname, key.what, key.v)
				}
			}

			switch rd.Kind {
			case ManyToMany:
				if rd.Junction == nil {
					add(ErrMissingKey, name, rname, "many_to_many relation needs a junction")
				} else {
					ident(rname, "junction table", rd.Junction.Table)
					ident(rname, "junction local key", rd.Junction.LocalKey)
					ident(rname, "junction foreign key", rd.Junction.ForeignKey)
				}
			case BelongsTo, HasMany:
				if rd.ForeignKey == "" {
					add(ErrMissingKey, name, rname, "%s relation needs a foreign_key", rd.Kind)
				}
			}

			for _, f := range rd.Fields {
				if _, ok := target.Fields[f]; !ok {
					add(ErrInvalidNarrowing, name, rname, "entity %q has no field %q", target.Name, f)
				}
			}
		}
	}

	return result.ErrorOrNil()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
