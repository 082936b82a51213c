package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/quri/internal/schema"
)

// MaxRelationHops is how many relationships a field reference may cross.
// "tags.name" is one hop; "tags.owner.name" is rejected.
const MaxRelationHops = 1

// separator splits a relation prefix from the field it qualifies.
const separator = "."

// ResolvedField is a whitelisted field and its physical reference.
type ResolvedField struct {
	// Ref is the qualified reference used in constraints: "<primary>.<field>"
	// or "<relation>.<field>".
	Ref string

	// Relation is the relation prefix, empty for primary fields.
	Relation string

	// Field is the scalar whitelist entry.
	Field schema.Field

	// Relationship describes the join, nil for primary fields.
	Relationship *schema.Relationship
}

// ResolveField maps a logical field name to its physical reference under
// the whitelist fields of the entity stored as primary.
func ResolveField(name string, fields schema.FieldConfig, primary string) (ResolvedField, error) {
	return resolve(name, fields, primary, nil, false)
}

// resolve implements ResolveField. narrow optionally replaces a
// relationship's target whitelist. stripped records that the self prefix has
// already been removed, so "posts.posts.title" is looked up as a relation.
func resolve(name string, fields schema.FieldConfig, primary string, narrow schema.RelationWhitelister, stripped bool) (ResolvedField, error) {
	prefix, rest, qualified := strings.Cut(name, separator)
	if !qualified {
		f, ok := fields.Scalar(name)
		if !ok {
			return ResolvedField{}, &FilterError{
				Code:    ErrCodeFieldNotAllowed,
				Message: fmt.Sprintf("field %q is not filterable", name),
				Field:   name,
			}
		}
		return ResolvedField{Ref: primary + separator + name, Field: *f}, nil
	}

	if prefix == primary && !stripped {
		rf, err := resolve(rest, fields, primary, narrow, true)
		if err != nil {
			return ResolvedField{}, withField(err, name)
		}
		return rf, nil
	}

	rel, ok := fields.Relation(prefix)
	if !ok {
		return ResolvedField{}, &FilterError{
			Code:     ErrCodeRelationNotAllowed,
			Message:  fmt.Sprintf("relation %q is not filterable", prefix),
			Field:    name,
			Relation: prefix,
		}
	}

	if strings.Contains(rest, separator) {
		return ResolvedField{}, &FilterError{
			Code:     ErrCodeFieldNotAllowed,
			Message:  fmt.Sprintf("field %q crosses more than %d relation(s)", name, MaxRelationHops),
			Field:    name,
			Relation: prefix,
		}
	}

	target := rel.Fields
	if narrow != nil {
		if fc, ok := narrow.RelationFields(prefix); ok {
			target = fc
		}
	}

	f, ok := target.Scalar(rest)
	if !ok {
		return ResolvedField{}, &FilterError{
			Code:     ErrCodeFieldNotAllowed,
			Message:  fmt.Sprintf("field %q of relation %q is not filterable", rest, prefix),
			Field:    name,
			Relation: prefix,
		}
	}

	return ResolvedField{
		Ref:          prefix + separator + rest,
		Relation:     prefix,
		Field:        *f,
		Relationship: rel,
	}, nil
}

// withField rewrites the reported field to the name as the caller wrote it.
func withField(err error, name string) error {
	if fe, ok := err.(*FilterError); ok {
		copied := *fe
		copied.Field = name
		return &copied
	}
	return err
}
