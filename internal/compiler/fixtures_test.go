package compiler

import (
	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/schema"
)

// postsFields is a hand-built whitelist for the "posts" entity.
func postsFields() schema.FieldConfig {
	fc := schema.Scalars(map[string]schema.FieldType{
		"a":     schema.TypeInt,
		"b":     schema.TypeInt,
		"c":     schema.TypeInt,
		"title": schema.TypeString,
		"views": schema.TypeInt,
		"flag":  schema.TypeBoolean,
	})
	fc["tags"] = schema.FieldSpec{Relation: &schema.Relationship{
		Name:        "tags",
		Target:      "tags",
		Table:       "tags",
		Fields:      schema.Scalars(map[string]schema.FieldType{"id": schema.TypeInt, "name": schema.TypeString, "hidden": schema.TypeBoolean}),
		Cardinality: schema.ManyToMany,
		Junction:    &schema.Junction{Table: "post_tag", LocalKey: "post_id", ForeignKey: "tag_id"},
	}}
	fc["author"] = schema.FieldSpec{Relation: &schema.Relationship{
		Name:        "author",
		Target:      "users",
		Table:       "users",
		Fields:      schema.Scalars(map[string]schema.FieldType{"id": schema.TypeInt, "name": schema.TypeString}),
		ForeignKey:  "author_id",
		Cardinality: schema.BelongsTo,
	}}
	fc["comments"] = schema.FieldSpec{Relation: &schema.Relationship{
		Name:        "comments",
		Target:      "comments",
		Table:       "comments",
		Fields:      schema.Scalars(map[string]schema.FieldType{"id": schema.TypeInt, "body": schema.TypeString}),
		ForeignKey:  "post_id",
		Cardinality: schema.HasMany,
	}}
	fc["attachments"] = schema.FieldSpec{Relation: &schema.Relationship{
		Name:        "attachments",
		Target:      "attachments",
		Table:       "attachments",
		Fields:      schema.Scalars(map[string]schema.FieldType{"path": schema.TypeString}),
		ForeignKey:  "attachable_id",
		Cardinality: "morph_many",
	}}
	return fc
}

type postsEntity struct{}

func (postsEntity) SearchableFields() schema.FieldConfig { return postsFields() }
func (postsEntity) PrimaryStorageName() string           { return "posts" }

func i(n int64) ir.IRValue  { return ir.IRInt(n) }
func s(v string) ir.IRValue { return ir.IRString(v) }
