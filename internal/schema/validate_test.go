package schema

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateClean(t *testing.T) {
	err := Validate([]EntityDef{
		{Name: "posts", Fields: map[string]FieldDef{"id": {Type: TypeInt}}},
	})
	assert.NoError(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		defs []EntityDef
		code string
	}{
		{
			name: "bad field identifier",
			defs: []EntityDef{{Name: "posts", Fields: map[string]FieldDef{"ti tle": {Type: TypeString}}}},
			code: ErrInvalidIdentifier,
		},
		{
			name: "bad primary key",
			defs: []EntityDef{{Name: "posts", PrimaryKey: "id)--", Fields: map[string]FieldDef{"id": {Type: TypeInt}}}},
			code: ErrInvalidIdentifier,
		},
		{
			name: "float type",
			defs: []EntityDef{{Name: "posts", Fields: map[string]FieldDef{"score": {Type: "float"}}}},
			code: ErrUnknownFieldType,
		},
		{
			name: "duplicate entity",
			defs: []EntityDef{
				{Name: "posts", Fields: map[string]FieldDef{"id": {Type: TypeInt}}},
				{Name: "posts", Fields: map[string]FieldDef{"id": {Type: TypeInt}}},
			},
			code: ErrDuplicateName,
		},
		{
			name: "field and relation clash",
			defs: []EntityDef{{
				Name:      "posts",
				Fields:    map[string]FieldDef{"author": {Type: TypeInt}},
				Relations: map[string]RelationDef{"author": {Entity: "posts", Kind: BelongsTo, ForeignKey: "author"}},
			}},
			code: ErrDuplicateName,
		},
		{
			name: "relation named like the entity",
			defs: []EntityDef{{
				Name:      "posts",
				Fields:    map[string]FieldDef{"id": {Type: TypeInt}},
				Relations: map[string]RelationDef{"posts": {Entity: "posts", Kind: HasMany, ForeignKey: "parent_id"}},
			}},
			code: ErrDuplicateName,
		},
		{
			name: "relation named like the table",
			defs: []EntityDef{{
				Name:      "articles",
				Table:     "posts",
				Fields:    map[string]FieldDef{"id": {Type: TypeInt}},
				Relations: map[string]RelationDef{"posts": {Entity: "articles", Kind: HasMany, ForeignKey: "parent_id"}},
			}},
			code: ErrDuplicateName,
		},
		{
			name: "belongs_to without foreign key",
			defs: []EntityDef{{
				Name:      "posts",
				Fields:    map[string]FieldDef{"id": {Type: TypeInt}},
				Relations: map[string]RelationDef{"parent": {Entity: "posts", Kind: BelongsTo}},
			}},
			code: ErrMissingKey,
		},
		{
			name: "junction identifier",
			defs: []EntityDef{{
				Name:   "posts",
				Fields: map[string]FieldDef{"id": {Type: TypeInt}},
				Relations: map[string]RelationDef{"related": {
					Entity:   "posts",
					Kind:     ManyToMany,
					Junction: &Junction{Table: "post post", LocalKey: "a", ForeignKey: "b"},
				}},
			}},
			code: ErrInvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.defs)
			require.Error(t, err)

			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			var codes []string
			for _, e := range merr.Errors {
				codes = append(codes, e.(*ValidationError).Code)
			}
			assert.Contains(t, codes, tt.code)
		})
	}
}

func TestValidateAcceptsUnknownKinds(t *testing.T) {
	err := Validate([]EntityDef{{
		Name:      "posts",
		Fields:    map[string]FieldDef{"id": {Type: TypeInt}},
		Relations: map[string]RelationDef{"things": {Entity: "posts", Kind: "morph_many"}},
	}})
	assert.NoError(t, err)
}
