// Package schema declares which fields and relationships of an entity may be
// filtered on, and how related entities are joined.
//
// The whitelist is an allow-list: a field that is not enumerated in an
// entity's FieldConfig cannot be referenced by any filter. Schemas are
// written in CUE and loaded with LoadDir:
//
//	entity: posts: {
//		table:       "posts"
//		primary_key: "id"
//		fields: {
//			id:         "int"
//			title:      "string"
//			views:      {type: "int", check: "value >= 0"}
//		}
//		relations: {
//			tags: {
//				entity:   "tags"
//				kind:     "many_to_many"
//				junction: {table: "post_tag", local_key: "post_id", foreign_key: "tag_id"}
//				fields: ["name"]
//			}
//			author: {entity: "users", kind: "belongs_to", foreign_key: "author_id"}
//		}
//	}
//
// Every storage identifier (table, key, field) is checked against
// IdentifierPattern at load time, so names reaching SQL are never user input.
package schema
