// Package filter defines the parsed filter-expression tree the compiler
// consumes.
//
// The tokenizer/parser that turns a raw query string into this tree is an
// external collaborator. The compiler only depends on the Expression and
// Operation interfaces; Expr and Op are the concrete implementations used by
// the CLI, the harness and tests, decodable from YAML or JSON:
//
//	connector: AND
//	operations:
//	  - {field: title, op: like, values: ["%go%"]}
//	expressions:
//	  - connector: OR
//	    operations:
//	      - {field: tags.name, op: eq, value: foo}
//	      - {field: tags.name, op: eq, value: bar}
//
// A tree is acyclic by construction and is read-only once handed to the
// compiler.
package filter
