// Package harness runs filter conformance scenarios.
//
// A scenario compiles one filter against one entity and checks the outcome:
// the expected error code, or the constraint tree, joins, SQL and the rows
// the query returns from a fixture database.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: tags_or
//	description: "OR over one relation joins it once"
//	schema: ..                # CUE schema directory, relative to this file
//	fixtures: ../blog.sql     # SQL script for row checks
//	entity: posts
//	filter:
//	  connector: OR
//	  operations:
//	    - {field: tags.name, op: eq, value: go}
//	    - {field: tags.name, op: eq, value: sql}
//	expect:
//	  where: 'OR[tags.name = "go", tags.name = "sql"]'
//	  joins:
//	    - "LEFT JOIN post_tag AS tags_via ON ...; LEFT JOIN tags AS tags ON ..."
//	  rows: [1, 2, 5]
//
// expect.error names a filter error code (FIELD_NOT_ALLOWED, VALUE_ARITY,
// ...) and cannot be combined with the other expectations.
//
// # Isolation
//
// Every scenario that checks rows gets a fresh in-memory SQLite database
// loaded from its fixtures, so scenarios never observe each other.
//
// # Usage
//
//	scenarios, err := harness.LoadDir("testdata/blog/scenarios")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h := harness.New()
//	for _, s := range scenarios {
//	    result, err := h.Run(ctx, s)
//	    ...
//	}
package harness
