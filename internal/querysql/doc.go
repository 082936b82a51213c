// Package querysql renders a queryir.Plan as parameterized SQL with
// Masterminds/squirrel.
//
// Every query:
//   - selects DISTINCT rows of the primary table, so one-to-many joins do
//     not duplicate results
//   - orders by the primary key for deterministic results
//   - carries every operand as a placeholder argument, never interpolated
//
// Identifiers (tables, aliases, columns) come from a validated plan and are
// emitted verbatim.
package querysql
