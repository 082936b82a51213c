// Package compiler turns a filter expression tree into a queryir constraint
// tree and the joins it needs.
//
// Four pieces, usable on their own or through a Compiler:
//
//   - MapOperator: operator token → queryir.Comparison, with arity checks
//   - ResolveField: logical name → physical reference, fail-closed whitelist
//   - SynthesizeJoins: one JoinSpec per relation the expression touches
//   - CompileExpression: recursive translation preserving group nesting
//
// Resolution rules:
//
//	title            → posts.title       (scalar of the primary entity)
//	posts.title      → posts.title       (self prefix stripped once)
//	tags.name        → tags.name         (scalar of a related entity)
//	tags.owner.name  → FIELD_NOT_ALLOWED (more than MaxRelationHops)
//
// Compilation is all-or-nothing: the first error aborts the call and no
// partial result is returned. A Compiler holds no mutable state after New
// and is safe for concurrent use.
package compiler
