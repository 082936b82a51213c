// Package queryir is the output vocabulary of the filter compiler: a
// constraint tree, the joins it needs, and a Plan bundling both.
//
//	[filter expression] → [compiler] → [Plan] → [querysql] → SQL + args
//
// The constraint tree is isomorphic to the input expression. A Group holds
// its connector and its items in order; nested groups are never flattened
// into their parent and items are never reordered. Every Constraint carries
// the connector of the group it sits in.
//
// Node is a sealed interface (marker method pattern), so backends can
// switch exhaustively:
//
//	switch n := node.(type) {
//	case Constraint:
//	    // emit comparison
//	case *Group:
//	    // open parenthesised group, recurse
//	}
//
// Joins are keyed by relation alias. The alias is the relation prefix used
// in constraint references ("tags.name"), so a backend emits
// "JOIN tags AS tags" and references resolve without rewriting.
//
// Literal values are ir.IRValue only. There are no floats, and null appears
// only as the operand of Equals or NotEquals.
package queryir
