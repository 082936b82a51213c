// Package ir holds the literal vocabulary shared by every stage of the filter
// pipeline: operand values, boolean connectors, canonical JSON and content
// fingerprints.
//
// This package imports nothing internal. The filter tree, the schema, the
// compiled constraint tree and the store all speak in these types.
//
// Key design constraints:
//   - NO float literals. Numbers are int64; decimals must be quoted strings.
//   - IRNull is an explicit value so a sealed IRValue is never a Go nil.
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for fingerprints.
package ir
