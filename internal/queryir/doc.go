// Package queryir provides the query expressions the strategy catalogues
// build and the index adapter executes.
//
// An expression is an immutable tree of query primitives over an inverted
// index of string fields:
//
//	Term(field, value)            term dictionary lookup
//	Range(field, lower, upper)    term dictionary range scan
//	Exists(field)                 field-names existence index
//	Wildcard(field, pattern)      term dictionary pattern scan
//	DocValuesExists(field)        per-document column presence
//	DocValuesRange(field, ...)    per-document column range filter
//	NullMarker(field)             explicit absence marker
//	MatchAll()                    every document
//	Not(e), And(e...), Or(e...)   boolean combinators
//
// BOOLEAN SEMANTICS:
//
// Booleans follow inverted-index rules rather than predicate logic. Not only
// subtracts: a boolean whose clauses are all negations matches nothing, and a
// bare Not matches nothing. A complement therefore has to be anchored:
//
//	And(MatchAll(), Not(Exists(f)))   // documents without f
//	Not(Exists(f))                    // no documents
//
// SEALED INTERFACE:
//
// Expr is sealed with a marker method so the index compiler can switch over
// node types exhaustively. Nodes are plain values; constructors copy their
// inputs so a built expression is never shared with the caller's slices.
//
// IDENTITY:
//
// MarshalCanonical renders an expression as RFC 8785 canonical JSON and
// Fingerprint hashes that form. Two expressions with the same fingerprint are
// structurally equivalent.
package queryir
