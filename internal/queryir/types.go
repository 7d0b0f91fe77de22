package queryir

import (
	"slices"
	"strconv"
	"strings"
)

// Expr is a query expression.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Bound is one end of a range. A nil *Bound means the range is open on
// that side.
type Bound struct {
	Value     string
	Inclusive bool
}

// TermQuery matches documents with the exact term in the field.
type TermQuery struct {
	Field string
	Value string
}

func (TermQuery) exprNode() {}

// RangeQuery matches documents having at least one term for the field within
// the bounds, compared in binary order. Documents without the field never
// match, which is what lets range-based strategies skip an existence check.
type RangeQuery struct {
	Field string
	Lower *Bound
	Upper *Bound
}

func (RangeQuery) exprNode() {}

// ExistsQuery matches documents that index the field at all, via the
// field-names existence index.
type ExistsQuery struct {
	Field string
}

func (ExistsQuery) exprNode() {}

// DocValuesExistsQuery matches documents that carry a doc value for the
// field, bypassing the term dictionary.
type DocValuesExistsQuery struct {
	Field string
}

func (DocValuesExistsQuery) exprNode() {}

// DocValuesRangeQuery is RangeQuery evaluated over doc values instead of
// the term dictionary.
type DocValuesRangeQuery struct {
	Field string
	Lower *Bound
	Upper *Bound
}

func (DocValuesRangeQuery) exprNode() {}

// WildcardQuery matches terms against a pattern where '*' matches any run
// of characters, '?' matches exactly one, and '\' escapes the next character.
type WildcardQuery struct {
	Field   string
	Pattern string
}

func (WildcardQuery) exprNode() {}

// NullMarkerQuery matches documents recorded at index time as missing the
// field.
type NullMarkerQuery struct {
	Field string
}

func (NullMarkerQuery) exprNode() {}

// MatchAllQuery matches every document in the index.
type MatchAllQuery struct{}

func (MatchAllQuery) exprNode() {}

// NotQuery excludes the documents matched by Clause from its enclosing
// boolean. On its own it matches nothing.
type NotQuery struct {
	Clause Expr
}

func (NotQuery) exprNode() {}

// AndQuery intersects its positive clauses and subtracts its negated ones.
// With no positive clause it matches nothing.
type AndQuery struct {
	Clauses []Expr
}

func (AndQuery) exprNode() {}

// OrQuery unions its positive clauses and subtracts its negated ones.
// With no positive clause it matches nothing.
type OrQuery struct {
	Clauses []Expr
}

func (OrQuery) exprNode() {}

// Term builds a TermQuery.
func Term(field, value string) Expr {
	return TermQuery{Field: field, Value: value}
}

// Range builds a RangeQuery. Nil bounds are open.
func Range(field string, lower, upper *Bound) Expr {
	return RangeQuery{Field: field, Lower: copyBound(lower), Upper: copyBound(upper)}
}

// OpenRange builds a range unbounded on both sides: every document that has
// a term for the field.
func OpenRange(field string) Expr {
	return RangeQuery{Field: field}
}

// Below builds the range (-inf, value).
func Below(field, value string) Expr {
	return RangeQuery{Field: field, Upper: &Bound{Value: value}}
}

// Above builds the range (value, +inf).
func Above(field, value string) Expr {
	return RangeQuery{Field: field, Lower: &Bound{Value: value}}
}

// Exists builds an ExistsQuery.
func Exists(field string) Expr {
	return ExistsQuery{Field: field}
}

// DocValuesExists builds a DocValuesExistsQuery.
func DocValuesExists(field string) Expr {
	return DocValuesExistsQuery{Field: field}
}

// DocValuesRange builds a DocValuesRangeQuery. Nil bounds are open.
func DocValuesRange(field string, lower, upper *Bound) Expr {
	return DocValuesRangeQuery{Field: field, Lower: copyBound(lower), Upper: copyBound(upper)}
}

// Wildcard builds a WildcardQuery.
func Wildcard(field, pattern string) Expr {
	return WildcardQuery{Field: field, Pattern: pattern}
}

// NullMarker builds a NullMarkerQuery.
func NullMarker(field string) Expr {
	return NullMarkerQuery{Field: field}
}

// MatchAll builds a MatchAllQuery.
func MatchAll() Expr {
	return MatchAllQuery{}
}

// Not builds a NotQuery.
func Not(clause Expr) Expr {
	return NotQuery{Clause: clause}
}

// And builds an AndQuery. The clause slice is copied.
func And(clauses ...Expr) Expr {
	return AndQuery{Clauses: slices.Clone(clauses)}
}

// Or builds an OrQuery. The clause slice is copied.
func Or(clauses ...Expr) Expr {
	return OrQuery{Clauses: slices.Clone(clauses)}
}

func copyBound(b *Bound) *Bound {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// String renders an expression for logs and explain output.
//
//	(exists(f) AND NOT f:"X")
//	(f:{* TO "X"} OR f:{"X" TO *})
func String(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	switch q := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case TermQuery:
		b.WriteString(q.Field + ":" + strconv.Quote(q.Value))
	case RangeQuery:
		b.WriteString(q.Field + ":")
		writeRange(b, q.Lower, q.Upper)
	case ExistsQuery:
		b.WriteString("exists(" + q.Field + ")")
	case DocValuesExistsQuery:
		b.WriteString("docvalues_exists(" + q.Field + ")")
	case DocValuesRangeQuery:
		b.WriteString("docvalues(" + q.Field + ":")
		writeRange(b, q.Lower, q.Upper)
		b.WriteString(")")
	case WildcardQuery:
		b.WriteString("wildcard(" + q.Field + ", " + strconv.Quote(q.Pattern) + ")")
	case NullMarkerQuery:
		b.WriteString("null_marker(" + q.Field + ")")
	case MatchAllQuery:
		b.WriteString("*:*")
	case NotQuery:
		b.WriteString("NOT ")
		writeExpr(b, q.Clause)
	case AndQuery:
		writeBoolean(b, " AND ", q.Clauses)
	case OrQuery:
		writeBoolean(b, " OR ", q.Clauses)
	default:
		b.WriteString("<unknown>")
	}
}

func writeRange(b *strings.Builder, lower, upper *Bound) {
	if lower != nil && lower.Inclusive {
		b.WriteString("[")
	} else {
		b.WriteString("{")
	}
	if lower == nil {
		b.WriteString("*")
	} else {
		b.WriteString(strconv.Quote(lower.Value))
	}
	b.WriteString(" TO ")
	if upper == nil {
		b.WriteString("*")
	} else {
		b.WriteString(strconv.Quote(upper.Value))
	}
	if upper != nil && upper.Inclusive {
		b.WriteString("]")
	} else {
		b.WriteString("}")
	}
}

func writeBoolean(b *strings.Builder, sep string, clauses []Expr) {
	b.WriteString("(")
	for i, c := range clauses {
		if i > 0 {
			b.WriteString(sep)
		}
		writeExpr(b, c)
	}
	b.WriteString(")")
}
