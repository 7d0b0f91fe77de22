package queryir

import (
	"fmt"
)

// ValidationResult contains the outcome of checking an expression.
type ValidationResult struct {
	// Valid is false when the expression cannot be executed at all.
	Valid bool

	// Errors lists the reasons the expression is invalid.
	Errors []string

	// Warnings lists constructs that execute but are probably mistakes,
	// such as an unanchored complement that matches nothing.
	Warnings []string
}

// Validate checks an expression before execution.
//
// Errors:
//  1. nil expressions or nil clauses
//  2. empty field names
//  3. empty wildcard patterns
//
// Warnings:
//  1. booleans with no positive clause (match nothing)
//  2. a bare Not (matches nothing)
//  3. ranges whose lower bound exceeds the upper bound (match nothing)
//
// Validate is a pure function with no side effects.
func Validate(e Expr) ValidationResult {
	v := &validator{
		errors:   []string{},
		warnings: []string{},
	}
	v.validate(e, true)

	return ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	errors   []string
	warnings []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validate recursively checks a node. top is true for the root and for
// clauses whose result set is used directly (not subtracted).
func (v *validator) validate(e Expr, top bool) {
	switch q := e.(type) {
	case nil:
		v.addError("nil expression")
	case TermQuery:
		v.requireField("term", q.Field)
	case RangeQuery:
		v.requireField("range", q.Field)
		v.checkBounds("range", q.Field, q.Lower, q.Upper)
	case ExistsQuery:
		v.requireField("exists", q.Field)
	case DocValuesExistsQuery:
		v.requireField("docvalues_exists", q.Field)
	case DocValuesRangeQuery:
		v.requireField("docvalues_range", q.Field)
		v.checkBounds("docvalues_range", q.Field, q.Lower, q.Upper)
	case WildcardQuery:
		v.requireField("wildcard", q.Field)
		if q.Pattern == "" {
			v.addError("wildcard on %q has an empty pattern", q.Field)
		}
	case NullMarkerQuery:
		v.requireField("null_marker", q.Field)
	case MatchAllQuery:
		// Always valid
	case NotQuery:
		if top {
			v.addWarning("bare NOT matches no documents; anchor it with MatchAll")
		}
		v.validate(q.Clause, false)
	case AndQuery:
		v.validateBoolean("AND", q.Clauses)
	case OrQuery:
		v.validateBoolean("OR", q.Clauses)
	default:
		v.addError("unknown expression type: %T", e)
	}
}

func (v *validator) validateBoolean(op string, clauses []Expr) {
	positive := 0
	for _, c := range clauses {
		if n, ok := c.(NotQuery); ok {
			v.validate(n.Clause, false)
			continue
		}
		positive++
		v.validate(c, false)
	}
	if positive == 0 {
		v.addWarning("%s without a positive clause matches no documents", op)
	}
}

func (v *validator) requireField(kind, field string) {
	if field == "" {
		v.addError("%s query has an empty field name", kind)
	}
}

func (v *validator) checkBounds(kind, field string, lower, upper *Bound) {
	if lower == nil || upper == nil {
		return
	}
	if lower.Value > upper.Value {
		v.addWarning("%s on %q has lower bound %q above upper bound %q", kind, field, lower.Value, upper.Value)
	}
}
