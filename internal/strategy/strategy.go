// Package strategy is the query strategy catalogue: for each SQL operator
// over a nullable string field, a closed set of named, equivalent ways to
// express it as an index query.
//
// SQL three-valued logic drives every strategy:
//
//	field <> v       present AND value != v   (absent documents excluded)
//	field IS NOT NULL present
//	field IS NULL     absent
//
// Strategies of one operator match the same documents and differ only in
// how much work the index does to find them. Every Build is a pure function
// of (field, value); the catalogue holds no mutable state and is safe for
// concurrent use.
package strategy

import (
	"fmt"
	"strings"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
)

// Operator is a SQL predicate operator.
type Operator string

const (
	NotEqual  Operator = "NOT_EQUAL"
	IsNotNull Operator = "IS_NOT_NULL"
	IsNull    Operator = "IS_NULL"
)

// Operators lists the operators in benchmark order.
var Operators = []Operator{NotEqual, IsNotNull, IsNull}

// ParseOperator accepts the operator name case-insensitively, with either
// underscores or spaces ("is not null", "NOT_EQUAL", "<>", "!=").
func ParseOperator(s string) (Operator, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), "_"))
	switch norm {
	case "NOT_EQUAL", "<>", "!=":
		return NotEqual, nil
	case "IS_NOT_NULL":
		return IsNotNull, nil
	case "IS_NULL":
		return IsNull, nil
	}
	return "", errs.Configuration("parse operator", "", "unknown operator %q", s)
}

// NeedsValue reports whether the operator compares against a value.
func (o Operator) NeedsValue() bool {
	return o == NotEqual
}

// BuildFunc builds an expression for a field. value is empty for operators
// that take no comparison value.
type BuildFunc func(f field.Field, value string) queryir.Expr

// Strategy is one named way to evaluate an operator.
type Strategy struct {
	// Name identifies the strategy within its operator.
	Name string

	// Operator is the SQL operator the strategy evaluates.
	Operator Operator

	// Description says how the strategy finds its documents.
	Description string

	// NeedsDocValues means the strategy reads the doc-values column and
	// only applies to sortable fields.
	NeedsDocValues bool

	build BuildFunc
}

// New returns a strategy backed by build. The built-in strategies are in
// Default; New exists for catalogues assembled elsewhere.
func New(op Operator, name, description string, needsDocValues bool, build BuildFunc) Strategy {
	return Strategy{
		Name:           name,
		Operator:       op,
		Description:    description,
		NeedsDocValues: needsDocValues,
		build:          build,
	}
}

// Build returns the expression for (f, value). NOT EQUAL requires a value;
// the other operators reject one. Doc-values strategies reject fields
// without doc values.
func (s Strategy) Build(f field.Field, value *string) (queryir.Expr, error) {
	op := fmt.Sprintf("build %s/%s", s.Operator, s.Name)
	if f.Name == "" {
		return nil, errs.Configuration(op, "", "field name is required")
	}
	if s.NeedsDocValues && !f.Sortable {
		return nil, errs.Configuration(op, f.Name, "strategy reads doc values but the field has none")
	}

	switch {
	case s.Operator.NeedsValue() && value == nil:
		return nil, errs.Configuration(op, f.Name, "comparison value required")
	case !s.Operator.NeedsValue() && value != nil:
		return nil, errs.Configuration(op, f.Name, "operator takes no comparison value")
	}

	var v string
	if value != nil {
		v = *value
	}
	return s.build(f, v), nil
}

// Key returns "OPERATOR/NAME".
func (s Strategy) Key() string {
	return string(s.Operator) + "/" + s.Name
}
