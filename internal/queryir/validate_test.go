package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_WellFormed(t *testing.T) {
	exprs := []Expr{
		And(Exists("f"), Not(Term("f", "X"))),
		Or(Below("f", "X"), Above("f", "X")),
		And(MatchAll(), Not(OpenRange("f"))),
		NullMarker("f"),
		Wildcard("f", "*"),
		DocValuesRange("f", &Bound{Value: "a"}, &Bound{Value: "b"}),
	}

	for _, e := range exprs {
		t.Run(String(e), func(t *testing.T) {
			result := Validate(e)
			assert.True(t, result.Valid)
			assert.Empty(t, result.Errors)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		expr    Expr
		message string
	}{
		{"nil", nil, "nil expression"},
		{"empty field", Term("", "X"), "term query has an empty field name"},
		{"empty pattern", Wildcard("f", ""), `wildcard on "f" has an empty pattern`},
		{"nil clause", And(MatchAll(), nil), "nil expression"},
		{"nested empty field", And(MatchAll(), Not(Exists(""))), "exists query has an empty field name"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.expr)
			assert.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tc.message, result.Errors[0])
		})
	}
}

func TestValidate_UnanchoredComplementWarns(t *testing.T) {
	result := Validate(Not(Exists("f")))
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "bare NOT")

	result = Validate(And(Not(Exists("f"))))
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "AND without a positive clause")

	result = Validate(Or())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "OR without a positive clause")
}

func TestValidate_InvertedRangeWarns(t *testing.T) {
	result := Validate(Range("f", &Bound{Value: "b"}, &Bound{Value: "a"}))

	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "lower bound")
}
