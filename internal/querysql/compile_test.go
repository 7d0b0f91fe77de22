package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
)

func TestCompileSet_Primitives(t *testing.T) {
	compiler := NewCompiler()

	testCases := []struct {
		name   string
		expr   queryir.Expr
		sql    string
		params []any
	}{
		{
			name:   "term",
			expr:   queryir.Term("f", "X"),
			sql:    "SELECT doc_id FROM postings WHERE field = ? AND term = ?",
			params: []any{"f", "X"},
		},
		{
			name:   "open range",
			expr:   queryir.OpenRange("f"),
			sql:    "SELECT DISTINCT doc_id FROM postings WHERE field = ?",
			params: []any{"f"},
		},
		{
			name:   "exclusive upper",
			expr:   queryir.Below("f", "X"),
			sql:    "SELECT DISTINCT doc_id FROM postings WHERE field = ? AND term < ?",
			params: []any{"f", "X"},
		},
		{
			name:   "inclusive both",
			expr:   queryir.Range("f", &queryir.Bound{Value: "a", Inclusive: true}, &queryir.Bound{Value: "b", Inclusive: true}),
			sql:    "SELECT DISTINCT doc_id FROM postings WHERE field = ? AND term >= ? AND term <= ?",
			params: []any{"f", "a", "b"},
		},
		{
			name:   "exists",
			expr:   queryir.Exists("f"),
			sql:    "SELECT doc_id FROM field_names WHERE field = ?",
			params: []any{"f"},
		},
		{
			name:   "doc values exists",
			expr:   queryir.DocValuesExists("f"),
			sql:    "SELECT doc_id FROM doc_values WHERE field = ?",
			params: []any{"f"},
		},
		{
			name:   "doc values range",
			expr:   queryir.DocValuesRange("f", &queryir.Bound{Value: "X"}, nil),
			sql:    "SELECT doc_id FROM doc_values WHERE field = ? AND value > ?",
			params: []any{"f", "X"},
		},
		{
			name:   "wildcard",
			expr:   queryir.Wildcard("f", "a*"),
			sql:    "SELECT DISTINCT doc_id FROM postings WHERE field = ? AND term GLOB ?",
			params: []any{"f", "a*"},
		},
		{
			name:   "null marker",
			expr:   queryir.NullMarker("f"),
			sql:    "SELECT doc_id FROM null_markers WHERE field = ?",
			params: []any{"f"},
		},
		{
			name: "match all",
			expr: queryir.MatchAll(),
			sql:  "SELECT doc_id FROM docs",
		},
		{
			name: "bare not matches nothing",
			expr: queryir.Not(queryir.Exists("f")),
			sql:  "SELECT doc_id FROM docs WHERE 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := compiler.CompileSet(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, sql)
			assert.Equal(t, tc.params, params)
		})
	}
}

func TestCompileSet_Booleans(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.CompileSet(queryir.And(queryir.Exists("f"), queryir.Not(queryir.Term("f", "X"))))
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT doc_id FROM (SELECT doc_id FROM field_names WHERE field = ?)"+
			" EXCEPT SELECT doc_id FROM (SELECT doc_id FROM postings WHERE field = ? AND term = ?)",
		sql)
	assert.Equal(t, []any{"f", "f", "X"}, params)

	sql, params, err = compiler.CompileSet(queryir.Or(queryir.Below("f", "X"), queryir.Above("f", "X")))
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT doc_id FROM (SELECT DISTINCT doc_id FROM postings WHERE field = ? AND term < ?)"+
			" UNION SELECT doc_id FROM (SELECT DISTINCT doc_id FROM postings WHERE field = ? AND term > ?)",
		sql)
	assert.Equal(t, []any{"f", "X", "f", "X"}, params)

	sql, _, err = compiler.CompileSet(queryir.And(queryir.MatchAll(), queryir.Exists("g")))
	require.NoError(t, err)
	assert.Contains(t, sql, " INTERSECT ")
}

func TestCompileSet_PureNegativeBooleanIsEmpty(t *testing.T) {
	compiler := NewCompiler()

	for _, e := range []queryir.Expr{
		queryir.And(queryir.Not(queryir.Exists("f"))),
		queryir.Or(queryir.Not(queryir.Exists("f"))),
		queryir.And(),
	} {
		sql, params, err := compiler.CompileSet(e)
		require.NoError(t, err)
		assert.Equal(t, "SELECT doc_id FROM docs WHERE 0", sql)
		assert.Empty(t, params)
	}
}

func TestCompileSet_Errors(t *testing.T) {
	compiler := NewCompiler()

	_, _, err := compiler.CompileSet(nil)
	assert.Error(t, err)

	_, _, err = compiler.CompileSet(queryir.And(queryir.MatchAll(), queryir.Not(nil)))
	assert.Error(t, err)
}

func TestCompileTopK(t *testing.T) {
	sql, params, err := NewCompiler().CompileTopK(queryir.MatchAll(), 10)
	require.NoError(t, err)

	assert.Equal(t, "SELECT m.doc_id, NULL FROM (SELECT doc_id FROM docs) AS m ORDER BY m.doc_id ASC LIMIT ?", sql)
	assert.Equal(t, []any{10}, params)
}

func TestCompileSortedTopK(t *testing.T) {
	sql, params, err := NewCompiler().CompileSortedTopK(queryir.Exists("f"), field.SortSpec{Field: "f"}, 5)
	require.NoError(t, err)

	assert.Contains(t, sql, "LEFT JOIN doc_values AS dv ON dv.field = ? AND dv.doc_id = m.doc_id")
	assert.Contains(t, sql, "ORDER BY (dv.value IS NOT NULL) ASC, dv.value COLLATE BINARY ASC, m.doc_id ASC LIMIT ?")
	// Set params first, then the sort field, then K.
	assert.Equal(t, []any{"f", "f", 5}, params)

	sql, _, err = NewCompiler().CompileSortedTopK(queryir.Exists("f"), field.SortSpec{Field: "f", Reverse: true}, 5)
	require.NoError(t, err)
	assert.Contains(t, sql, "dv.value COLLATE BINARY DESC")
}

func TestCompileCount(t *testing.T) {
	sql, params, err := NewCompiler().CompileCount(queryir.Term("f", "X"))
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT doc_id FROM postings WHERE field = ? AND term = ?)", sql)
	assert.Equal(t, []any{"f", "X"}, params)
}

func TestWildcardToGlob(t *testing.T) {
	testCases := []struct {
		pattern string
		glob    string
	}{
		{"*", "*"},
		{"?*", "?*"},
		{"abc", "abc"},
		{`a\*b`, "a[*]b"},
		{`a\?`, "a[?]"},
		{"a[b]", "a[[]b]"},
		{`a\\b`, `a\b`},
		{`trailing\`, `trailing\`},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern, func(t *testing.T) {
			assert.Equal(t, tc.glob, WildcardToGlob(tc.pattern))
		})
	}
}
