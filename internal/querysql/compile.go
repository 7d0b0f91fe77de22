// Package querysql compiles query expressions into parameterized SQLite SQL
// over the index schema in internal/index.
//
// Every expression compiles to a SELECT producing one column, doc_id, with
// no duplicates. Booleans become compound selects:
//
//	And(a, b, Not(c))   ->  a INTERSECT b EXCEPT c
//	Or(a, b, Not(c))    ->  a UNION b EXCEPT c
//
// Compound operators in SQLite associate left to right, so subtractions
// always apply to the combined positive clauses.
//
// CRITICAL: field names and values are always bound as ? parameters, never
// interpolated.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
)

// emptySet selects no documents.
const emptySet = "SELECT doc_id FROM docs WHERE 0"

// Compiler compiles expressions to SQL. The zero value is ready to use and
// a Compiler holds no state between calls.
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// CompileSet compiles an expression into a doc-id set query.
// Returns (sql, params, error).
func (c *Compiler) CompileSet(e queryir.Expr) (string, []any, error) {
	switch q := e.(type) {
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil expression")
	case queryir.TermQuery:
		return "SELECT doc_id FROM postings WHERE field = ? AND term = ?",
			[]any{q.Field, q.Value}, nil
	case queryir.RangeQuery:
		where, params := rangeClause("term", q.Lower, q.Upper)
		return "SELECT DISTINCT doc_id FROM postings WHERE field = ?" + where,
			append([]any{q.Field}, params...), nil
	case queryir.ExistsQuery:
		return "SELECT doc_id FROM field_names WHERE field = ?", []any{q.Field}, nil
	case queryir.DocValuesExistsQuery:
		return "SELECT doc_id FROM doc_values WHERE field = ?", []any{q.Field}, nil
	case queryir.DocValuesRangeQuery:
		where, params := rangeClause("value", q.Lower, q.Upper)
		return "SELECT doc_id FROM doc_values WHERE field = ?" + where,
			append([]any{q.Field}, params...), nil
	case queryir.WildcardQuery:
		return "SELECT DISTINCT doc_id FROM postings WHERE field = ? AND term GLOB ?",
			[]any{q.Field, WildcardToGlob(q.Pattern)}, nil
	case queryir.NullMarkerQuery:
		return "SELECT doc_id FROM null_markers WHERE field = ?", []any{q.Field}, nil
	case queryir.MatchAllQuery:
		return "SELECT doc_id FROM docs", nil, nil
	case queryir.NotQuery:
		// A bare negation has nothing to subtract from.
		return emptySet, nil, nil
	case queryir.AndQuery:
		return c.compileBoolean(" INTERSECT ", q.Clauses)
	case queryir.OrQuery:
		return c.compileBoolean(" UNION ", q.Clauses)
	default:
		return "", nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

// compileBoolean combines positive clauses with op and subtracts negated
// clauses with EXCEPT. Without a positive clause the result is empty.
func (c *Compiler) compileBoolean(op string, clauses []queryir.Expr) (string, []any, error) {
	var positives, negatives []queryir.Expr
	for _, clause := range clauses {
		if not, ok := clause.(queryir.NotQuery); ok {
			negatives = append(negatives, not.Clause)
			continue
		}
		positives = append(positives, clause)
	}
	if len(positives) == 0 {
		return emptySet, nil, nil
	}

	var sb strings.Builder
	var params []any
	for i, p := range positives {
		sql, ps, err := c.CompileSet(p)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			sb.WriteString(op)
		}
		sb.WriteString("SELECT doc_id FROM (" + sql + ")")
		params = append(params, ps...)
	}
	for _, n := range negatives {
		sql, ps, err := c.CompileSet(n)
		if err != nil {
			return "", nil, fmt.Errorf("compile NOT clause: %w", err)
		}
		sb.WriteString(" EXCEPT SELECT doc_id FROM (" + sql + ")")
		params = append(params, ps...)
	}
	return sb.String(), params, nil
}

// CompileTopK wraps a set query in a first-K retrieval ordered by doc_id,
// the index's insertion order.
func (c *Compiler) CompileTopK(e queryir.Expr, k int) (string, []any, error) {
	set, params, err := c.CompileSet(e)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT m.doc_id, NULL FROM (" + set + ") AS m" +
		" ORDER BY m.doc_id ASC LIMIT ?"
	return sql, append(params, k), nil
}

// CompileSortedTopK wraps a set query in a first-K retrieval ordered by the
// sort field's doc values. Missing values sort first; Reverse flips both
// the value order and the missing placement. doc_id breaks ties.
func (c *Compiler) CompileSortedTopK(e queryir.Expr, sort field.SortSpec, k int) (string, []any, error) {
	set, params, err := c.CompileSet(e)
	if err != nil {
		return "", nil, err
	}
	dir := "ASC"
	if sort.Reverse {
		dir = "DESC"
	}
	sql := "SELECT m.doc_id, dv.value FROM (" + set + ") AS m" +
		" LEFT JOIN doc_values AS dv ON dv.field = ? AND dv.doc_id = m.doc_id" +
		" ORDER BY (dv.value IS NOT NULL) " + dir + ", dv.value COLLATE BINARY " + dir +
		", m.doc_id ASC LIMIT ?"
	params = append(params, sort.Field, k)
	return sql, params, nil
}

// CompileCount wraps a set query in a count of all matches.
func (c *Compiler) CompileCount(e queryir.Expr) (string, []any, error) {
	set, params, err := c.CompileSet(e)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM (" + set + ")", params, nil
}

// rangeClause renders the bound conditions of a range over column.
func rangeClause(column string, lower, upper *queryir.Bound) (string, []any) {
	var sb strings.Builder
	var params []any
	if lower != nil {
		op := ">"
		if lower.Inclusive {
			op = ">="
		}
		sb.WriteString(" AND " + column + " " + op + " ?")
		params = append(params, lower.Value)
	}
	if upper != nil {
		op := "<"
		if upper.Inclusive {
			op = "<="
		}
		sb.WriteString(" AND " + column + " " + op + " ?")
		params = append(params, upper.Value)
	}
	return sb.String(), params
}

// WildcardToGlob translates a wildcard pattern to a SQLite GLOB pattern.
// '*' and '?' keep their meaning; an escaped '*', '?' or '\' and any
// literal '[' become bracket classes so GLOB matches them literally.
func WildcardToGlob(pattern string) string {
	var sb strings.Builder
	escaped := false
	for _, r := range pattern {
		if escaped {
			writeGlobLiteral(&sb, r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '*', '?':
			sb.WriteRune(r)
		default:
			writeGlobLiteral(&sb, r)
		}
	}
	if escaped {
		// Trailing backslash matches itself.
		sb.WriteRune('\\')
	}
	return sb.String()
}

func writeGlobLiteral(sb *strings.Builder, r rune) {
	switch r {
	case '*', '?', '[':
		sb.WriteString("[" + string(r) + "]")
	default:
		sb.WriteRune(r)
	}
}
