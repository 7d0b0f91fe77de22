package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
	"github.com/roach88/nullbench/internal/querysql"
)

// ErrDocumentNotFound is returned by Document for an unknown doc id.
var ErrDocumentNotFound = errors.New("document not found")

// Searcher executes expressions over one dedicated connection.
// A Searcher is used by one goroutine at a time and must be closed.
type Searcher struct {
	conn     *sql.Conn
	fields   field.Catalogue
	compiler *querysql.Compiler
	closed   bool
}

func newSearcher(conn *sql.Conn, fields field.Catalogue) *Searcher {
	return &Searcher{
		conn:     conn,
		fields:   fields,
		compiler: querysql.NewCompiler(),
	}
}

// Search returns the first req.K hits of e, optionally sorted, with a
// total-hit count that is exact when req.CountTotal is set or when fewer
// than K documents matched.
//
// The expression is only read, never modified, and the call has no side
// effect on the index, so repeating it returns the same result.
func (s *Searcher) Search(ctx context.Context, e queryir.Expr, req Request) (*TopDocs, error) {
	if err := s.checkOpen("search"); err != nil {
		return nil, err
	}
	if req.K <= 0 {
		return nil, errs.Configuration("search", "", "K must be positive, got %d", req.K)
	}
	if err := validate(e); err != nil {
		return nil, err
	}

	var (
		query  string
		params []any
		err    error
	)
	if req.Sort != nil {
		f, ok := s.fields.ByName(req.Sort.Field)
		if !ok {
			return nil, errs.Configuration("search", req.Sort.Field, "sort field is not in the index catalogue")
		}
		if !f.Sortable {
			return nil, errs.Configuration("search", req.Sort.Field, "sort field has no doc values")
		}
		query, params, err = s.compiler.CompileSortedTopK(e, *req.Sort, req.K)
	} else {
		query, params, err = s.compiler.CompileTopK(e, req.K)
	}
	if err != nil {
		return nil, errs.Configuration("search", "", "compile: %v", err)
	}

	hits, err := s.collect(ctx, query, params, req.K)
	if err != nil {
		return nil, err
	}

	total := TotalHits{Value: int64(len(hits)), Relation: EqualTo}
	if req.CountTotal {
		n, err := s.Count(ctx, e)
		if err != nil {
			return nil, err
		}
		total.Value = n
	} else if len(hits) == req.K {
		total.Relation = GreaterThanOrEqualTo
	}

	return &TopDocs{Hits: hits, Total: total}, nil
}

func (s *Searcher) collect(ctx context.Context, query string, params []any, k int) ([]Hit, error) {
	rows, err := s.conn.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errs.EngineUnavailable("search", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, min(k, 1024))
	for rows.Next() {
		var (
			h     Hit
			value sql.NullString
		)
		if err := rows.Scan(&h.DocID, &value); err != nil {
			return nil, errs.EngineUnavailable("scan hit", err)
		}
		if value.Valid {
			v := value.String
			h.SortValue = &v
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.EngineUnavailable("iterate hits", err)
	}
	return hits, nil
}

// Count returns the exact number of documents matching e.
func (s *Searcher) Count(ctx context.Context, e queryir.Expr) (int64, error) {
	if err := s.checkOpen("count"); err != nil {
		return 0, err
	}
	if err := validate(e); err != nil {
		return 0, err
	}
	query, params, err := s.compiler.CompileCount(e)
	if err != nil {
		return 0, errs.Configuration("count", "", "compile: %v", err)
	}
	var n int64
	if err := s.conn.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, errs.EngineUnavailable("count", err)
	}
	return n, nil
}

// DocIDs returns every document matching e in doc id order. Intended for
// verification, where the full match set is needed.
func (s *Searcher) DocIDs(ctx context.Context, e queryir.Expr) ([]int64, error) {
	if err := s.checkOpen("doc ids"); err != nil {
		return nil, err
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	set, params, err := s.compiler.CompileSet(e)
	if err != nil {
		return nil, errs.Configuration("doc ids", "", "compile: %v", err)
	}
	rows, err := s.conn.QueryContext(ctx, "SELECT doc_id FROM ("+set+") ORDER BY doc_id ASC", params...)
	if err != nil {
		return nil, errs.EngineUnavailable("doc ids", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errs.EngineUnavailable("scan doc id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.EngineUnavailable("iterate doc ids", err)
	}
	return ids, nil
}

// Document returns the stored fields of a document.
func (s *Searcher) Document(ctx context.Context, docID int64) (Document, error) {
	if err := s.checkOpen("document"); err != nil {
		return Document{}, err
	}

	var exists int
	err := s.conn.QueryRowContext(ctx, "SELECT 1 FROM docs WHERE doc_id = ?", docID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("document %d: %w", docID, ErrDocumentNotFound)
	}
	if err != nil {
		return Document{}, errs.EngineUnavailable("document", err)
	}

	rows, err := s.conn.QueryContext(ctx,
		"SELECT field, value FROM stored_fields WHERE doc_id = ? ORDER BY field ASC", docID)
	if err != nil {
		return Document{}, errs.EngineUnavailable("document", err)
	}
	defer rows.Close()

	doc := Document{ID: docID, Fields: map[string]string{}}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Document{}, errs.EngineUnavailable("scan stored field", err)
		}
		doc.Fields[name] = value
	}
	if err := rows.Err(); err != nil {
		return Document{}, errs.EngineUnavailable("iterate stored fields", err)
	}
	return doc, nil
}

// Close releases the searcher's connection. Safe to call more than once.
func (s *Searcher) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *Searcher) checkOpen(op string) error {
	if s.closed {
		return errs.EngineUnavailable(op, errors.New("searcher is closed"))
	}
	return nil
}

func validate(e queryir.Expr) error {
	result := queryir.Validate(e)
	if !result.Valid {
		return errs.Configuration("validate expression", "", "%s", strings.Join(result.Errors, "; "))
	}
	return nil
}
