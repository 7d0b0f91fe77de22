package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
)

// Writer adds documents to an index inside a single transaction.
// A Writer is not safe for concurrent use.
type Writer struct {
	tx     *sql.Tx
	fields []field.Field
	known  map[string]bool

	insertDoc     *sql.Stmt
	insertPosting *sql.Stmt
	insertName    *sql.Stmt
	insertValue   *sql.Stmt
	insertMarker  *sql.Stmt
	insertStored  *sql.Stmt

	added int64
	done  bool
}

// NewWriter begins a write transaction.
func (ix *Index) NewWriter(ctx context.Context) (*Writer, error) {
	if ix.db == nil {
		return nil, errs.EngineUnavailable("open writer", errors.New("index is closed"))
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.EngineUnavailable("open writer", err)
	}

	w := &Writer{
		tx:     tx,
		fields: ix.fields.Fields(),
		known:  make(map[string]bool, ix.fields.Len()),
	}
	for _, f := range w.fields {
		w.known[f.Name] = true
	}

	stmts := []struct {
		dst **sql.Stmt
		sql string
	}{
		{&w.insertDoc, "INSERT INTO docs (doc_id) VALUES (?)"},
		{&w.insertPosting, "INSERT OR IGNORE INTO postings (field, term, doc_id) VALUES (?, ?, ?)"},
		{&w.insertName, "INSERT INTO field_names (field, doc_id) VALUES (?, ?)"},
		{&w.insertValue, "INSERT INTO doc_values (field, doc_id, value) VALUES (?, ?, ?)"},
		{&w.insertMarker, "INSERT INTO null_markers (field, doc_id) VALUES (?, ?)"},
		{&w.insertStored, "INSERT INTO stored_fields (doc_id, field, value) VALUES (?, ?, ?)"},
	}
	for _, s := range stmts {
		stmt, err := tx.PrepareContext(ctx, s.sql)
		if err != nil {
			_ = tx.Rollback()
			return nil, errs.EngineUnavailable("prepare writer", err)
		}
		*s.dst = stmt
	}
	return w, nil
}

// AddDocument indexes one document. Every catalogued field the document
// omits gets a null marker; fields outside the catalogue are rejected.
func (w *Writer) AddDocument(ctx context.Context, doc Document) error {
	if w.done {
		return fmt.Errorf("add document: writer already finished")
	}
	for name := range doc.Fields {
		if !w.known[name] {
			return errs.Configuration("add document", name, "field is not in the index catalogue")
		}
	}

	if _, err := w.insertDoc.ExecContext(ctx, doc.ID); err != nil {
		return fmt.Errorf("insert document %d: %w", doc.ID, err)
	}

	for _, f := range w.fields {
		value, present := doc.Fields[f.Name]
		if !present {
			if _, err := w.insertMarker.ExecContext(ctx, f.Name, doc.ID); err != nil {
				return fmt.Errorf("insert null marker %s/%d: %w", f.Name, doc.ID, err)
			}
			continue
		}
		if _, err := w.insertPosting.ExecContext(ctx, f.Name, value, doc.ID); err != nil {
			return fmt.Errorf("insert posting %s/%d: %w", f.Name, doc.ID, err)
		}
		if _, err := w.insertName.ExecContext(ctx, f.Name, doc.ID); err != nil {
			return fmt.Errorf("insert field name %s/%d: %w", f.Name, doc.ID, err)
		}
		if f.Sortable {
			if _, err := w.insertValue.ExecContext(ctx, f.Name, doc.ID, value); err != nil {
				return fmt.Errorf("insert doc value %s/%d: %w", f.Name, doc.ID, err)
			}
		}
		if _, err := w.insertStored.ExecContext(ctx, doc.ID, f.Name, value); err != nil {
			return fmt.Errorf("insert stored field %s/%d: %w", f.Name, doc.ID, err)
		}
	}
	w.added++
	return nil
}

// Added returns the number of documents added so far.
func (w *Writer) Added() int64 {
	return w.added
}

// Commit makes the added documents visible to new searchers.
func (w *Writer) Commit() error {
	if w.done {
		return fmt.Errorf("commit: writer already finished")
	}
	w.done = true
	w.closeStmts()
	if err := w.tx.Commit(); err != nil {
		return errs.EngineUnavailable("commit", err)
	}
	return nil
}

// Rollback discards the added documents. Safe to call after Commit, in
// which case it does nothing.
func (w *Writer) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	w.closeStmts()
	return w.tx.Rollback()
}

func (w *Writer) closeStmts() {
	for _, s := range []*sql.Stmt{
		w.insertDoc, w.insertPosting, w.insertName,
		w.insertValue, w.insertMarker, w.insertStored,
	} {
		if s != nil {
			s.Close()
		}
	}
}
