// Package index is the search engine adapter: an on-disk inverted index of
// string fields stored in a single SQLite file, and the searchers that
// execute queryir expressions against it.
//
// # Layout
//
//   - docs: every document id, in insertion order
//   - postings: term dictionary and postings lists per field
//   - field_names: existence index (field present on document)
//   - doc_values: per-document column, sortable fields only
//   - null_markers: explicit absence markers per catalogued field
//   - stored_fields: values returned by document lookups
//
// # Resources
//
// An Index owns a connection pool. A Searcher holds one dedicated
// connection from that pool until Close; callers open a searcher per
// measurement and must close it on every exit path (see WithSearcher).
//
// # Errors
//
// Failures to open or read the index are returned as ENGINE_UNAVAILABLE
// errors wrapping the driver error. Misuse (invalid expressions, sorting on
// a field without doc values, K <= 0) returns CONFIGURATION errors.
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial layout
// 2 - meta table
const currentSchemaVersion = 2

// Connection parameters understood by go-sqlite3:
//   - WAL mode: searchers read while a writer commits
//   - synchronous=NORMAL: index builds are reproducible, so full fsync is unnecessary
//   - busy_timeout=5000: wait for locks up to 5 seconds
const dsnParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// Index is an open inverted index.
type Index struct {
	db     *sql.DB
	path   string
	fields field.Catalogue
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for index lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// Create creates a new, empty index at path for the given fields.
// Fails if a file already exists at path.
func Create(path string, fields field.Catalogue, opts ...Option) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create index: %s already exists", path)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, errs.EngineUnavailable("create index", err)
	}

	if err := applySchema(db, fields); err != nil {
		db.Close()
		return nil, errs.EngineUnavailable("create index", err)
	}

	ix := &Index{db: db, path: path, fields: fields, logger: slog.Default()}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger.Debug("index created", "path", path, "fields", fields.IDs())
	return ix, nil
}

// Open opens an existing index.
// A missing file, a non-database file or an unknown schema version all
// fail with ENGINE_UNAVAILABLE.
func Open(path string, opts ...Option) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.EngineUnavailable("open index", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, errs.EngineUnavailable("open index", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		db.Close()
		return nil, errs.EngineUnavailable("open index", err)
	}
	if version != currentSchemaVersion {
		db.Close()
		return nil, errs.EngineUnavailable("open index",
			fmt.Errorf("unrecognized index format version %d (want %d)", version, currentSchemaVersion))
	}

	fields, err := readFields(db)
	if err != nil {
		db.Close()
		return nil, errs.EngineUnavailable("open index", err)
	}

	ix := &Index{db: db, path: path, fields: fields, logger: slog.Default()}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger.Debug("index opened", "path", path, "fields", fields.IDs())
	return ix, nil
}

// Exists reports whether an index file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Close closes the index and its connection pool.
// Searchers must be closed first.
func (ix *Index) Close() error {
	if ix.db == nil {
		return nil
	}
	err := ix.db.Close()
	ix.db = nil
	return err
}

// Path returns the index file path.
func (ix *Index) Path() string {
	return ix.path
}

// Fields returns the catalogue the index was created with.
func (ix *Index) Fields() field.Catalogue {
	return ix.fields
}

// DocCount returns the number of documents in the index.
func (ix *Index) DocCount(ctx context.Context) (int64, error) {
	if ix.db == nil {
		return 0, errs.EngineUnavailable("count documents", errors.New("index is closed"))
	}
	var n int64
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM docs").Scan(&n); err != nil {
		return 0, errs.EngineUnavailable("count documents", err)
	}
	return n, nil
}

// SetMeta records metadata entries, replacing existing values for the
// same keys.
func (ix *Index) SetMeta(ctx context.Context, entries map[string]string) error {
	if ix.db == nil {
		return errs.EngineUnavailable("set meta", errors.New("index is closed"))
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.EngineUnavailable("set meta", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, k := range slices.Sorted(maps.Keys(entries)) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, entries[k]); err != nil {
			return errs.EngineUnavailable("set meta", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.EngineUnavailable("set meta", err)
	}
	return nil
}

// Meta returns every metadata entry.
func (ix *Index) Meta(ctx context.Context) (map[string]string, error) {
	if ix.db == nil {
		return nil, errs.EngineUnavailable("read meta", errors.New("index is closed"))
	}
	rows, err := ix.db.QueryContext(ctx, "SELECT key, value FROM meta ORDER BY key ASC")
	if err != nil {
		return nil, errs.EngineUnavailable("read meta", err)
	}
	defer rows.Close()

	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errs.EngineUnavailable("scan meta", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errs.EngineUnavailable("iterate meta", err)
	}
	return meta, nil
}

// OpenSearcher acquires a dedicated connection for searching.
// The caller must Close the searcher.
func (ix *Index) OpenSearcher(ctx context.Context) (*Searcher, error) {
	if ix.db == nil {
		return nil, errs.EngineUnavailable("open searcher", errors.New("index is closed"))
	}
	conn, err := ix.db.Conn(ctx)
	if err != nil {
		return nil, errs.EngineUnavailable("open searcher", err)
	}
	return newSearcher(conn, ix.fields), nil
}

// WithSearcher opens a searcher, runs fn and closes the searcher on every
// exit path. A close failure is reported only when fn succeeded.
func (ix *Index) WithSearcher(ctx context.Context, fn func(*Searcher) error) (err error) {
	s, err := ix.OpenSearcher(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = errs.EngineUnavailable("close searcher", closeErr)
		}
	}()
	return fn(s)
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?"+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// applySchema creates the tables and records the field catalogue.
func applySchema(db *sql.DB, fields field.Catalogue) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	for i, f := range fields.Fields() {
		if _, err := db.Exec(
			"INSERT INTO fields (field, id, sortable, position) VALUES (?, ?, ?, ?)",
			f.Name, f.ID, f.Sortable, i,
		); err != nil {
			return fmt.Errorf("record field %s: %w", f.Name, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func readFields(db *sql.DB) (field.Catalogue, error) {
	rows, err := db.Query("SELECT id, field, sortable FROM fields ORDER BY position ASC")
	if err != nil {
		return field.Catalogue{}, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	var fields []field.Field
	for rows.Next() {
		var f field.Field
		if err := rows.Scan(&f.ID, &f.Name, &f.Sortable); err != nil {
			return field.Catalogue{}, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return field.Catalogue{}, fmt.Errorf("iterate fields: %w", err)
	}
	return field.NewCatalogue(fields...)
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (ix *Index) verifyPragma(name, expected string) error {
	var value string
	if err := ix.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
