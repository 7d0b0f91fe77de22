package datagen

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"maps"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/index"
)

// DefaultBatchSize is the number of documents committed per transaction.
const DefaultBatchSize = 50_000

// Generator writes DocCount documents with ids 0..DocCount-1 into the index
// at Path. Each field's values come from its factory in Factories, keyed by
// field name.
type Generator struct {
	Path      string
	DocCount  int64
	Catalogue field.Catalogue
	Factories map[string]FieldFactory

	// Override rebuilds the index even when one exists at Path.
	Override bool

	// Seed makes generation reproducible.
	Seed uint64

	// Params describes how Factories produce values (kinds, lengths, null
	// percentages). They are recorded in the index with the doc count and
	// seed, and a reused index must have been built with the same values.
	Params map[string]string

	BatchSize int
	Logger    *slog.Logger
}

// CreateIndex returns the index at Path, building it first when it is
// missing or Override is set. A reused index must match DocCount, the field
// catalogue and the recorded generation parameters. The caller closes the
// returned index.
func (g *Generator) CreateIndex(ctx context.Context) (*index.Index, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	if index.Exists(g.Path) && !g.Override {
		logger.Info("reusing index", "path", g.Path)
		return g.reuse(ctx, logger)
	}

	if err := os.MkdirAll(filepath.Dir(g.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	if err := removeIndexFiles(g.Path); err != nil {
		return nil, err
	}

	partial := g.Path + ".partial"
	if err := removeIndexFiles(partial); err != nil {
		return nil, err
	}
	if err := g.build(ctx, partial, logger); err != nil {
		_ = removeIndexFiles(partial)
		return nil, err
	}
	if err := os.Rename(partial, g.Path); err != nil {
		_ = removeIndexFiles(partial)
		return nil, fmt.Errorf("publish index: %w", err)
	}
	return index.Open(g.Path, index.WithLogger(logger))
}

func (g *Generator) validate() error {
	if g.Path == "" {
		return errs.Configuration("generate index", "", "index path is required")
	}
	if g.DocCount <= 0 {
		return errs.Configuration("generate index", "", "doc count must be positive, got %d", g.DocCount)
	}
	if g.Catalogue.Len() == 0 {
		return errs.Configuration("generate index", "", "field catalogue is empty")
	}
	for _, f := range g.Catalogue.Fields() {
		if g.Factories[f.Name] == nil {
			return errs.Configuration("generate index", f.Name, "no value factory for field")
		}
	}
	return nil
}

func (g *Generator) reuse(ctx context.Context, logger *slog.Logger) (*index.Index, error) {
	ix, err := index.Open(g.Path, index.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	n, err := ix.DocCount(ctx)
	if err != nil {
		ix.Close()
		return nil, err
	}
	if n != g.DocCount {
		ix.Close()
		return nil, errs.Configuration("reuse index", "", "%s holds %d documents, want %d; rebuild with override", g.Path, n, g.DocCount)
	}
	if !slices.Equal(ix.Fields().Fields(), g.Catalogue.Fields()) {
		ix.Close()
		return nil, errs.Configuration("reuse index", "", "%s was built with fields %v, want %v; rebuild with override",
			g.Path, ix.Fields().IDs(), g.Catalogue.IDs())
	}
	recorded, err := ix.Meta(ctx)
	if err != nil {
		ix.Close()
		return nil, err
	}
	if diff := metaDiff(recorded, g.meta()); len(diff) > 0 {
		ix.Close()
		return nil, errs.Configuration("reuse index", "", "%s was built with different parameters (%s); rebuild with override",
			g.Path, strings.Join(diff, ", "))
	}
	return ix, nil
}

// Meta keys written by every generator.
const (
	MetaDocCount = "doc_count"
	MetaSeed     = "seed"
)

// meta returns the entries recorded in a generated index.
func (g *Generator) meta() map[string]string {
	m := make(map[string]string, len(g.Params)+2)
	maps.Copy(m, g.Params)
	m[MetaDocCount] = strconv.FormatInt(g.DocCount, 10)
	m[MetaSeed] = strconv.FormatUint(g.Seed, 10)
	return m
}

// metaDiff lists "key: got -> want" for every entry that differs.
func metaDiff(got, want map[string]string) []string {
	keys := slices.Sorted(maps.Keys(want))
	for k := range got {
		if _, ok := want[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var diff []string
	for _, k := range keys {
		g, gok := got[k]
		w, wok := want[k]
		if gok == wok && g == w {
			continue
		}
		if !gok {
			g = "<unset>"
		}
		if !wok {
			w = "<unset>"
		}
		diff = append(diff, fmt.Sprintf("%s: %s -> %s", k, g, w))
	}
	return diff
}

func (g *Generator) build(ctx context.Context, path string, logger *slog.Logger) (err error) {
	ix, err := index.Create(path, g.Catalogue, index.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ix.Close(); err == nil {
			err = cerr
		}
	}()

	batch := g.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	fields := g.Catalogue.Fields()
	rngs := make([]*rand.Rand, len(fields))
	for i, f := range fields {
		rngs[i] = rand.New(rand.NewPCG(g.Seed, fieldSeed(f.Name)))
	}

	if err := ix.SetMeta(ctx, g.meta()); err != nil {
		return err
	}

	logger.Info("generating index", "path", path, "docs", g.DocCount, "fields", len(fields))
	for start := int64(0); start < g.DocCount; start += int64(batch) {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+int64(batch), g.DocCount)
		if err := g.writeBatch(ctx, ix, fields, rngs, start, end); err != nil {
			return err
		}
		logger.Debug("committed batch", "docs", end, "of", g.DocCount)
	}
	return nil
}

func (g *Generator) writeBatch(ctx context.Context, ix *index.Index, fields []field.Field, rngs []*rand.Rand, start, end int64) error {
	w, err := ix.NewWriter(ctx)
	if err != nil {
		return err
	}
	defer w.Rollback()

	for id := start; id < end; id++ {
		doc := index.Document{ID: id, Fields: make(map[string]string, len(fields))}
		for i, f := range fields {
			if v, ok := g.Factories[f.Name].Value(ValueContext{DocID: id, Rand: rngs[i]}); ok {
				doc.Fields[f.Name] = v
			}
		}
		if err := w.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("generate document %d: %w", id, err)
		}
	}
	return w.Commit()
}

func fieldSeed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// removeIndexFiles deletes an index file and its SQLite sidecars.
func removeIndexFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
