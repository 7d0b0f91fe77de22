package datagen

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
)

func vc(id int64) ValueContext {
	return ValueContext{DocID: id, Rand: rand.New(rand.NewPCG(1, uint64(id)))}
}

func TestRandomString(t *testing.T) {
	f := RandomString(20)
	seen := map[string]bool{}
	for id := int64(0); id < 200; id++ {
		v, ok := f.Value(vc(id))
		require.True(t, ok)
		assert.Len(t, v, 20)
		assert.Regexp(t, `^[A-Za-z0-9]+$`, v)
		seen[v] = true
	}
	assert.Len(t, seen, 200)
}

func TestAlternating(t *testing.T) {
	f := Bool()

	v, ok := f.Value(vc(0))
	assert.True(t, ok)
	assert.Equal(t, "TRUE", v)

	v, _ = f.Value(vc(7))
	assert.Equal(t, "FALSE", v)
}

func TestWithNulls_Boundaries(t *testing.T) {
	never := WithNulls(Bool(), 0)
	always := WithNulls(Bool(), 100)

	for id := int64(0); id < 100; id++ {
		_, ok := never.Value(vc(id))
		assert.True(t, ok)
		_, ok = always.Value(vc(id))
		assert.False(t, ok)
	}
}

func TestWithNulls_Fraction(t *testing.T) {
	f := WithNulls(Bool(), 10)
	r := rand.New(rand.NewPCG(42, 42))

	absent := 0
	for id := int64(0); id < 10_000; id++ {
		if _, ok := f.Value(ValueContext{DocID: id, Rand: r}); !ok {
			absent++
		}
	}
	assert.InDelta(t, 1000, absent, 150)
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory(KindUnique, 8)
	require.NoError(t, err)
	v, _ := f.Value(vc(1))
	assert.Len(t, v, 8)

	_, err = NewFactory(KindUnique, 0)
	assert.Error(t, err)
	_, err = NewFactory("gaussian", 8)
	assert.Error(t, err)
}

func TestPathBuilder(t *testing.T) {
	p := PathBuilder{Dir: "/tmp/idx", DocCount: 1_000_000, StringLength: 20, NullPercent: 10}
	assert.Equal(t, "/tmp/idx/sqlops_d1000000_l20_n10.idx", p.Build())

	p.Name = "custom"
	assert.Equal(t, "/tmp/idx/custom_d1000000_l20_n10.idx", p.Build())
}

var testCatalogue = field.MustCatalogue(
	field.Field{ID: field.PKString, Name: field.PKStringName, Sortable: true},
	field.Field{ID: field.BoolString, Name: field.BoolStringName, Sortable: true},
)

func newGenerator(t *testing.T, docs int64, nullPercent int) *Generator {
	t.Helper()
	return &Generator{
		Path:      filepath.Join(t.TempDir(), "gen.idx"),
		DocCount:  docs,
		Catalogue: testCatalogue,
		Factories: map[string]FieldFactory{
			field.PKStringName:   WithNulls(RandomString(20), nullPercent),
			field.BoolStringName: WithNulls(Bool(), nullPercent),
		},
		Seed:      7,
		BatchSize: 64,
	}
}

func TestCreateIndex_Build(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t, 500, 10)

	ix, err := g.CreateIndex(ctx)
	require.NoError(t, err)
	defer ix.Close()

	n, err := ix.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), n)
	assert.NoFileExists(t, g.Path+".partial")

	s, err := ix.OpenSearcher(ctx)
	require.NoError(t, err)
	defer s.Close()

	nulls, err := s.Count(ctx, queryir.NullMarker(field.BoolStringName))
	require.NoError(t, err)
	present, err := s.Count(ctx, queryir.Exists(field.BoolStringName))
	require.NoError(t, err)
	assert.Equal(t, int64(500), nulls+present)
	assert.InDelta(t, 50, nulls, 30)

	doc, err := s.Document(ctx, 0)
	require.NoError(t, err)
	if v, ok := doc.Fields[field.BoolStringName]; ok {
		assert.Equal(t, "TRUE", v)
	}
}

func TestCreateIndex_Reproducible(t *testing.T) {
	ctx := context.Background()
	read := func(g *Generator) map[string]string {
		ix, err := g.CreateIndex(ctx)
		require.NoError(t, err)
		defer ix.Close()
		s, err := ix.OpenSearcher(ctx)
		require.NoError(t, err)
		defer s.Close()
		doc, err := s.Document(ctx, 3)
		require.NoError(t, err)
		return doc.Fields
	}

	assert.Equal(t, read(newGenerator(t, 20, 0)), read(newGenerator(t, 20, 0)))
}

func TestCreateIndex_ReusesExisting(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t, 50, 0)
	pk := func() string {
		ix, err := g.CreateIndex(ctx)
		require.NoError(t, err)
		defer ix.Close()
		s, err := ix.OpenSearcher(ctx)
		require.NoError(t, err)
		defer s.Close()
		doc, err := s.Document(ctx, 1)
		require.NoError(t, err)
		return doc.Fields[field.PKStringName]
	}

	first := pk()
	assert.Equal(t, first, pk())

	// A rebuild with another seed produces different keys.
	g.Seed = 8
	g.Override = true
	assert.NotEqual(t, first, pk())
}

func TestCreateIndex_RecordsParams(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t, 20, 10)
	g.Params = map[string]string{"field.bool_str_field.null_percent": "10"}

	ix, err := g.CreateIndex(ctx)
	require.NoError(t, err)
	defer ix.Close()

	meta, err := ix.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"field.bool_str_field.null_percent": "10",
		MetaDocCount:                        "20",
		MetaSeed:                            "7",
	}, meta)
}

func TestCreateIndex_ReuseRejectsChangedParams(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(g *Generator)
		want   string
	}{
		{
			name: "per-field null percent",
			mutate: func(g *Generator) {
				g.Factories[field.BoolStringName] = WithNulls(Bool(), 100)
				g.Params["field.bool_str_field.null_percent"] = "100"
			},
			want: "field.bool_str_field.null_percent: 10 -> 100",
		},
		{
			name:   "seed",
			mutate: func(g *Generator) { g.Seed = 8 },
			want:   "seed: 7 -> 8",
		},
		{
			name:   "new parameter",
			mutate: func(g *Generator) { g.Params["field.pk_str_field.kind"] = "unique" },
			want:   "field.pk_str_field.kind: <unset> -> unique",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			g := newGenerator(t, 30, 10)
			g.Params = map[string]string{"field.bool_str_field.null_percent": "10"}
			ix, err := g.CreateIndex(ctx)
			require.NoError(t, err)
			require.NoError(t, ix.Close())

			tc.mutate(g)
			_, err = g.CreateIndex(ctx)
			require.Error(t, err)
			assert.True(t, errs.IsConfiguration(err))
			assert.Contains(t, err.Error(), tc.want)

			g.Override = true
			ix, err = g.CreateIndex(ctx)
			require.NoError(t, err)
			require.NoError(t, ix.Close())

			g.Override = false
			ix, err = g.CreateIndex(ctx)
			require.NoError(t, err, "rebuilt index is reusable with the new parameters")
			require.NoError(t, ix.Close())
		})
	}
}

func TestCreateIndex_AllNullAfterRebuild(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t, 40, 10)
	g.Params = map[string]string{"field.bool_str_field.null_percent": "10"}
	ix, err := g.CreateIndex(ctx)
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	g.Factories[field.BoolStringName] = WithNulls(Bool(), 100)
	g.Params["field.bool_str_field.null_percent"] = "100"
	g.Override = true
	ix, err = g.CreateIndex(ctx)
	require.NoError(t, err)
	defer ix.Close()

	s, err := ix.OpenSearcher(ctx)
	require.NoError(t, err)
	defer s.Close()
	present, err := s.Count(ctx, queryir.Exists(field.BoolStringName))
	require.NoError(t, err)
	assert.Zero(t, present)
}

func TestCreateIndex_ReuseMismatch(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t, 50, 0)
	ix, err := g.CreateIndex(ctx)
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	g.DocCount = 60
	_, err = g.CreateIndex(ctx)
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))

	g.Override = true
	ix, err = g.CreateIndex(ctx)
	require.NoError(t, err)
	defer ix.Close()
	n, err := ix.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(60), n)
}

func TestCreateIndex_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(g *Generator)
	}{
		{"no path", func(g *Generator) { g.Path = "" }},
		{"no docs", func(g *Generator) { g.DocCount = 0 }},
		{"missing factory", func(g *Generator) { delete(g.Factories, field.BoolStringName) }},
		{"empty catalogue", func(g *Generator) { g.Catalogue = field.Catalogue{} }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGenerator(t, 10, 0)
			tc.mutate(g)
			_, err := g.CreateIndex(context.Background())
			require.Error(t, err)
			assert.True(t, errs.IsConfiguration(err))
		})
	}
}

func TestCreateIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := newGenerator(t, 10, 0)

	_, err := g.CreateIndex(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, g.Path)
	assert.NoFileExists(t, g.Path+".partial")
}
