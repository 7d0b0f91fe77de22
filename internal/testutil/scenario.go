package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/index"
)

// ScenarioField is the single nullable field of the scenario index.
var ScenarioField = field.Field{ID: "F", Name: "f", Sortable: true}

// ScenarioFields is the catalogue of the scenario index.
var ScenarioFields = field.MustCatalogue(ScenarioField)

// Scenario describes a synthetic index: documents 1..Docs, field f absent
// on every document for which Absent returns true, and the present
// documents alternating between Even and Odd in doc id order.
type Scenario struct {
	Docs   int
	Absent func(id int64) bool
	Even   string
	Odd    string
}

// TenPercentNull is the 1,000-document scenario: f absent on ids divisible
// by 10, the 900 remaining documents alternate "X" and "Y", giving 450 of
// each.
func TenPercentNull() Scenario {
	return Scenario{
		Docs:   1000,
		Absent: func(id int64) bool { return id%10 == 0 },
		Even:   "X",
		Odd:    "Y",
	}
}

// AllNull is a scenario in which no document carries f.
func AllNull(docs int) Scenario {
	return Scenario{Docs: docs, Absent: func(int64) bool { return true }, Even: "X", Odd: "Y"}
}

// NoNull is a scenario in which every document carries f.
func NoNull(docs int) Scenario {
	return Scenario{Docs: docs, Absent: func(int64) bool { return false }, Even: "X", Odd: "Y"}
}

// Documents returns the scenario's documents.
func (s Scenario) Documents() []index.Document {
	docs := make([]index.Document, 0, s.Docs)
	present := 0
	for id := int64(1); id <= int64(s.Docs); id++ {
		d := index.Document{ID: id, Fields: map[string]string{}}
		if s.Absent == nil || !s.Absent(id) {
			v := s.Even
			if present%2 == 1 {
				v = s.Odd
			}
			d.Fields[ScenarioField.Name] = v
			present++
		}
		docs = append(docs, d)
	}
	return docs
}

// BuildIndex writes the scenario into a fresh index under t.TempDir(). The
// index is closed when the test ends.
func (s Scenario) BuildIndex(t testing.TB) *index.Index {
	t.Helper()
	return WriteIndex(t, ScenarioFields, s.Documents()...)
}

// WriteIndex writes docs into a fresh index with the given catalogue.
func WriteIndex(t testing.TB, fields field.Catalogue, docs ...index.Document) *index.Index {
	t.Helper()

	ix, err := index.Create(filepath.Join(t.TempDir(), "scenario.idx"), fields)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	ctx := context.Background()
	w, err := ix.NewWriter(ctx)
	require.NoError(t, err)
	for _, d := range docs {
		require.NoError(t, w.AddDocument(ctx, d))
	}
	require.NoError(t, w.Commit())
	return ix
}

// OpenSearcher opens a searcher that is closed when the test ends.
func OpenSearcher(t testing.TB, ix *index.Index) *index.Searcher {
	t.Helper()

	s, err := ix.OpenSearcher(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
