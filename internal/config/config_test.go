package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/searchmode"
	"github.com/roach88/nullbench/internal/strategy"
)

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, 10, p.NullPercent)
	assert.Equal(t, 10, p.TopK)
	assert.Equal(t, 0, p.Warmup)
	assert.Equal(t, 5, p.Iterations)
	assert.Equal(t, "1m", p.Timeout)
	assert.Equal(t, "indexes", p.IndexDir)
	assert.Equal(t, uint64(1), p.Seed)
	assert.False(t, p.Override)

	assert.Equal(t, DefaultDocCounts, p.Scales())
	assert.Equal(t, DefaultFields(), p.FieldSpecs())
	assert.Equal(t, 20, p.StringLength())

	ops, err := p.OperatorList()
	require.NoError(t, err)
	assert.Equal(t, strategy.Operators, ops)

	d, err := p.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	c, err := p.Catalogue()
	require.NoError(t, err)
	assert.Equal(t, field.DefaultCatalogue().Fields(), c.Fields())
}

func TestLoad_YAML(t *testing.T) {
	p, err := Load("testdata/small.yaml")
	require.NoError(t, err)

	assert.Equal(t, []int64{1000, 10000}, p.Scales())
	assert.Equal(t, 5, p.TopK)
	assert.Equal(t, 3, p.Iterations)
	assert.Equal(t, uint64(42), p.Seed)
	assert.Equal(t, "/tmp/nullbench", p.IndexDir)
	assert.Equal(t, 12, p.StringLength())

	specs := p.FieldSpecs()
	require.Len(t, specs, 2)
	assert.True(t, specs[0].Sortable, "sortable defaults to true")
	assert.Equal(t, 20, specs[1].Length)
	assert.Equal(t, 10, p.NullPercentFor(specs[0]))
	assert.Equal(t, 50, p.NullPercentFor(specs[1]))

	ops, err := p.OperatorList()
	require.NoError(t, err)
	assert.Equal(t, []strategy.Operator{strategy.NotEqual, strategy.IsNull}, ops)

	isNull, err := p.StrategiesFor(strategy.Default(), strategy.IsNull)
	require.NoError(t, err)
	require.Len(t, isNull, 2)
	assert.Equal(t, strategy.FieldExists, isNull[0].Name)
	assert.Equal(t, strategy.NullMarker, isNull[1].Name)

	notEqual, err := p.StrategiesFor(strategy.Default(), strategy.NotEqual)
	require.NoError(t, err)
	assert.Len(t, notEqual, len(strategy.Default().Names(strategy.NotEqual)))

	modes, err := p.ModeList(searchmode.Default())
	require.NoError(t, err)
	require.Len(t, modes, 2)
	assert.Equal(t, searchmode.TopKSorted, modes[1].Name)

	d, err := p.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	factories, err := p.Factories()
	require.NoError(t, err)
	assert.Len(t, factories, 2)
}

func TestLoad_CUE(t *testing.T) {
	p, err := Load("testdata/small.cue")
	require.NoError(t, err)

	assert.Equal(t, []int64{1000}, p.Scales())
	assert.Equal(t, 100, p.NullPercent)
	assert.Equal(t, 1, p.Warmup)
	assert.True(t, p.Override)
	assert.Equal(t, 5, p.Iterations)
}

func TestParse_EmptyYAML(t *testing.T) {
	p, err := Parse("empty.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestParse_Rejects(t *testing.T) {
	testCases := []struct {
		name string
		file string
		data string
		msg  string
	}{
		{"unknown key", "p.yaml", "topk: 5\n", "topk"},
		{"null percent out of range", "p.yaml", "nullPercent: 101\n", "nullPercent"},
		{"zero top k", "p.yaml", "topK: 0\n", "topK"},
		{"unknown operator", "p.yaml", "operators: [LIKE]\n", "operators"},
		{"unknown strategy", "p.yaml", "strategies:\n  IS_NULL: [TABLE_SCAN]\n", "TABLE_SCAN"},
		{"strategies for unplanned operator", "p.yaml", "operators: [IS_NULL]\nstrategies:\n  NOT_EQUAL: [RANGE_EXCLUSION]\n", "not a planned operator"},
		{"unknown mode", "p.yaml", "modes: [SCROLL]\n", "SCROLL"},
		{"bad timeout", "p.yaml", "timeout: soon\n", "timeout"},
		{"duplicate field", "p.cue", `fields: [{id: "A", name: "a", kind: "unique"}, {id: "A", name: "b", kind: "unique"}]`, "duplicate"},
		{"bad kind", "p.cue", `fields: [{id: "A", name: "a", kind: "gaussian"}]`, "kind"},
		{"malformed yaml", "p.yaml", "fields: [\n", "parse"},
		{"malformed cue", "p.cue", "topK: ", "p.cue"},
		{"unsupported format", "p.toml", "", "unsupported plan format"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.file, []byte(tc.data))
			require.Error(t, err)
			assert.True(t, errs.IsConfiguration(err), "got %v", err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
}

func TestLoad_WrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 2\nwarmup: 1\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Iterations)
	assert.Equal(t, 1, p.Warmup)
}

func TestValidate_Programmatic(t *testing.T) {
	p := Default()
	p.NullPercent = -1
	assert.Error(t, p.Validate())

	p = Default()
	p.Iterations = 0
	assert.True(t, errs.IsConfiguration(p.Validate()))

	p = Default()
	p.DocCounts = []int64{10, 0}
	assert.True(t, errs.IsConfiguration(p.Validate()))
}

func TestGenerationParams(t *testing.T) {
	p, err := Load("testdata/small.yaml")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"field.pk_str_field.kind":           "unique",
		"field.pk_str_field.length":         "12",
		"field.pk_str_field.null_percent":   "10",
		"field.bool_str_field.kind":         "alternating",
		"field.bool_str_field.length":       "20",
		"field.bool_str_field.null_percent": "50",
	}, p.GenerationParams())

	// The per-field override survives a plan-wide change; other fields follow it.
	p.NullPercent = 30
	params := p.GenerationParams()
	assert.Equal(t, "30", params["field.pk_str_field.null_percent"])
	assert.Equal(t, "50", params["field.bool_str_field.null_percent"])
}

func TestParse_SortReverse(t *testing.T) {
	p, err := Parse("plan.yaml", []byte("sortReverse: true\n"))
	require.NoError(t, err)
	assert.True(t, p.SortReverse)
	assert.False(t, Default().SortReverse)
}
