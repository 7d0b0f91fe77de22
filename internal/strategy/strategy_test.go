package strategy

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
)

var (
	sortable   = field.Field{ID: "F", Name: "f", Sortable: true}
	unsortable = field.Field{ID: "G", Name: "g", Sortable: false}
)

func ptr(s string) *string { return &s }

// valueFor returns the comparison value an operator expects.
func valueFor(op Operator, v string) *string {
	if op.NeedsValue() {
		return ptr(v)
	}
	return nil
}

func TestParseOperator(t *testing.T) {
	testCases := []struct {
		in   string
		want Operator
	}{
		{"NOT_EQUAL", NotEqual},
		{"not equal", NotEqual},
		{"<>", NotEqual},
		{"!=", NotEqual},
		{"IS_NOT_NULL", IsNotNull},
		{"is not null", IsNotNull},
		{"  Is   Null ", IsNull},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseOperator(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseOperator("LIKE")
	assert.True(t, errs.IsConfiguration(err))
}

func TestDefault_Names(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{
		ExistsAndNotTerm, RangeExclusion, WildcardAndNotTerm,
		DocValuesAndNotTerm, DocValuesRangeExclusion,
	}, c.Names(NotEqual))
	assert.Equal(t, []string{
		FullRange, DocValuesExists, WildcardMatch, FieldExists, NotNullMarker,
	}, c.Names(IsNotNull))
	assert.Equal(t, []string{
		FullRange, DocValuesExists, WildcardMatch, FieldExists, NullMarker,
	}, c.Names(IsNull))
}

// TestDefault_Golden pins the canonical form of every built-in strategy.
func TestDefault_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, op := range Operators {
		var buf bytes.Buffer
		for _, s := range Default().All(op) {
			e, err := s.Build(sortable, valueFor(op, "X"))
			require.NoError(t, err)
			canonical, err := queryir.MarshalCanonical(e)
			require.NoError(t, err)
			fmt.Fprintf(&buf, "%s %s\n", s.Name, canonical)
		}
		g.Assert(t, string(op), buf.Bytes())
	}
}

func TestDefault_AllValid(t *testing.T) {
	for _, op := range Operators {
		for _, s := range Default().All(op) {
			t.Run(s.Key(), func(t *testing.T) {
				e, err := s.Build(sortable, valueFor(op, "X"))
				require.NoError(t, err)

				result := queryir.Validate(e)
				assert.True(t, result.Valid, "errors: %v", result.Errors)
				assert.Empty(t, result.Warnings, "IS NULL must be anchored, never a bare complement")
			})
		}
	}
}

func TestLookup(t *testing.T) {
	s, err := Default().Lookup(IsNull, NullMarker)
	require.NoError(t, err)
	assert.Equal(t, "IS_NULL/NULL_MARKER", s.Key())

	_, err = Default().Lookup(IsNull, NotNullMarker)
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "IS_NULL/NOT_NULL_MARKER")
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	c := Default()
	mustLookup := func(op Operator, name string) Strategy {
		s, err := c.Lookup(op, name)
		require.NoError(t, err)
		return s
	}

	testCases := []struct {
		name  string
		s     Strategy
		f     field.Field
		value *string
		msg   string
	}{
		{"not equal without value", mustLookup(NotEqual, ExistsAndNotTerm), sortable, nil, "comparison value required"},
		{"is null with value", mustLookup(IsNull, FieldExists), sortable, ptr("X"), "takes no comparison value"},
		{"doc values on unsortable field", mustLookup(IsNotNull, DocValuesExists), unsortable, nil, "has none"},
		{"empty field name", mustLookup(IsNull, FullRange), field.Field{}, nil, "field name is required"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := tc.s.Build(tc.f, tc.value)
			require.Error(t, err)
			assert.Nil(t, e)
			assert.True(t, errs.IsConfiguration(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestApplicable_DropsDocValuesForUnsortable(t *testing.T) {
	c := Default()

	assert.Len(t, c.Applicable(NotEqual, sortable), 5)

	var names []string
	for _, s := range c.Applicable(NotEqual, unsortable) {
		names = append(names, s.Name)
		_, err := s.Build(unsortable, ptr("X"))
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{ExistsAndNotTerm, RangeExclusion, WildcardAndNotTerm}, names)
}

func TestBuild_Idempotent(t *testing.T) {
	for _, op := range Operators {
		for _, s := range Default().All(op) {
			first, err := s.Build(sortable, valueFor(op, "X"))
			require.NoError(t, err)
			second, err := s.Build(sortable, valueFor(op, "X"))
			require.NoError(t, err)

			assert.Equal(t, first, second, s.Key())
			assert.Equal(t, queryir.MustFingerprint(first), queryir.MustFingerprint(second), s.Key())
		}
	}
}

func TestBuild_ValueDependence(t *testing.T) {
	ne, err := Default().Lookup(NotEqual, RangeExclusion)
	require.NoError(t, err)

	x, err := ne.Build(sortable, ptr("X"))
	require.NoError(t, err)
	y, err := ne.Build(sortable, ptr("Y"))
	require.NoError(t, err)

	assert.NotEqual(t, queryir.MustFingerprint(x), queryir.MustFingerprint(y))
}

func TestBuild_Concurrent(t *testing.T) {
	s, err := Default().Lookup(NotEqual, ExistsAndNotTerm)
	require.NoError(t, err)
	want := queryir.MustFingerprint(queryir.And(queryir.Exists("f"), queryir.Not(queryir.Term("f", "X"))))

	var wg sync.WaitGroup
	fps := make([]string, 32)
	for i := range fps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := s.Build(sortable, ptr("X"))
			if err == nil {
				fps[i] = queryir.MustFingerprint(e)
			}
		}()
	}
	wg.Wait()

	for _, fp := range fps {
		assert.Equal(t, want, fp)
	}
}

func TestNewCatalogue_RejectsDuplicates(t *testing.T) {
	s := Default().All(IsNull)[0]

	_, err := NewCatalogue(s, s)
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))

	_, err = NewCatalogue(Strategy{Name: "EMPTY", Operator: IsNull})
	assert.Error(t, err)
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := Default().All(NotEqual)
	all[0].Name = "MUTATED"

	assert.Equal(t, ExistsAndNotTerm, Default().All(NotEqual)[0].Name)
}

func TestNew(t *testing.T) {
	s := New(IsNull, "BARE_NOT", "", false, func(f field.Field, _ string) queryir.Expr {
		return queryir.Not(queryir.Exists(f.Name))
	})

	c, err := NewCatalogue(s)
	require.NoError(t, err)
	got, err := c.Lookup(IsNull, "BARE_NOT")
	require.NoError(t, err)

	e, err := got.Build(sortable, nil)
	require.NoError(t, err)
	assert.Equal(t, queryir.Not(queryir.Exists("f")), e)
}
