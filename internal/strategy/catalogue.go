package strategy

import (
	"slices"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
)

// AnyTerm is the wildcard pattern matching every term of a field.
const AnyTerm = "*"

// Strategy names. IS NULL and IS NOT NULL share the existence-based names:
// an IS NULL strategy is the anchored complement of the IS NOT NULL
// strategy of the same name.
const (
	ExistsAndNotTerm        = "EXISTS_AND_NOT_TERM"
	RangeExclusion          = "RANGE_EXCLUSION"
	WildcardAndNotTerm      = "WILDCARD_AND_NOT_TERM"
	DocValuesAndNotTerm     = "DOC_VALUES_AND_NOT_TERM"
	DocValuesRangeExclusion = "DOC_VALUES_RANGE_EXCLUSION"

	FullRange       = "FULL_RANGE"
	DocValuesExists = "DOC_VALUES_EXISTS"
	WildcardMatch   = "WILDCARD"
	FieldExists     = "FIELD_EXISTS"
	NotNullMarker   = "NOT_NULL_MARKER"
	NullMarker      = "NULL_MARKER"
)

// Catalogue maps operator and name to a strategy. It is built once and
// never modified.
type Catalogue struct {
	byOp  map[Operator][]Strategy
	index map[Operator]map[string]int
}

// NewCatalogue builds a catalogue from strategies. Names must be unique per
// operator; declaration order is kept.
func NewCatalogue(strategies ...Strategy) (*Catalogue, error) {
	c := &Catalogue{
		byOp:  make(map[Operator][]Strategy),
		index: make(map[Operator]map[string]int),
	}
	for _, s := range strategies {
		if s.Name == "" || s.build == nil {
			return nil, errs.Configuration("register strategy", "", "strategy %q is incomplete", s.Key())
		}
		if c.index[s.Operator] == nil {
			c.index[s.Operator] = make(map[string]int)
		}
		if _, dup := c.index[s.Operator][s.Name]; dup {
			return nil, errs.Configuration("register strategy", "", "duplicate strategy %s", s.Key())
		}
		c.index[s.Operator][s.Name] = len(c.byOp[s.Operator])
		c.byOp[s.Operator] = append(c.byOp[s.Operator], s)
	}
	return c, nil
}

// Lookup returns the named strategy for an operator.
func (c *Catalogue) Lookup(op Operator, name string) (Strategy, error) {
	i, ok := c.index[op][name]
	if !ok {
		return Strategy{}, errs.Configuration("lookup strategy", "", "unknown strategy %s/%s (known: %v)", op, name, c.Names(op))
	}
	return c.byOp[op][i], nil
}

// Names returns the strategy names of an operator in declaration order.
func (c *Catalogue) Names(op Operator) []string {
	names := make([]string, len(c.byOp[op]))
	for i, s := range c.byOp[op] {
		names[i] = s.Name
	}
	return names
}

// All returns the strategies of an operator in declaration order.
func (c *Catalogue) All(op Operator) []Strategy {
	return slices.Clone(c.byOp[op])
}

// Applicable returns the strategies of op that can run against f, dropping
// doc-values strategies for fields without doc values.
func (c *Catalogue) Applicable(op Operator, f field.Field) []Strategy {
	var out []Strategy
	for _, s := range c.byOp[op] {
		if s.NeedsDocValues && !f.Sortable {
			continue
		}
		out = append(out, s)
	}
	return out
}

var defaultCatalogue = mustCatalogue(builtins()...)

// Default returns the built-in catalogue.
func Default() *Catalogue {
	return defaultCatalogue
}

func mustCatalogue(strategies ...Strategy) *Catalogue {
	c, err := NewCatalogue(strategies...)
	if err != nil {
		panic(err)
	}
	return c
}

// existence describes one way to test that a field is present. IS NOT NULL
// uses it directly and IS NULL complements it.
type existence struct {
	name           string
	description    string
	needsDocValues bool
	expr           func(field string) queryir.Expr
}

var existences = []existence{
	{
		name:        FullRange,
		description: "unbounded range over the term dictionary",
		expr:        queryir.OpenRange,
	},
	{
		name:           DocValuesExists,
		description:    "presence of a doc value, bypassing the term dictionary",
		needsDocValues: true,
		expr:           queryir.DocValuesExists,
	},
	{
		name:        WildcardMatch,
		description: "wildcard matching any term",
		expr:        func(f string) queryir.Expr { return queryir.Wildcard(f, AnyTerm) },
	},
	{
		name:        FieldExists,
		description: "field-names existence index",
		expr:        queryir.Exists,
	},
}

func builtins() []Strategy {
	strategies := []Strategy{
		{
			Name:        ExistsAndNotTerm,
			Operator:    NotEqual,
			Description: "existence conjunction minus the term: exists(f) AND NOT f:v",
			build: func(f field.Field, v string) queryir.Expr {
				return queryir.And(queryir.Exists(f.Name), queryir.Not(queryir.Term(f.Name, v)))
			},
		},
		{
			Name:        RangeExclusion,
			Operator:    NotEqual,
			Description: "two half-open ranges around the value; ranges never match absent documents",
			build: func(f field.Field, v string) queryir.Expr {
				return queryir.Or(queryir.Below(f.Name, v), queryir.Above(f.Name, v))
			},
		},
		{
			Name:        WildcardAndNotTerm,
			Operator:    NotEqual,
			Description: "any-term wildcard minus the term",
			build: func(f field.Field, v string) queryir.Expr {
				return queryir.And(queryir.Wildcard(f.Name, AnyTerm), queryir.Not(queryir.Term(f.Name, v)))
			},
		},
		{
			Name:           DocValuesAndNotTerm,
			Operator:       NotEqual,
			Description:    "doc-values presence minus the term",
			NeedsDocValues: true,
			build: func(f field.Field, v string) queryir.Expr {
				return queryir.And(queryir.DocValuesExists(f.Name), queryir.Not(queryir.Term(f.Name, v)))
			},
		},
		{
			Name:           DocValuesRangeExclusion,
			Operator:       NotEqual,
			Description:    "two half-open doc-values ranges around the value",
			NeedsDocValues: true,
			build: func(f field.Field, v string) queryir.Expr {
				return queryir.Or(
					queryir.DocValuesRange(f.Name, nil, &queryir.Bound{Value: v}),
					queryir.DocValuesRange(f.Name, &queryir.Bound{Value: v}, nil),
				)
			},
		},
	}

	for _, e := range existences {
		strategies = append(strategies, Strategy{
			Name:           e.name,
			Operator:       IsNotNull,
			Description:    e.description,
			NeedsDocValues: e.needsDocValues,
			build: func(f field.Field, _ string) queryir.Expr {
				return e.expr(f.Name)
			},
		})
	}
	strategies = append(strategies, Strategy{
		Name:        NotNullMarker,
		Operator:    IsNotNull,
		Description: "all documents minus the recorded absence markers",
		build: func(f field.Field, _ string) queryir.Expr {
			return queryir.And(queryir.MatchAll(), queryir.Not(queryir.NullMarker(f.Name)))
		},
	})

	// No index stores an entry for an absent field, so IS NULL subtracts
	// presence from an explicit match-all. A bare NOT would match nothing.
	for _, e := range existences {
		strategies = append(strategies, Strategy{
			Name:           e.name,
			Operator:       IsNull,
			Description:    "all documents minus " + e.description,
			NeedsDocValues: e.needsDocValues,
			build: func(f field.Field, _ string) queryir.Expr {
				return queryir.And(queryir.MatchAll(), queryir.Not(e.expr(f.Name)))
			},
		})
	}
	strategies = append(strategies, Strategy{
		Name:        NullMarker,
		Operator:    IsNull,
		Description: "absence markers recorded at index time",
		build: func(f field.Field, _ string) queryir.Expr {
			return queryir.NullMarker(f.Name)
		},
	})

	return strategies
}
