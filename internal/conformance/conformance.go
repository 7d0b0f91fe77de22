// Package conformance checks strategy and search-mode result sets against
// SQL null semantics on a live index. A Violation is a correctness defect in
// a strategy, never an expected runtime condition.
package conformance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
	"github.com/roach88/nullbench/internal/searchmode"
	"github.com/roach88/nullbench/internal/strategy"
)

// Check names.
const (
	CheckEquivalence     = "equivalence"
	CheckNotEqualAbsent  = "not_equal_absent"
	CheckNotEqualValue   = "not_equal_value"
	CheckNotEqualMissing = "not_equal_missing"
	CheckUnion           = "null_union"
	CheckIntersection    = "null_intersection"
	CheckModeMembership  = "mode_membership"
)

// maxExamples bounds the doc ids quoted in a violation.
const maxExamples = 5

// Searcher is what the checks need from the engine: top-K search for the
// modes and full match sets for the set algebra.
type Searcher interface {
	searchmode.Searcher
	DocIDs(ctx context.Context, e queryir.Expr) ([]int64, error)
}

// Violation is one broken invariant.
type Violation struct {
	Check    string  `json:"check"`
	Field    string  `json:"field"`
	Operator string  `json:"operator,omitempty"`
	Strategy string  `json:"strategy,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Detail   string  `json:"detail"`
	Examples []int64 `json:"examples,omitempty"`
}

func (v Violation) String() string {
	s := fmt.Sprintf("%s field=%s", v.Check, v.Field)
	if v.Operator != "" {
		s += " op=" + v.Operator
	}
	if v.Strategy != "" {
		s += " strategy=" + v.Strategy
	}
	if v.Mode != "" {
		s += " mode=" + v.Mode
	}
	s += ": " + v.Detail
	if len(v.Examples) > 0 {
		s += fmt.Sprintf(" %v", v.Examples)
	}
	return s
}

// Checker runs the semantic checks.
type Checker struct {
	Strategies *strategy.Catalogue
	Modes      *searchmode.Catalogue
	Logger     *slog.Logger
}

// Check verifies every applicable strategy and mode for each field, using
// value as the NOT EQUAL comparison value. Engine errors abort the check and
// are returned as is.
func Check(ctx context.Context, s Searcher, fields []field.Field, value string) ([]Violation, error) {
	c := Checker{Strategies: strategy.Default(), Modes: searchmode.Default()}
	return c.Check(ctx, s, fields, value)
}

// Check runs the checks with the checker's catalogues.
func (c Checker) Check(ctx context.Context, s Searcher, fields []field.Field, value string) ([]Violation, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	all, err := s.DocIDs(ctx, queryir.MatchAll())
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, f := range fields {
		fv, err := c.checkField(ctx, s, f, value, all)
		if err != nil {
			return nil, err
		}
		logger.Debug("checked field", "field", f.Name, "docs", len(all), "violations", len(fv))
		violations = append(violations, fv...)
	}
	return violations, nil
}

// opSets holds the match set of each strategy of one operator.
type opSets struct {
	op    strategy.Operator
	names []string
	sets  map[string][]int64
	exprs map[string]queryir.Expr
}

// reference returns the first strategy's set, which every other strategy
// is compared against.
func (o opSets) reference() []int64 {
	if len(o.names) == 0 {
		return nil
	}
	return o.sets[o.names[0]]
}

func (c Checker) collect(ctx context.Context, s Searcher, f field.Field, op strategy.Operator, value string) (opSets, error) {
	out := opSets{op: op, sets: map[string][]int64{}, exprs: map[string]queryir.Expr{}}
	var v *string
	if op.NeedsValue() {
		v = &value
	}
	for _, st := range c.Strategies.Applicable(op, f) {
		e, err := st.Build(f, v)
		if err != nil {
			return opSets{}, err
		}
		ids, err := s.DocIDs(ctx, e)
		if err != nil {
			return opSets{}, err
		}
		out.names = append(out.names, st.Name)
		out.sets[st.Name] = ids
		out.exprs[st.Name] = e
	}
	return out, nil
}

func (c Checker) checkField(ctx context.Context, s Searcher, f field.Field, value string, all []int64) ([]Violation, error) {
	var violations []Violation
	bySet := map[strategy.Operator]opSets{}
	for _, op := range strategy.Operators {
		sets, err := c.collect(ctx, s, f, op, value)
		if err != nil {
			return nil, err
		}
		bySet[op] = sets
		violations = append(violations, equivalence(f, sets)...)
	}

	nulls := bySet[strategy.IsNull].reference()
	notNulls := bySet[strategy.IsNotNull].reference()

	if missing := difference(all, union(nulls, notNulls)); len(missing) > 0 {
		violations = append(violations, Violation{
			Check: CheckUnion, Field: f.Name,
			Detail:   fmt.Sprintf("%d documents in neither IS NULL nor IS NOT NULL", len(missing)),
			Examples: examples(missing),
		})
	}
	if both := intersection(nulls, notNulls); len(both) > 0 {
		violations = append(violations, Violation{
			Check: CheckIntersection, Field: f.Name,
			Detail:   fmt.Sprintf("%d documents in both IS NULL and IS NOT NULL", len(both)),
			Examples: examples(both),
		})
	}

	equal, err := s.DocIDs(ctx, queryir.Term(f.Name, value))
	if err != nil {
		return nil, err
	}
	ne := bySet[strategy.NotEqual]
	for _, name := range ne.names {
		ids := ne.sets[name]
		base := Violation{Field: f.Name, Operator: string(strategy.NotEqual), Strategy: name}
		if absent := difference(ids, notNulls); len(absent) > 0 {
			v := base
			v.Check = CheckNotEqualAbsent
			v.Detail = fmt.Sprintf("%d matched documents lack the field", len(absent))
			v.Examples = examples(absent)
			violations = append(violations, v)
		}
		if same := intersection(ids, equal); len(same) > 0 {
			v := base
			v.Check = CheckNotEqualValue
			v.Detail = fmt.Sprintf("%d matched documents hold %q", len(same), value)
			v.Examples = examples(same)
			violations = append(violations, v)
		}
		if missed := difference(difference(notNulls, equal), ids); len(missed) > 0 {
			v := base
			v.Check = CheckNotEqualMissing
			v.Detail = fmt.Sprintf("%d present documents with another value not matched", len(missed))
			v.Examples = examples(missed)
			violations = append(violations, v)
		}
	}

	for _, op := range strategy.Operators {
		mv, err := c.checkModes(ctx, s, f, bySet[op], len(all))
		if err != nil {
			return nil, err
		}
		violations = append(violations, mv...)
	}
	return violations, nil
}

func equivalence(f field.Field, sets opSets) []Violation {
	var violations []Violation
	ref := sets.reference()
	for _, name := range sets.names[min(1, len(sets.names)):] {
		ids := sets.sets[name]
		if slices.Equal(ref, ids) {
			continue
		}
		extra := difference(ids, ref)
		missing := difference(ref, ids)
		violations = append(violations, Violation{
			Check:    CheckEquivalence,
			Field:    f.Name,
			Operator: string(sets.op),
			Strategy: name,
			Detail: fmt.Sprintf("differs from %s: %d extra, %d missing",
				sets.names[0], len(extra), len(missing)),
			Examples: examples(append(extra, missing...)),
		})
	}
	return violations
}

// checkModes runs the operator's reference expression through every mode
// with K covering the whole index and compares the hit sets.
func (c Checker) checkModes(ctx context.Context, s Searcher, f field.Field, sets opSets, docs int) ([]Violation, error) {
	if len(sets.names) == 0 {
		return nil, nil
	}
	ref := sets.reference()
	e := sets.exprs[sets.names[0]]

	var sorts []*field.SortSpec
	if spec, err := f.Sort(); err == nil {
		reverse := spec
		reverse.Reverse = true
		sorts = []*field.SortSpec{&spec, &reverse}
	}

	var violations []Violation
	for _, m := range c.Modes.All() {
		runs := []*field.SortSpec{nil}
		if m.NeedsSort() {
			// Sorted modes are checked in both directions.
			runs = sorts
		}
		for _, sort := range runs {
			top, err := m.Execute(ctx, s, e, sort, max(docs, 1))
			if err != nil {
				return nil, err
			}
			ids := top.DocIDs()
			slices.Sort(ids)
			if slices.Equal(ref, ids) {
				continue
			}
			mode := m.Name
			if sort != nil {
				mode += " " + sort.String()
			}
			extra := difference(ids, ref)
			missing := difference(ref, ids)
			violations = append(violations, Violation{
				Check:    CheckModeMembership,
				Field:    f.Name,
				Operator: string(sets.op),
				Strategy: sets.names[0],
				Mode:     mode,
				Detail:   fmt.Sprintf("hit set differs from match set: %d extra, %d missing", len(extra), len(missing)),
				Examples: examples(append(extra, missing...)),
			})
		}
	}
	return violations, nil
}

// Set helpers over ascending doc id slices.

func union(a, b []int64) []int64 {
	out := make([]int64, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

func intersection(a, b []int64) []int64 {
	in := toSet(b)
	var out []int64
	for _, id := range a {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

func difference(a, b []int64) []int64 {
	in := toSet(b)
	var out []int64
	for _, id := range a {
		if !in[id] {
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func examples(ids []int64) []int64 {
	return slices.Clone(ids[:min(len(ids), maxExamples)])
}
