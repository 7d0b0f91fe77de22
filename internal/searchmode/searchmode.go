// Package searchmode is the search mode catalogue: named ways to execute an
// expression that vary retrieval cost but never the set of matching
// documents.
package searchmode

import (
	"context"
	"strings"

	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/index"
	"github.com/roach88/nullbench/internal/queryir"
)

// Mode names.
const (
	TopK            = "TOP_K"
	TopKSorted      = "TOP_K_SORTED"
	TopKTotal       = "TOP_K_TOTAL"
	TopKSortedTotal = "TOP_K_SORTED_TOTAL"
)

// Searcher executes one request. *index.Searcher satisfies it.
type Searcher interface {
	Search(ctx context.Context, e queryir.Expr, req index.Request) (*index.TopDocs, error)
}

// Mode is one way to execute an expression.
type Mode struct {
	Name string

	// Sorted modes order hits by the sort field; the others return them in
	// doc id order.
	Sorted bool

	// CountTotal modes report an exact total hit count.
	CountTotal bool
}

// NeedsSort reports whether Execute requires a sort spec.
func (m Mode) NeedsSort() bool {
	return m.Sorted
}

// Execute runs e and returns the top k hits. Unsorted modes ignore sort.
// The expression is passed through untouched.
func (m Mode) Execute(ctx context.Context, s Searcher, e queryir.Expr, sort *field.SortSpec, k int) (*index.TopDocs, error) {
	if k <= 0 {
		return nil, errs.Configuration("execute "+m.Name, "", "K must be positive, got %d", k)
	}
	req := index.Request{K: k, CountTotal: m.CountTotal}
	if m.Sorted {
		if sort == nil {
			return nil, errs.Configuration("execute "+m.Name, "", "sorted mode requires a sort field")
		}
		spec := *sort
		req.Sort = &spec
	}
	return s.Search(ctx, e, req)
}

// Catalogue is the closed set of search modes.
type Catalogue struct {
	modes []Mode
}

var defaultCatalogue = &Catalogue{modes: []Mode{
	{Name: TopK},
	{Name: TopKSorted, Sorted: true},
	{Name: TopKTotal, CountTotal: true},
	{Name: TopKSortedTotal, Sorted: true, CountTotal: true},
}}

// Default returns the built-in modes.
func Default() *Catalogue {
	return defaultCatalogue
}

// Lookup returns the named mode. Names match case-insensitively.
func (c *Catalogue) Lookup(name string) (Mode, error) {
	for _, m := range c.modes {
		if strings.EqualFold(m.Name, strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return Mode{}, errs.Configuration("lookup search mode", "", "unknown search mode %q (known: %v)", name, c.Names())
}

// Names returns the mode names in declaration order.
func (c *Catalogue) Names() []string {
	names := make([]string, len(c.modes))
	for i, m := range c.modes {
		names[i] = m.Name
	}
	return names
}

// All returns the modes in declaration order.
func (c *Catalogue) All() []Mode {
	out := make([]Mode, len(c.modes))
	copy(out, c.modes)
	return out
}
