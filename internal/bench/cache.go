package bench

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/nullbench/internal/index"
)

// BuildFunc opens or builds the index for one (doc count, null percent)
// pair.
type BuildFunc func(ctx context.Context, docCount int64, nullPercent int) (*index.Index, error)

type cacheKey struct {
	docCount    int64
	nullPercent int
}

// IndexCache keeps one open index per (doc count, null percent) so index
// construction happens once per run, never inside a measurement.
type IndexCache struct {
	mu     sync.Mutex
	build  BuildFunc
	open   map[cacheKey]*index.Index
	builds int
}

// NewIndexCache returns a cache backed by build.
func NewIndexCache(build BuildFunc) *IndexCache {
	return &IndexCache{build: build, open: map[cacheKey]*index.Index{}}
}

// Get returns the cached index, building it on first use.
func (c *IndexCache) Get(ctx context.Context, docCount int64, nullPercent int) (*index.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{docCount, nullPercent}
	if ix, ok := c.open[key]; ok {
		return ix, nil
	}
	ix, err := c.build(ctx, docCount, nullPercent)
	if err != nil {
		return nil, err
	}
	c.builds++
	c.open[key] = ix
	return ix, nil
}

// Builds returns how many indexes the cache has opened.
func (c *IndexCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

// Close closes every cached index.
func (c *IndexCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errList []error
	for key, ix := range c.open {
		if err := ix.Close(); err != nil {
			errList = append(errList, err)
		}
		delete(c.open, key)
	}
	return errors.Join(errList...)
}
