package query

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"ecomdash/internal/cache"
	applog "ecomdash/internal/log"
	"ecomdash/internal/metrics"
)

// Entry is what the result cache stores per rendered query.
type Entry struct {
	Query  string    `msgpack:"query"`
	Result ResultSet `msgpack:"result"`
}

// CachedExecutor serves repeated queries from a cache. Only successful results
// are stored; identical concurrent misses share one execution.
type CachedExecutor struct {
	next  Executor
	cache cache.Cache[Entry]
	group singleflight.Group
}

func NewCachedExecutor(next Executor, c cache.Cache[Entry]) *CachedExecutor {
	return &CachedExecutor{next: next, cache: c}
}

// Execute returns the cached result for q or runs it. On failure it returns an
// empty ResultSet and an error wrapping ErrNoData.
func (c *CachedExecutor) Execute(ctx context.Context, q Query) (ResultSet, error) {
	rendered := q.Rendered()
	key := CacheKey(q)

	if e, ok := c.cache.Get(key); ok && e.Query == rendered {
		metrics.RecordCacheHit(q.Name)
		slog.DebugContext(ctx, "Query served from cache",
			applog.FieldComponent, applog.ComponentCache,
			applog.FieldAggregate, q.Name,
			applog.FieldCacheKey, key)
		return e.Result.Clone(), nil
	}
	metrics.RecordCacheMiss(q.Name)

	// The shared execution outlives any single caller; the executor's own
	// timeout bounds it. Each caller still stops waiting when its ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		rs, err := c.next.Execute(shared, q)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, Entry{Query: rendered, Result: rs})
		return rs, nil
	})

	select {
	case <-ctx.Done():
		return ResultSet{}, fmt.Errorf("%w: %w", ErrNoData, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return ResultSet{}, fmt.Errorf("%w: %w", ErrNoData, res.Err)
		}
		return res.Val.(ResultSet).Clone(), nil
	}
}

// Purge drops every cached result.
func (c *CachedExecutor) Purge() {
	c.cache.Purge()
}

func (c *CachedExecutor) Size() int {
	return c.cache.Size()
}
