package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomdash/internal/cache"
	"ecomdash/internal/core"
)

func staticExecutor(rs ResultSet, err error) *countingExecutor {
	return &countingExecutor{next: ExecutorFunc(func(context.Context, Query) (ResultSet, error) {
		return rs.Clone(), err
	})}
}

func TestCachedExecutor_ServesRepeatsFromCache(t *testing.T) {
	inner := staticExecutor(ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(42)}}}, nil)
	c := NewCachedExecutor(inner, cache.NewLRUCache[Entry](16, time.Minute))
	q := NewBuilder(DefaultOptions()).TotalOrders(filterFor(core.RangeLast30Days, false))

	for i := 0; i < 3; i++ {
		rs, err := c.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, int64(42), rs.Int64(0, "n"))
	}
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, 1, c.Size())
}

func TestCachedExecutor_DistinctFiltersMiss(t *testing.T) {
	inner := staticExecutor(ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}, nil)
	c := NewCachedExecutor(inner, cache.NewLRUCache[Entry](16, time.Minute))
	b := NewBuilder(DefaultOptions())

	for _, r := range core.DateRanges() {
		_, err := c.Execute(context.Background(), b.TotalOrders(filterFor(r, false)))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4), inner.calls.Load())
}

func TestCachedExecutor_FailuresAreNotCached(t *testing.T) {
	boom := errors.New("no such table: orders")
	inner := staticExecutor(ResultSet{}, boom)
	c := NewCachedExecutor(inner, cache.NewLRUCache[Entry](16, time.Minute))
	q := NewBuilder(DefaultOptions()).TotalRevenue(filterFor(core.RangeAllTime, false))

	for i := 0; i < 2; i++ {
		rs, err := c.Execute(context.Background(), q)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoData)
		assert.ErrorIs(t, err, boom)
		assert.True(t, rs.Empty())
	}
	assert.Equal(t, int64(2), inner.calls.Load())
	assert.Equal(t, 0, c.Size())
}

func TestCachedExecutor_EmptyResultIsCached(t *testing.T) {
	inner := staticExecutor(ResultSet{Columns: []string{"month"}, Rows: [][]any{}}, nil)
	c := NewCachedExecutor(inner, cache.NewLRUCache[Entry](16, time.Minute))
	q := NewBuilder(DefaultOptions()).MonthlyTrend(filterFor(core.RangeAllTime, false))

	for i := 0; i < 2; i++ {
		rs, err := c.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.True(t, rs.Empty())
	}
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedExecutor_CallersCannotCorruptCache(t *testing.T) {
	inner := staticExecutor(ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(5)}}}, nil)
	c := NewCachedExecutor(inner, cache.NewLRUCache[Entry](16, time.Minute))
	q := NewBuilder(DefaultOptions()).TotalOrders(filterFor(core.RangeAllTime, false))

	rs, err := c.Execute(context.Background(), q)
	require.NoError(t, err)
	rs.Rows[0][0] = int64(-1)

	rs, err = c.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rs.Int64(0, "n"))
}

func TestCachedExecutor_RejectsKeyCollision(t *testing.T) {
	inner := staticExecutor(ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}, nil)
	store := cache.NewLRUCache[Entry](16, time.Minute)
	c := NewCachedExecutor(inner, store)
	q := NewBuilder(DefaultOptions()).TotalOrders(filterFor(core.RangeAllTime, false))

	store.Set(CacheKey(q), Entry{Query: "SELECT something else", Result: ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(99)}}}})

	rs, err := c.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rs.Int64(0, "n"))
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedExecutor_Purge(t *testing.T) {
	inner := staticExecutor(ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}, nil)
	c := NewCachedExecutor(inner, cache.NewLRUCache[Entry](16, time.Minute))
	q := NewBuilder(DefaultOptions()).TotalOrders(filterFor(core.RangeAllTime, false))

	_, _ = c.Execute(context.Background(), q)
	c.Purge()
	assert.Equal(t, 0, c.Size())

	_, _ = c.Execute(context.Background(), q)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedExecutor_CanceledCallerDoesNotFailSharedQuery(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	inner := &countingExecutor{next: ExecutorFunc(func(ctx context.Context, _ Query) (ResultSet, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(7)}}}, nil
		case <-ctx.Done():
			return ResultSet{}, ctx.Err()
		}
	})}
	c := NewCachedExecutor(inner, cache.NewLRUCache[Entry](16, time.Minute))
	q := NewBuilder(DefaultOptions()).TotalOrders(filterFor(core.RangeAllTime, false))

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Execute(leaderCtx, q)
		leaderErr <- err
	}()
	<-started

	type result struct {
		rs  ResultSet
		err error
	}
	follower := make(chan result, 1)
	go func() {
		rs, err := c.Execute(context.Background(), q)
		follower <- result{rs, err}
	}()
	// let the second caller join the in-flight execution
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	err := <-leaderErr
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	select {
	case res := <-follower:
		require.NoError(t, res.err)
		assert.Equal(t, int64(7), res.rs.Int64(0, "n"))
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, 1, c.Size())
}
