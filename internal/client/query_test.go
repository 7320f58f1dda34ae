package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []QueryState[int]
}

func (r *recorder) observe(s QueryState[int]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.states))
	for i, s := range r.states {
		out[i] = s.Status
	}
	return out
}

func counter(n *atomic.Int32) Fetcher[int] {
	return func(context.Context) (int, error) {
		return int(n.Add(1)), nil
	}
}

func TestQueryCachesUntilInvalidated(t *testing.T) {
	c := NewQueryCache[int]()
	ctx := context.Background()
	var calls atomic.Int32

	s := c.Query(ctx, "k", counter(&calls))
	require.Equal(t, StatusSuccess, s.Status)
	require.Equal(t, 1, s.Data)

	s = c.Query(ctx, "k", counter(&calls))
	require.Equal(t, 1, s.Data)
	require.EqualValues(t, 1, calls.Load())

	// no observers: only marked stale
	require.NoError(t, c.Invalidate(ctx, "k"))
	require.True(t, c.Peek("k").Stale)
	require.EqualValues(t, 1, calls.Load())

	s = c.Query(ctx, "k", counter(&calls))
	require.Equal(t, 2, s.Data)
	require.False(t, s.Stale)
}

func TestQueryCoalescesConcurrentFetches(t *testing.T) {
	c := NewQueryCache[int]()
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls atomic.Int32

	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]QueryState[int], 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Query(context.Background(), "k", fetch)
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for _, s := range results {
		require.Equal(t, StatusSuccess, s.Status)
		require.Equal(t, 42, s.Data)
	}
}

func TestInvalidateRefetchesMountedQuery(t *testing.T) {
	c := NewQueryCache[int]()
	ctx := context.Background()
	var calls atomic.Int32
	rec := &recorder{}

	unsubscribe := c.Subscribe("k", rec.observe)
	c.Query(ctx, "k", counter(&calls))
	require.Equal(t, []Status{StatusLoading, StatusSuccess}, rec.statuses())

	require.NoError(t, c.Invalidate(ctx, "k"))
	require.EqualValues(t, 2, calls.Load())
	s := c.Peek("k")
	require.Equal(t, 2, s.Data)
	require.False(t, s.Stale)
	require.False(t, s.Fetching)
	require.Equal(t, []Status{StatusLoading, StatusSuccess, StatusSuccess, StatusSuccess}, rec.statuses())

	unsubscribe()
	require.NoError(t, c.Invalidate(ctx, "k"))
	require.EqualValues(t, 2, calls.Load())
	require.Len(t, rec.statuses(), 4)
}

func TestFailedRefetchKeepsData(t *testing.T) {
	c := NewQueryCache[int]()
	ctx := context.Background()
	boom := errors.New("boom")
	fail := false

	fetch := func(context.Context) (int, error) {
		if fail {
			return 0, boom
		}
		return 7, nil
	}

	defer c.Subscribe("k", func(QueryState[int]) {})()
	c.Query(ctx, "k", fetch)

	fail = true
	require.ErrorIs(t, c.Invalidate(ctx, "k"), boom)

	s := c.Peek("k")
	require.Equal(t, StatusError, s.Status)
	require.ErrorIs(t, s.Err, boom)
	require.Equal(t, 7, s.Data)
}

func TestInitialFetchError(t *testing.T) {
	c := NewQueryCache[int]()
	s := c.Query(context.Background(), "k", func(context.Context) (int, error) {
		return 0, errors.New("down")
	})
	require.Equal(t, StatusError, s.Status)
	require.EqualError(t, s.Err, "down")
	require.Equal(t, "error", s.Status.String())
	require.Equal(t, StatusIdle, c.Peek("other").Status)
}

func TestCancelledCallerLeavesSharedFetchRunning(t *testing.T) {
	c := NewQueryCache[int]()
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		select {
		case <-release:
			return 9, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	first := make(chan QueryState[int], 1)
	go func() { first <- c.Query(ctxA, "k", fetch) }()
	require.Eventually(t, func() bool { return c.Peek("k").Fetching }, time.Second, time.Millisecond)

	second := make(chan QueryState[int], 1)
	go func() { second <- c.Query(context.Background(), "k", fetch) }()

	cancelA()
	a := <-first
	require.ErrorIs(t, a.Err, context.Canceled)
	require.NotEqual(t, StatusError, c.Peek("k").Status)
	require.NoError(t, c.Peek("k").Err)

	close(release)
	b := <-second
	require.Equal(t, StatusSuccess, b.Status)
	require.Equal(t, 9, b.Data)
	require.NoError(t, b.Err)

	s := c.Peek("k")
	require.Equal(t, StatusSuccess, s.Status)
	require.Equal(t, 9, s.Data)
	require.EqualValues(t, 1, calls.Load())
}

func TestInvalidateDuringFetchKeepsResultStale(t *testing.T) {
	c := NewQueryCache[int]()
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(context.Context) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			<-release
		}
		return int(n), nil
	}

	done := make(chan QueryState[int], 1)
	go func() { done <- c.Query(context.Background(), "k", fetch) }()
	require.Eventually(t, func() bool { return c.Peek("k").Fetching }, time.Second, time.Millisecond)

	// no observers, so nothing is refetched yet
	require.NoError(t, c.Invalidate(context.Background(), "k"))
	close(release)
	require.True(t, (<-done).Stale)

	s := c.Query(context.Background(), "k", fetch)
	require.Equal(t, 2, s.Data)
	require.False(t, s.Stale)
}
