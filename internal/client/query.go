package client

import (
	"context"
	"sync"
	"time"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "idle"
	}
}

// QueryState is a snapshot of one cache entry. Data keeps the last
// successful result even when a later fetch fails.
type QueryState[T any] struct {
	Status    Status
	Data      T
	Err       error
	Stale     bool
	Fetching  bool
	UpdatedAt time.Time
}

type Fetcher[T any] func(ctx context.Context) (T, error)

// call is one fetch. Its ctx is detached from the caller that scheduled it,
// so a caller giving up never aborts the fetch for the others.
type call[T any] struct {
	ctx   context.Context
	fetch Fetcher[T]
	done  chan struct{}
	state QueryState[T]
}

func newCall[T any](ctx context.Context, fetch Fetcher[T]) *call[T] {
	return &call[T]{ctx: context.WithoutCancel(ctx), fetch: fetch, done: make(chan struct{})}
}

type entry[T any] struct {
	state     QueryState[T]
	fetch     Fetcher[T]
	inflight  *call[T]
	next      *call[T]
	observers map[int]func(QueryState[T])

	// invalidated records an Invalidate that arrived while a fetch was in
	// flight; that fetch's result is stale on arrival.
	invalidated bool
}

// QueryCache holds fetched results by key. Concurrent reads of a missing or
// stale key share one fetch.
type QueryCache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	nextID  int
}

func NewQueryCache[T any]() *QueryCache[T] {
	return &QueryCache[T]{entries: map[string]*entry[T]{}}
}

func (c *QueryCache[T]) entryLocked(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{observers: map[int]func(QueryState[T]){}}
		c.entries[key] = e
	}
	return e
}

// Peek returns the current state of key without fetching.
func (c *QueryCache[T]) Peek(key string) QueryState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return QueryState[T]{}
}

// Query returns the cached result for key, fetching it first when it is
// absent, stale or failed. fetch is remembered for later invalidations.
// If ctx ends first, the returned state carries ctx.Err() and the fetch
// carries on for everyone else.
func (c *QueryCache[T]) Query(ctx context.Context, key string, fetch Fetcher[T]) QueryState[T] {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetch = fetch
	if e.state.Status == StatusSuccess && !e.state.Stale {
		s := e.state
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	st, err := c.run(ctx, e, true)
	if err != nil {
		st.Err = err
	}
	return st
}

// Subscribe registers fn to receive every state change of key, the way a
// mounted view would. The returned func unsubscribes.
func (c *QueryCache[T]) Subscribe(key string, fn func(QueryState[T])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	id := c.nextID
	c.nextID++
	e.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(e.observers, id)
	}
}

// Invalidate marks key stale. When the key has subscribers it is refetched
// immediately and Invalidate returns once that fetch has finished; the
// refetch never joins a fetch that started before the call.
func (c *QueryCache[T]) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	e.state.Stale = true
	if e.inflight != nil {
		e.invalidated = true
	}
	active := len(e.observers) > 0 && e.fetch != nil
	c.mu.Unlock()

	if !active {
		return nil
	}
	st, err := c.run(ctx, e, false)
	if err != nil {
		return err
	}
	if st.Status == StatusError {
		return st.Err
	}
	return nil
}

// run waits for the fetch serving this caller. With join set, a fetch already
// in flight is shared; otherwise a fresh fetch is queued behind it.
func (c *QueryCache[T]) run(ctx context.Context, e *entry[T], join bool) (QueryState[T], error) {
	c.mu.Lock()
	var cl *call[T]
	switch {
	case e.inflight == nil:
		cl = newCall(ctx, e.fetch)
		snapshot, observers := e.beginLocked(cl)
		go c.loop(e, cl, snapshot, observers)
	case join:
		cl = e.inflight
	default:
		if e.next == nil {
			e.next = newCall(ctx, e.fetch)
		}
		cl = e.next
	}
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.state, nil
	case <-ctx.Done():
		c.mu.Lock()
		defer c.mu.Unlock()
		return e.state, ctx.Err()
	}
}

// beginLocked makes cl the in-flight fetch of e.
func (e *entry[T]) beginLocked(cl *call[T]) (QueryState[T], []func(QueryState[T])) {
	e.inflight = cl
	e.invalidated = false
	e.state.Fetching = true
	if e.state.Status != StatusSuccess {
		e.state.Status = StatusLoading
	}
	return e.state, e.observersLocked()
}

// loop runs cl and then any fetch queued behind it, announcing each state
// change to observers in order.
func (c *QueryCache[T]) loop(e *entry[T], cl *call[T], snapshot QueryState[T], observers []func(QueryState[T])) {
	for cl != nil {
		notify(observers, snapshot)
		data, err := cl.fetch(cl.ctx)

		c.mu.Lock()
		e.state.Fetching = false
		if err != nil {
			e.state.Status = StatusError
			e.state.Err = err
		} else {
			e.state = QueryState[T]{Status: StatusSuccess, Data: data, UpdatedAt: time.Now()}
		}
		if e.invalidated {
			e.state.Stale = true
		}
		finished, result, resultObservers := cl, e.state, e.observersLocked()
		finished.state = result

		e.inflight = nil
		cl, e.next = e.next, nil
		if cl != nil {
			snapshot, observers = e.beginLocked(cl)
		}
		c.mu.Unlock()

		notify(resultObservers, result)
		close(finished.done)
	}
}

func (e *entry[T]) observersLocked() []func(QueryState[T]) {
	out := make([]func(QueryState[T]), 0, len(e.observers))
	for _, fn := range e.observers {
		out = append(out, fn)
	}
	return out
}

func notify[T any](observers []func(QueryState[T]), s QueryState[T]) {
	for _, fn := range observers {
		fn(s)
	}
}
