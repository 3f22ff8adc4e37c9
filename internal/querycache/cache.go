// Package querycache memoizes read results per (endpoint, argument) and
// keeps them consistent with writes through tag-based invalidation.
//
// Every query endpoint provides a set of tags and every mutation invalidates
// a set of tags; both are supplied as data in Tables. After a successful
// mutation every entry whose endpoint provides one of the invalidated tags is
// either dropped (nobody is watching it) or marked stale and refetched in the
// background (a subscriber is watching it). Identical concurrent reads share
// one in-flight fetch.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrClosed          = errors.New("query cache closed")
	ErrUnknownMutation = errors.New("unknown mutation")
	// ErrStale is returned together with the previously cached value when
	// the caller stopped waiting for a refetch of that value.
	ErrStale = errors.New("serving stale value")
)

type (
	Tag      string
	Endpoint string
	Mutation string
)

type Key struct {
	Endpoint Endpoint
	Arg      string
}

func (k Key) String() string {
	if k.Arg == "" {
		return string(k.Endpoint)
	}
	return fmt.Sprintf("%s(%s)", k.Endpoint, k.Arg)
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time copy of one cache entry.
type Snapshot struct {
	Key       Key
	Value     any
	HasValue  bool
	Err       error
	Status    Status
	Stale     bool
	UpdatedAt time.Time
}

type FetchFunc func(ctx context.Context) (any, error)

type Tables struct {
	Provides    map[Endpoint][]Tag
	Invalidates map[Mutation][]Tag
}

type entry struct {
	key       Key
	value     any
	hasValue  bool
	err       error
	status    Status
	stale     bool
	gen       uint64
	valueGen  uint64
	updatedAt time.Time
	fetch     FetchFunc
	subs      map[uint64]func(Snapshot)
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:       e.key,
		Value:     e.value,
		HasValue:  e.hasValue,
		Err:       e.err,
		Status:    e.status,
		Stale:     e.stale,
		UpdatedAt: e.updatedAt,
	}
}

func (e *entry) fresh() bool {
	return e.hasValue && !e.stale && e.status == StatusSuccess
}

type Store struct {
	tables  Tables
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	entries map[Key]*entry
	seq     uint64
	closed  bool
	flights singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a store. Close must be called when the owning application
// shuts down. metrics may be nil.
func New(tables Tables, logger *slog.Logger, metrics *Metrics) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		tables:  tables,
		logger:  logger,
		metrics: metrics,
		entries: make(map[Key]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Query returns the cached value for key when it is fresh and otherwise
// fetches it. On a failed fetch the returned snapshot still carries the
// previously cached value, if any, and the error is returned as well.
//
// ctx bounds only how long the caller waits; the fetch itself runs under the
// store's lifetime so other callers sharing it are not affected. If ctx ends
// first and the entry holds a value, that value is returned with an error
// wrapping ErrStale.
func (s *Store) Query(ctx context.Context, key Key, fetch FetchFunc) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{Key: key}, ErrClosed
	}

	e := s.entryLocked(key)
	e.fetch = fetch
	if e.fresh() {
		snap := e.snapshot()
		s.mu.Unlock()
		s.metrics.hit(key.Endpoint)
		return snap, nil
	}

	if !e.hasValue {
		e.status = StatusLoading
	}
	gen := e.gen
	s.mu.Unlock()

	s.metrics.miss(key.Endpoint)
	return s.load(ctx, key, gen, fetch)
}

// Peek returns the current snapshot for key without fetching.
func (s *Store) Peek(key Key) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return e.snapshot(), true
}

// Subscribe registers fn to receive every snapshot produced for key by a
// fetch. While at least one subscriber exists the entry survives
// invalidation and is refetched with fetch. fn runs on the fetching
// goroutine and must not block.
func (s *Store) Subscribe(key Key, fetch FetchFunc, fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(key)
	e.fetch = fetch
	s.seq++
	id := s.seq
	e.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(e.subs, id)
			s.mu.Unlock()
		})
	}
}

// Mutate runs fn and, only if it succeeds, invalidates the tags declared for
// m. The error from fn is returned untouched.
func (s *Store) Mutate(ctx context.Context, m Mutation, fn func(ctx context.Context) error) error {
	tags, ok := s.tables.Invalidates[m]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMutation, m)
	}

	if err := fn(ctx); err != nil {
		s.logger.Debug("mutation failed", "mutation", m, "error", err)
		return err
	}

	s.Invalidate(tags...)
	return nil
}

// Invalidate drops or refetches every entry whose endpoint provides any of
// tags.
func (s *Store) Invalidate(tags ...Tag) {
	type job struct {
		key   Key
		gen   uint64
		fetch FetchFunc
	}

	var (
		jobs    []job
		dropped int
	)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for key, e := range s.entries {
		if !intersects(s.tables.Provides[key.Endpoint], tags) {
			continue
		}
		if len(e.subs) == 0 {
			delete(s.entries, key)
			dropped++
			continue
		}

		s.seq++
		e.gen = s.seq
		e.stale = true
		if e.fetch != nil {
			jobs = append(jobs, job{key: key, gen: e.gen, fetch: e.fetch})
		}
	}
	s.wg.Add(len(jobs))
	s.mu.Unlock()

	for _, tag := range tags {
		s.metrics.invalidated(tag)
	}
	s.metrics.drop(dropped)
	s.logger.Debug("cache invalidated", "tags", tags, "dropped", dropped, "refetching", len(jobs))

	for _, j := range jobs {
		go func(j job) {
			defer s.wg.Done()
			_, _ = s.load(s.ctx, j.key, j.gen, j.fetch)
		}(j)
	}
}

// Close cancels background refetches and waits for them to finish. Queries
// issued after Close fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) entryLocked(key Key) *entry {
	e, ok := s.entries[key]
	if ok {
		return e
	}

	s.seq++
	e = &entry{
		key:  key,
		gen:  s.seq,
		subs: make(map[uint64]func(Snapshot)),
	}
	s.entries[key] = e
	return e
}

// load joins or starts the flight for (key, gen). Generations are unique
// per store, so a flight started before an invalidation is never joined by
// a query issued after it.
func (s *Store) load(ctx context.Context, key Key, gen uint64, fetch FetchFunc) (Snapshot, error) {
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	ch := s.flights.DoChan(flightKey, func() (any, error) {
		return s.fetch(key, gen, fetch), nil
	})

	select {
	case res := <-ch:
		snap := res.Val.(Snapshot)
		return snap, snap.Err
	case <-ctx.Done():
		snap, _ := s.Peek(key)
		if snap.HasValue {
			return snap, fmt.Errorf("%w: %w", ErrStale, ctx.Err())
		}
		return snap, ctx.Err()
	}
}

func (s *Store) fetch(key Key, gen uint64, fetch FetchFunc) Snapshot {
	s.metrics.fetched(key.Endpoint)
	value, err := fetch(s.ctx)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		// Dropped by an invalidation while in flight; hand the result to
		// the waiting callers without caching it.
		s.mu.Unlock()
		snap := Snapshot{Key: key, Value: value, HasValue: err == nil, Err: err, Status: StatusSuccess}
		if err != nil {
			snap.Status = StatusError
		}
		return snap
	}

	// Results older than the value already held are discarded, and only a
	// result of the current generation clears the stale flag.
	if gen >= e.valueGen {
		if err != nil {
			e.err = err
			e.status = StatusError
		} else {
			e.value = value
			e.valueGen = gen
			e.hasValue = true
			e.err = nil
			e.status = StatusSuccess
			e.updatedAt = time.Now()
			e.stale = e.gen != gen
		}
	}
	snap := e.snapshot()
	subs := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.failed(key.Endpoint)
		s.logger.Warn("query fetch failed", "key", key.String(), "error", err)
	}

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

func intersects(have, want []Tag) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
