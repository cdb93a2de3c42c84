package counter

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kauxp/visit-counter/internal/localcache"
	"github.com/kauxp/visit-counter/internal/shardclient"
	"github.com/kauxp/visit-counter/internal/singleflight"
	"github.com/kauxp/visit-counter/internal/writebuffer"
)

const defaultFlushConcurrency = 32

// readResult is what the coalesced read-through path produces for one page.
type readResult struct {
	count  uint64
	origin string // host tag of the shard that served the read
}

// Service is the counting engine: it owns the local cache, the write
// buffer, and the pool of shard clients, and exposes the four operations
// an HTTP layer needs. One Service is constructed per process and shared
// across request handlers — see the package doc for why.
type Service struct {
	pool  *shardclient.ShardClientPool
	cache *localcache.Cache
	buf   *writebuffer.Buffer

	logger  *zap.Logger
	metrics Metrics
	clock   Clock

	flushConcurrency int

	readGroup singleflight.Group[string, readResult]

	flusherMu     sync.Mutex
	flusherCancel func()
	flusherDone   chan struct{}
	closed        bool
}

// NewService constructs a Service over an already-built ShardClientPool.
// cacheTTL configures the local cache's freshness window.
func NewService(pool *shardclient.ShardClientPool, cacheTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		pool:             pool,
		logger:           zap.NewNop(),
		metrics:          NoopMetrics{},
		clock:            realClock{},
		flushConcurrency: defaultFlushConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cache = localcache.New(localcache.Options{
		TTL:     cacheTTL,
		Clock:   s.clock,
		Metrics: cacheMetricsAdapter{s.metrics},
	})
	s.buf = writebuffer.New(s.clock)
	return s
}

// cacheMetricsAdapter narrows Service's Metrics to localcache's smaller
// Hit/Miss contract, so localcache stays decoupled from counter.Metrics.
type cacheMetricsAdapter struct{ m Metrics }

func (a cacheMetricsAdapter) Hit()  { a.m.CacheHit() }
func (a cacheMetricsAdapter) Miss() { a.m.CacheMiss() }

// Increment records one visit to page, merging it into the write buffer
// and bumping the local cache so a same-process Get immediately reflects
// it. It never touches the backend and is therefore error-free except for
// a malformed page id.
func (s *Service) Increment(page string) error {
	if page == "" {
		return ErrInvalidPageID
	}
	s.buf.Add(page, 1)
	s.cache.BumpBy(page, 1)
	return nil
}

// Get returns the current count for page and a tag describing where it
// was served from ("in_memory" or the backend shard's host tag).
//
// The fast path serves straight from the local cache when its entry is
// fresh. Otherwise every concurrent caller for the same page coalesces
// onto one read-through (internal/singleflight): drain the page's pending
// buffer into its shard, then read the shard's authoritative value and
// cache it. Draining before reading is what stops a read from observing a
// value lower than what the cache already promised a prior Increment
// caller.
func (s *Service) Get(ctx context.Context, page string) (uint64, string, error) {
	if page == "" {
		return 0, "", ErrInvalidPageID
	}

	if e, ok := s.cache.Get(page); ok && s.cache.IsFresh(e) {
		return e.Count, "in_memory", nil
	}

	res, err := s.readGroup.Do(ctx, page, func() (readResult, error) {
		return s.readThrough(ctx, page)
	})
	if err != nil {
		return 0, "", err
	}
	return res.count, res.origin, nil
}

// readThrough drains page's buffered delta, applies it to the backend,
// reads the authoritative total back, and caches it. Any delta drained
// here that cannot be confirmed applied — whether the increment call
// itself failed, or the confirming read afterward did — is re-buffered,
// trading a small chance of a double-counted retry for the guarantee that
// an increment is never silently dropped.
func (s *Service) readThrough(ctx context.Context, page string) (readResult, error) {
	client, shard, err := s.pool.ClientFor(page)
	if err != nil {
		return readResult{}, err
	}
	host := s.pool.HostTag(shard)

	delta := s.buf.DrainOne(page)

	if delta > 0 {
		incrCtx, cancel := s.pool.WithTimeout(ctx)
		_, err := client.IncrBy(incrCtx, page, int64(delta))
		cancel()
		if err != nil {
			s.buf.Requeue(page, delta)
			s.metrics.BackendUnavailable(host)
			return readResult{}, err
		}
	}

	getCtx, cancel := s.pool.WithTimeout(ctx)
	count, err := client.Get(getCtx, page)
	cancel()
	if err != nil {
		if delta > 0 {
			s.buf.Requeue(page, delta)
		}
		s.metrics.BackendUnavailable(host)
		return readResult{}, err
	}

	s.metrics.ServedFromBackend(host)
	s.cache.PutCount(page, uint64(count))
	return readResult{count: uint64(count), origin: host}, nil
}

// BufferStatus reports the write buffer's current pending state, for the
// buffer-introspection endpoint.
type BufferStatus struct {
	Size              int
	Pending           map[string]uint64
	AgeSinceLastFlush time.Duration
}

// BufferStatus returns a snapshot of the write buffer without draining it.
func (s *Service) BufferStatus() BufferStatus {
	return BufferStatus{
		Size:              s.buf.Size(),
		Pending:           s.buf.Contents(),
		AgeSinceLastFlush: s.buf.AgeSinceLastFlush(),
	}
}

// FlushAll drains the entire write buffer and applies every pending delta
// to its owning shard concurrently, bounded by flushConcurrency. Pages
// that fail are re-buffered and reported in the returned *FlushError.
func (s *Service) FlushAll(ctx context.Context) error {
	start := s.clock.Now()
	pending := s.buf.DrainAll()
	if len(pending) == 0 {
		s.metrics.FlushObserved(0, 0, s.clock.Now().Sub(start))
		s.metrics.BufferSize(0)
		return nil
	}

	var g errgroup.Group
	g.SetLimit(s.flushConcurrency)

	var mu sync.Mutex
	failed := make(map[string]error)

	for page, delta := range pending {
		page, delta := page, delta
		g.Go(func() error {
			client, shard, err := s.pool.ClientFor(page)
			if err != nil {
				mu.Lock()
				failed[page] = err
				mu.Unlock()
				s.buf.Requeue(page, delta)
				return nil
			}

			flushCtx, cancel := s.pool.WithTimeout(ctx)
			_, err = client.IncrBy(flushCtx, page, int64(delta))
			cancel()
			if err != nil {
				s.metrics.BackendUnavailable(s.pool.HostTag(shard))
				mu.Lock()
				failed[page] = err
				mu.Unlock()
				s.buf.Requeue(page, delta)
			}
			return nil
		})
	}
	_ = g.Wait() // per-page errors are collected into failed, not returned here

	s.metrics.FlushObserved(len(pending), len(failed), s.clock.Now().Sub(start))
	s.metrics.BufferSize(s.buf.Size())

	if len(failed) > 0 {
		s.logger.Warn("flush completed with failures",
			zap.Int("attempted", len(pending)),
			zap.Int("failed", len(failed)),
		)
		return &FlushError{Failed: failed}
	}
	return nil
}

// ErrAlreadyStarted is returned by StartBackgroundFlusher on every call
// after the first; starting twice is a programmer error, not a runtime
// condition callers are expected to branch on, but it is surfaced rather
// than silently ignored.
var ErrAlreadyStarted = errors.New("counter: background flusher already started")

// StartBackgroundFlusher spawns a goroutine that calls FlushAll on the
// given interval until ctx is cancelled or Close is called. It is
// idempotent in the sense that only the first call actually starts
// anything; subsequent calls return ErrAlreadyStarted.
func (s *Service) StartBackgroundFlusher(ctx context.Context, interval time.Duration) error {
	s.flusherMu.Lock()
	defer s.flusherMu.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	if s.flusherCancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.flusherCancel = cancel
	s.flusherDone = make(chan struct{})

	go s.runFlusher(runCtx, interval)
	return nil
}

// Close stops the background flusher, if running, and waits for its
// current iteration to finish. Close is safe to call even if the flusher
// was never started.
func (s *Service) Close() error {
	s.flusherMu.Lock()
	s.closed = true
	cancel := s.flusherCancel
	done := s.flusherDone
	s.flusherMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.pool.Close()
}
