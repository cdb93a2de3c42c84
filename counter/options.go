package counter

import (
	"time"

	"go.uber.org/zap"
)

// Metrics receives counting-engine events. A nil Metrics is never passed
// to collaborators; NewService substitutes NoopMetrics when none is given.
type Metrics interface {
	// CacheHit records that Get was served from the local cache without
	// touching the backend.
	CacheHit()
	// CacheMiss records that Get had to read through to a shard.
	CacheMiss()
	// ServedFromBackend records a read-through to the named shard.
	ServedFromBackend(shard string)
	// BackendUnavailable records a failed backend call for the named shard.
	BackendUnavailable(shard string)
	// FlushObserved records one FlushAll run: how many pages were
	// attempted, how many failed, and how long the run took.
	FlushObserved(attempted, failed int, d time.Duration)
	// BufferSize records the buffer's pending-page count after a flush.
	BufferSize(n int)
}

// NoopMetrics discards every event. It is the default when no Metrics is
// supplied to NewService.
type NoopMetrics struct{}

func (NoopMetrics) CacheHit()                                       {}
func (NoopMetrics) CacheMiss()                                      {}
func (NoopMetrics) ServedFromBackend(shard string)                  {}
func (NoopMetrics) BackendUnavailable(shard string)                 {}
func (NoopMetrics) FlushObserved(attempted, failed int, _ time.Duration) {}
func (NoopMetrics) BufferSize(n int)                                {}

var _ Metrics = NoopMetrics{}

// Clock abstracts time.Now for the buffer's and cache's freshness checks,
// letting tests control the passage of time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option configures a Service under construction.
type Option func(*Service)

// WithLogger sets the structured logger used for operational events
// (flush failures, backend errors, flusher lifecycle transitions). The
// default is zap.NewNop(), matching the convention that a Service built
// with zero options never panics and never logs.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the Metrics sink. The default is NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the clock used by the write buffer and local cache.
// Exists for deterministic tests; production callers should not need it.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithFlushConcurrency bounds how many pages FlushAll drains to their
// backend shard at once. The default is 32.
func WithFlushConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.flushConcurrency = n
		}
	}
}
