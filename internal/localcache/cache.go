package localcache

import (
	"sync"
	"time"

	"github.com/kauxp/visit-counter/internal/util"
)

// DefaultTTL is the default freshness window (overridable via CACHE_TTL_SECS).
const DefaultTTL = 5 * time.Second

// CacheEntry is the cached count for one page and when it was last
// stamped.
type CacheEntry struct {
	Count     uint64
	StampedAt time.Time
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Metrics exposes cache-level observability hooks. A NoopMetrics
// implementation is used when none is configured.
type Metrics interface {
	Hit()
	Miss()
}

// NoopMetrics discards every signal.
type NoopMetrics struct{}

func (NoopMetrics) Hit()  {}
func (NoopMetrics) Miss() {}

// Options configures a Cache. Zero value is valid: TTL defaults to
// DefaultTTL, Clock to the real wall clock, Metrics to NoopMetrics.
type Options struct {
	TTL     time.Duration
	Clock   Clock
	Metrics Metrics
}

// Cache is the in-process PageId -> CacheEntry map.
// All methods are safe for concurrent use by multiple goroutines.
type Cache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry

	ttl     time.Duration
	clock   Clock
	metrics Metrics

	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

// New constructs a Cache with the given Options, applying defaults for
// zero-valued fields.
func New(opt Options) *Cache {
	if opt.TTL <= 0 {
		opt.TTL = DefaultTTL
	}
	if opt.Clock == nil {
		opt.Clock = realClock{}
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return &Cache{
		entries: make(map[string]CacheEntry),
		ttl:     opt.TTL,
		clock:   opt.Clock,
		metrics: opt.Metrics,
	}
}

// Get returns the entry for page and whether it is present. Presence does
// NOT imply freshness — callers check IsFresh separately before deciding
// whether to serve the cached value or read through to the backend.
//
// A hit is counted only when the entry is both present and fresh; a stale
// entry forces a backend read-through, so it counts as a miss even though
// its value is still returned as the base for local increments.
func (c *Cache) Get(page string) (CacheEntry, bool) {
	c.mu.Lock()
	e, ok := c.entries[page]
	c.mu.Unlock()

	if ok && c.IsFresh(e) {
		c.hits.Add(1)
		c.metrics.Hit()
	} else {
		c.misses.Add(1)
		c.metrics.Miss()
	}
	return e, ok
}

// IsFresh reports whether e was stamped within the cache's TTL window of
// now: an entry is fresh iff its StampedAt is within TTL of the current time.
func (c *Cache) IsFresh(e CacheEntry) bool {
	return c.clock.Now().Sub(e.StampedAt) <= c.ttl
}

// PutCount sets page's entry to {count, now()}, used after an authoritative
// backend read.
func (c *Cache) PutCount(page string, count uint64) {
	c.mu.Lock()
	c.entries[page] = CacheEntry{Count: count, StampedAt: c.clock.Now()}
	c.mu.Unlock()
}

// BumpBy sets page's entry to {(existing.count if present else 0) + delta,
// now()}. Used on every local increment to maintain
// read-after-write for the writer process, regardless of whether the
// existing entry is still fresh — see package doc for why staleness must
// not erase the prior count.
func (c *Cache) BumpBy(page string, delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := uint64(0)
	if e, ok := c.entries[page]; ok {
		base = e.Count
	}
	c.entries[page] = CacheEntry{Count: base + delta, StampedAt: c.clock.Now()}
}

// Stats returns the lifetime hit/miss counts, for observability.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
