package writebuffer

import (
	"sync"
	"time"
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Buffer coalesces pending per-page increments in memory.
// The zero value is not usable; construct with New.
type Buffer struct {
	mu        sync.Mutex
	pending   map[string]uint64
	lastFlush time.Time
	clock     Clock
}

// New constructs an empty Buffer. clock may be nil to use the real wall
// clock; a non-nil clock is used by tests to control ageSinceLastFlush.
func New(clock Clock) *Buffer {
	if clock == nil {
		clock = realClock{}
	}
	return &Buffer{
		pending:   make(map[string]uint64),
		lastFlush: clock.Now(),
		clock:     clock,
	}
}

// Add merges delta additively into page's pending count. delta must be
// positive; callers reject non-positive deltas at the API boundary
// (decrements are undefined here; callers reject them at the API boundary).
func (b *Buffer) Add(page string, delta uint64) {
	b.mu.Lock()
	b.pending[page] += delta
	b.mu.Unlock()
}

// DrainAll atomically snapshots and clears the entire buffer, resetting
// the last-flush clock. Safe to call concurrently with Add: the snapshot
// and the clear happen in one critical section, so no concurrent Add is
// lost or double-counted.
func (b *Buffer) DrainAll() map[string]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.pending
	b.pending = make(map[string]uint64)
	b.lastFlush = b.clock.Now()
	return snapshot
}

// DrainOne atomically removes and returns page's pending delta (0 if
// absent). Used by the read-through path to flush exactly one page's
// buffered increments before reading the backend.
func (b *Buffer) DrainOne(page string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	delta := b.pending[page]
	delete(b.pending, page)
	return delta
}

// Requeue adds delta back into page's pending count. Used when a drained
// delta's flush to the backend fails, so the increment is not lost
// (flush failures re-buffer rather than discard).
func (b *Buffer) Requeue(page string, delta uint64) {
	if delta == 0 {
		return
	}
	b.Add(page, delta)
}

// Size returns the number of distinct pages with a pending delta.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Contents returns a copy of the current pending map, for observability
// (used by bufferStatus / GET /buffer).
func (b *Buffer) Contents() map[string]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]uint64, len(b.pending))
	for k, v := range b.pending {
		out[k] = v
	}
	return out
}

// AgeSinceLastFlush returns how long it has been since the buffer was last
// fully drained (via DrainAll) or constructed.
func (b *Buffer) AgeSinceLastFlush() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock.Now().Sub(b.lastFlush)
}
