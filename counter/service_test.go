package counter

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/kauxp/visit-counter/internal/shardclient"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1000, 0)} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestPool(t *testing.T, n int) *shardclient.ShardClientPool {
	t.Helper()
	shards := make([]string, n)
	for i := 0; i < n; i++ {
		mr := miniredis.RunT(t)
		shards[i] = fmt.Sprintf("redis://%s", mr.Addr())
	}
	pool, err := shardclient.New(shards, shardclient.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestService_IncrementThenGetServesFromCache(t *testing.T) {
	pool := newTestPool(t, 1)
	svc := NewService(pool, 5*time.Second)

	require.NoError(t, svc.Increment("home"))
	require.NoError(t, svc.Increment("home"))

	count, via, err := svc.Get(context.Background(), "home")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, "in_memory", via)
}

func TestService_IncrementRejectsEmptyPageID(t *testing.T) {
	pool := newTestPool(t, 1)
	svc := NewService(pool, 5*time.Second)

	require.ErrorIs(t, svc.Increment(""), ErrInvalidPageID)

	_, _, err := svc.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidPageID)
}

func TestService_GetReadsThroughAfterStaleness(t *testing.T) {
	pool := newTestPool(t, 1)
	clk := newFakeClock()
	svc := NewService(pool, 5*time.Second, WithClock(clk))

	require.NoError(t, svc.Increment("about"))
	clk.advance(10 * time.Second)

	count, via, err := svc.Get(context.Background(), "about")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.NotEqual(t, "in_memory", via)

	// The read-through drained and applied the buffered delta, so a second
	// increment plus a flush-free read confirms the backend is now
	// authoritative for "about".
	require.NoError(t, svc.Increment("about"))
	count, via, err = svc.Get(context.Background(), "about")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, "in_memory", via) // fresh from the PutCount the read-through just did
}

func TestService_FlushAllAppliesPendingDeltas(t *testing.T) {
	pool := newTestPool(t, 2)
	clk := newFakeClock()
	svc := NewService(pool, 5*time.Second, WithClock(clk))

	require.NoError(t, svc.Increment("a"))
	require.NoError(t, svc.Increment("a"))
	require.NoError(t, svc.Increment("b"))

	require.NoError(t, svc.FlushAll(context.Background()))

	status := svc.BufferStatus()
	require.Equal(t, 0, status.Size)

	clk.advance(10 * time.Second) // force a read-through past the cache TTL
	count, _, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestService_BufferStatusReflectsPending(t *testing.T) {
	pool := newTestPool(t, 1)
	svc := NewService(pool, 5*time.Second)

	require.NoError(t, svc.Increment("x"))
	require.NoError(t, svc.Increment("y"))

	status := svc.BufferStatus()
	require.Equal(t, 2, status.Size)
	require.EqualValues(t, 1, status.Pending["x"])
	require.EqualValues(t, 1, status.Pending["y"])
}

func TestService_StartBackgroundFlusherIsIdempotent(t *testing.T) {
	pool := newTestPool(t, 1)
	svc := NewService(pool, 5*time.Second)
	defer svc.Close()

	ctx := context.Background()
	require.NoError(t, svc.StartBackgroundFlusher(ctx, 10*time.Millisecond))
	require.ErrorIs(t, svc.StartBackgroundFlusher(ctx, 10*time.Millisecond), ErrAlreadyStarted)
}

func TestService_BackgroundFlusherDrainsBuffer(t *testing.T) {
	pool := newTestPool(t, 1)
	svc := NewService(pool, 5*time.Second)
	defer svc.Close()

	require.NoError(t, svc.Increment("ticked"))
	require.NoError(t, svc.StartBackgroundFlusher(context.Background(), 10*time.Millisecond))

	require.Eventually(t, func() bool {
		return svc.BufferStatus().Size == 0
	}, time.Second, 5*time.Millisecond)
}

func TestService_CloseStopsFlusherAndClient(t *testing.T) {
	pool := newTestPool(t, 1)
	svc := NewService(pool, 5*time.Second)

	require.NoError(t, svc.StartBackgroundFlusher(context.Background(), 10*time.Millisecond))
	require.NoError(t, svc.Close())

	require.ErrorIs(t, svc.StartBackgroundFlusher(context.Background(), time.Second), ErrServiceClosed)
}
