package counter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/kauxp/visit-counter/internal/shardclient"
)

// newFailablePool builds a single-shard pool whose backing miniredis is
// returned so tests can stop and restart it mid-scenario.
func newFailablePool(t *testing.T) (*shardclient.ShardClientPool, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	pool, err := shardclient.New([]string{fmt.Sprintf("redis://%s", mr.Addr())}, shardclient.Options{
		Timeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool, mr
}

// TestService_FlushAllRebuffersOnBackendFailure walks the transient-outage
// scenario: increments against a dead shard still succeed, the flush
// reports the failed page but keeps its delta, and the next flush after
// the shard returns persists it exactly once.
func TestService_FlushAllRebuffersOnBackendFailure(t *testing.T) {
	pool, mr := newFailablePool(t)
	svc := NewService(pool, 5*time.Second)

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.Increment("p3"))
	}

	mr.Close()

	err := svc.FlushAll(context.Background())
	require.Error(t, err)
	var fe *FlushError
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe.Failed, "p3")

	// The failed delta is back in the buffer, not lost.
	require.EqualValues(t, 4, svc.BufferStatus().Pending["p3"])

	require.NoError(t, mr.Restart())
	require.NoError(t, svc.FlushAll(context.Background()))
	require.Equal(t, 0, svc.BufferStatus().Size)

	got, err := mr.Get("p3")
	require.NoError(t, err)
	require.Equal(t, "4", got)
}

// TestService_GetRebuffersDeltaOnBackendFailure checks the read-through
// path: a failed backend call must put the drained delta back before the
// error surfaces, so the increment survives for the next flush.
func TestService_GetRebuffersDeltaOnBackendFailure(t *testing.T) {
	pool, mr := newFailablePool(t)
	clk := newFakeClock()
	svc := NewService(pool, 5*time.Second, WithClock(clk))

	require.NoError(t, svc.Increment("p"))
	clk.advance(10 * time.Second)

	mr.Close()

	_, _, err := svc.Get(context.Background(), "p")
	require.Error(t, err)
	var unavailable *shardclient.BackendUnavailable
	require.ErrorAs(t, err, &unavailable)

	require.EqualValues(t, 1, svc.BufferStatus().Pending["p"])

	require.NoError(t, mr.Restart())
	count, via, err := svc.Get(context.Background(), "p")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.NotEqual(t, "in_memory", via)
}

// TestService_BackgroundFlusherSurvivesBackendOutage checks that the
// flusher loop keeps running through failed flushes and drains the buffer
// once the backend comes back.
func TestService_BackgroundFlusherSurvivesBackendOutage(t *testing.T) {
	pool, mr := newFailablePool(t)
	svc := NewService(pool, 5*time.Second)
	defer svc.Close()

	mr.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Increment("p6"))
	}
	require.NoError(t, svc.StartBackgroundFlusher(context.Background(), 10*time.Millisecond))

	// Let several failing flush ticks go by; the deltas must survive them.
	time.Sleep(60 * time.Millisecond)
	require.EqualValues(t, 3, svc.BufferStatus().Pending["p6"])

	require.NoError(t, mr.Restart())

	require.Eventually(t, func() bool {
		return svc.BufferStatus().Size == 0
	}, 2*time.Second, 10*time.Millisecond)

	got, err := mr.Get("p6")
	require.NoError(t, err)
	require.Equal(t, "3", got)
}
