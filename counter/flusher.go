package counter

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// runFlusher is the background flusher's state machine: SLEEPING between
// ticks, FLUSHING while a FlushAll call is in progress, and STOPPED once
// ctx is cancelled. A single goroutine runs this loop for the lifetime of
// the Service; StartBackgroundFlusher guarantees only one is ever started.
func (s *Service) runFlusher(ctx context.Context, interval time.Duration) {
	defer close(s.flusherDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("background flusher stopped")
			return
		case <-ticker.C:
			if err := s.FlushAll(ctx); err != nil {
				s.logger.Warn("background flush encountered errors", zap.Error(err))
			}
		}
	}
}
