package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"spensagi/portal/internal/config"
	"spensagi/portal/internal/metrics"
)

type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// StartSessionSweepJob periodically removes session rows past expires_at.
// A non-positive SESSION_SWEEP_INTERVAL disables the job.
func StartSessionSweepJob(ctx context.Context, cfg config.Config, store SessionSweeper, logger *zap.Logger) {
	interval := cfg.SessionSweepInterval
	if interval <= 0 {
		logger.Info("session sweep job disabled", zap.Duration("interval", interval))
		return
	}
	if store == nil {
		logger.Warn("session sweep job disabled: store not configured")
		return
	}
	timeout := cfg.SessionSweepTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepSessions(ctx, store, timeout, time.Now().UTC(), logger)
			}
		}
	}()
}

func sweepSessions(ctx context.Context, store SessionSweeper, timeout time.Duration, now time.Time, logger *zap.Logger) int64 {
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	removed, err := store.DeleteExpiredSessions(tickCtx, now)
	if err != nil {
		logger.Error("session sweep job error", zap.Error(err))
		return 0
	}
	if removed > 0 {
		metrics.SessionsSwept.Add(float64(removed))
		logger.Info("session sweep job removed sessions", zap.Int64("count", removed))
	}
	return removed
}
