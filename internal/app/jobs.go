package app

import (
	"context"
	"time"

	"github.com/garyellow/chatshhs-go/internal/config"
)

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.sessionSweep(ctx)
	})
	a.wg.Go(func() {
		a.cacheCleanup(ctx)
	})
	a.wg.Go(func() {
		a.updateCacheMetrics(ctx)
	})
}

// sessionSweep drops idle sessions every SessionSweepInterval.
func (a *Application) sessionSweep(ctx context.Context) {
	a.logger.Debug("Session sweep job started")
	defer a.logger.Debug("Session sweep job stopped")

	ticker := time.NewTicker(config.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runSessionSweep()
		}
	}
}

func (a *Application) runSessionSweep() int {
	removed := a.sessions.Sweep()
	if a.metrics != nil {
		a.metrics.RecordSessionsSwept(removed)
	}
	if removed > 0 {
		a.logger.WithField("removed", removed).
			WithField("active", a.sessions.Len()).
			Debug("Idle sessions swept")
	}
	return removed
}

// cacheCleanup deletes expired NEIS responses hourly, starting after
// CacheCleanupInitialDelay.
func (a *Application) cacheCleanup(ctx context.Context) {
	a.logger.Debug("Cache cleanup job started")
	defer a.logger.Debug("Cache cleanup job stopped")

	select {
	case <-ctx.Done():
		return
	case <-time.After(config.CacheCleanupInitialDelay):
		a.runCacheCleanup(ctx)
	}

	ticker := time.NewTicker(config.CacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Cache cleanup received shutdown signal")
			return
		case <-ticker.C:
			a.runCacheCleanup(ctx)
		}
	}
}

func (a *Application) runCacheCleanup(ctx context.Context) {
	start := time.Now()

	deleted, err := a.db.DeleteExpired(ctx)
	if err != nil {
		a.logger.WithError(err).Error("Failed to cleanup expired responses")
		return
	}
	if a.metrics != nil {
		a.metrics.RecordCacheEvicted(deleted)
	}

	a.logger.WithField("deleted", deleted).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Cache cleanup completed")
}

// updateCacheMetrics periodically records cache size to Prometheus.
func (a *Application) updateCacheMetrics(ctx context.Context) {
	a.logger.Debug("Cache metrics job started")
	defer a.logger.Debug("Cache metrics job stopped")

	a.recordCacheMetrics(ctx)

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordCacheMetrics(ctx)
		}
	}
}

func (a *Application) recordCacheMetrics(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	counts, err := a.db.CountResponses(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count cached responses")
		return
	}
	for endpoint, n := range counts {
		a.metrics.SetCacheEntries(endpoint, n)
	}
}
