package background

import (
	"context"
	"log/slog"
	"time"
)

// DisposablePurger deletes the disposable-domain accounts in one sweep.
type DisposablePurger interface {
	CleanupDisposable(ctx context.Context) (int64, error)
}

// Janitor periodically purges disposable-domain accounts so test signups
// never pile up in the database.
type Janitor struct {
	purger   DisposablePurger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewJanitor creates a new janitor
func NewJanitor(purger DisposablePurger, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		purger:   purger,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic purge task
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on startup
	j.runPurge(ctx)

	for {
		select {
		case <-ticker.C:
			j.runPurge(ctx)
		case <-j.stopCh:
			j.logger.Info("janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		}
	}
}

func (j *Janitor) runPurge(ctx context.Context) {
	purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := j.purger.CleanupDisposable(purgeCtx)
	if err != nil {
		j.logger.Error("disposable account purge failed", slog.Any("error", err))
		return
	}

	if deleted > 0 {
		j.logger.Info("disposable account purge completed", slog.Int64("deleted", deleted))
	}
}

// Stop signals the janitor to stop
func (j *Janitor) Stop() {
	close(j.stopCh)
}
