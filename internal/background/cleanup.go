package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredCleaner is implemented by every store that accumulates expired rows
type ExpiredCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically sweeps expired sessions and one-time tokens
// from the database
type CleanupManager struct {
	cleaners map[string]ExpiredCleaner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager. The map key is used as
// the store name in log lines.
func NewCleanupManager(cleaners map[string]ExpiredCleaner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		cleaners: cleaners,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup loop. It runs once immediately, then on
// every tick until Stop is called or the context is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, cleaner := range cm.cleaners {
		deleted, err := cleaner.CleanupExpired(cleanupCtx)
		if err != nil {
			cm.logger.Error("cleanup failed",
				slog.String("store", name),
				slog.Any("error", err))
			continue
		}

		if deleted > 0 {
			cm.logger.Info("cleanup completed",
				slog.String("store", name),
				slog.Int64("rows_deleted", deleted))
		}
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
