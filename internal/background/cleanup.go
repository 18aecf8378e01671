package background

import (
	"context"
	"log/slog"
	"time"
)

// BucketStore is the slice of rate limit storage the cleanup loop needs.
type BucketStore interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// InvitationStore is the slice of invitation storage the cleanup loop needs.
type InvitationStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically removes rows that only matter while current:
// rate limit buckets whose window has passed, and invitations past expiry.
// Correctness never depends on this loop; the limiter's upsert and the
// invitation queries ignore expired rows on their own.
type CleanupManager struct {
	buckets     BucketStore
	invitations InvitationStore
	logger      *slog.Logger
	interval    time.Duration
	stopCh      chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	buckets BucketStore,
	invitations InvitationStore,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		buckets:     buckets,
		invitations: invitations,
		logger:      logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
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

	// Expired buckets stay readable for a grace period so a 429'd client
	// polling its headers still sees a consistent reset.
	cutoff := time.Now().Add(-time.Hour)

	buckets, err := cm.buckets.DeleteExpired(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to clean up rate limit buckets", slog.Any("error", err))
	} else if buckets > 0 {
		cm.logger.Info("rate limit bucket cleanup completed", slog.Int64("rows_deleted", buckets))
	}

	invitations, err := cm.invitations.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to clean up expired invitations", slog.Any("error", err))
	} else if invitations > 0 {
		cm.logger.Info("invitation cleanup completed", slog.Int64("rows_deleted", invitations))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
