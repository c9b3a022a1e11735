package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"
	"coachsync/internal/scheduler"

	"github.com/rs/zerolog"
)

// NotificationCleaner is the store method the cleanup job needs.
type NotificationCleaner interface {
	DeleteOldReadNotifications(ctx context.Context, olderThan time.Time) (int64, error)
}

// CleanupNotifications deletes notifications that are read and older than the
// retention period. Unread notifications are never removed.
func CleanupNotifications(store NotificationCleaner, logger *zerolog.Logger, now func() time.Time) scheduler.Handler {
	logger = orNop(logger)
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		cutoff := now().Add(-models.NotificationRetention)
		deleted, err := store.DeleteOldReadNotifications(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup notifications: %w", err)
		}
		logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("old read notifications removed")
		return nil
	}
}

// ResyncAll resyncs every trainer with calendar sync enabled, one after another.
func ResyncAll(trainers domain.TrainerLister, syncer domain.SessionSyncer, logger *zerolog.Logger) scheduler.Handler {
	logger = orNop(logger)
	return func(ctx context.Context) error {
		ids, err := trainers.ListSyncEnabledTrainers(ctx)
		if err != nil {
			return fmt.Errorf("list trainers: %w", err)
		}

		var errs []error
		total := 0
		for _, id := range ids {
			n, err := syncer.ResyncTrainer(ctx, id)
			total += n
			if err != nil {
				logger.Warn().Err(err).Str("trainer_id", id).Msg("trainer resync failed")
				errs = append(errs, err)
			}
		}
		logger.Info().Int("trainers", len(ids)).Int("synced", total).Int("failed", len(errs)).Msg("calendar resync finished")
		return errors.Join(errs...)
	}
}

// BackupRunner performs one database backup.
type BackupRunner interface {
	Run(ctx context.Context) error
}

func orNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return logger
}
