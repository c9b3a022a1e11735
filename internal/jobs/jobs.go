// Package jobs defines the recurring background jobs and registers them with the scheduler.
package jobs

import (
	"errors"
	"fmt"

	"coachsync/internal/config"
	"coachsync/internal/domain"
	"coachsync/internal/models"
	"coachsync/internal/scheduler"

	"github.com/rs/zerolog"
)

type Deps struct {
	Config    *config.Config
	Store     NotificationCleaner
	Reminders domain.ReminderStore
	Trainers  domain.TrainerLister
	Syncer    domain.SessionSyncer
	Sender    domain.MessageSender // optional
	Backup    BackupRunner         // optional
	Logger    *zerolog.Logger
}

// Register adds every configured job to s in the stopped state.
func Register(s *scheduler.Scheduler, d Deps) error {
	if s == nil || d.Config == nil {
		return errors.New("jobs: scheduler and config are required")
	}
	if d.Store == nil || d.Reminders == nil {
		return errors.New("jobs: store is required")
	}
	logger := orNop(d.Logger)
	loc := d.Config.Location()

	dispatcher := NewReminderDispatcher(d.Reminders, d.Sender, loc, logger)
	if err := s.Register(models.JobSessionReminders, scheduler.Every(models.ReminderInterval), dispatcher.Run); err != nil {
		return err
	}

	cleanupAt, err := dailyAt(models.CleanupTime, d.Config)
	if err != nil {
		return err
	}
	if err := s.Register(models.JobNotificationCleanup, cleanupAt, CleanupNotifications(d.Store, logger, nil)); err != nil {
		return err
	}

	if every := d.Config.Scheduler.ResyncInterval.Std(); every > 0 {
		if d.Trainers == nil || d.Syncer == nil {
			return errors.New("jobs: calendar resync needs a trainer lister and a syncer")
		}
		if err := s.Register(models.JobCalendarResync, scheduler.Every(every), ResyncAll(d.Trainers, d.Syncer, logger)); err != nil {
			return err
		}
	}

	if d.Config.Backup.Enabled && d.Backup != nil {
		backupAt, err := dailyAt(d.Config.Backup.Time, d.Config)
		if err != nil {
			return err
		}
		if err := s.Register(models.JobDatabaseBackup, backupAt, d.Backup.Run); err != nil {
			return err
		}
	}
	return nil
}

func dailyAt(clock string, cfg *config.Config) (scheduler.Trigger, error) {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	return scheduler.Daily(hour, minute, cfg.Location())
}
