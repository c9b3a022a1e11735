package domain

import (
	"context"
	"time"

	"coachsync/internal/models"

	"golang.org/x/oauth2"
)

// Store is the data-access surface the sync engine needs from the platform database.
type Store interface {
	GetSession(ctx context.Context, id string) (*models.TrainingSession, error)
	// SaveSyncState writes only the external event id and last sync time.
	SaveSyncState(ctx context.Context, sessionID, externalEventID string, lastSyncedAt *time.Time) error
	ListSessions(ctx context.Context, trainerID string, from, to time.Time, statuses []models.SessionStatus) ([]*models.TrainingSession, error)
	GetClient(ctx context.Context, id string) (*models.Client, error)
	GetSyncConfig(ctx context.Context, trainerID string) (*models.CalendarSyncConfig, error)
	UpdateSyncConfig(ctx context.Context, trainerID string, update models.SyncConfigUpdate) error
	DeleteOldReadNotifications(ctx context.Context, olderThan time.Time) (int64, error)
}

// ReminderStore is used by the reminder job.
type ReminderStore interface {
	ListSessionsNeedingReminder(ctx context.Context, from, to time.Time) ([]*models.TrainingSession, error)
	MarkReminderSent(ctx context.Context, sessionID string, at time.Time) error
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
}

// TrainerLister enumerates trainers with calendar sync turned on.
type TrainerLister interface {
	ListSyncEnabledTrainers(ctx context.Context) ([]string, error)
}

// CalendarTarget identifies one remote calendar and the credential used to reach it.
type CalendarTarget struct {
	Credential oauth2.TokenSource
	CalendarID string
}

// CalendarClient is the remote calendar operation set. Implementations keep no
// state beyond what each call receives.
type CalendarClient interface {
	CreateEvent(ctx context.Context, target CalendarTarget, draft models.EventDraft) (string, error)
	UpdateEvent(ctx context.Context, target CalendarTarget, eventID string, draft models.EventDraft) error
	DeleteEvent(ctx context.Context, target CalendarTarget, eventID string) error
	ListEvents(ctx context.Context, target CalendarTarget, from, to time.Time) ([]models.RemoteEvent, error)
}

// CredentialProvider hands out pre-authenticated, self-refreshing credentials.
type CredentialProvider interface {
	CredentialFor(ctx context.Context, cfg *models.CalendarSyncConfig) (oauth2.TokenSource, error)
}

// JobRunRepository keeps the recent execution history of scheduled jobs.
type JobRunRepository interface {
	RecordRun(ctx context.Context, run models.JobRun) error
	LastRun(ctx context.Context, job string) (*models.JobRun, error)
	RecentRuns(ctx context.Context, job string, limit int) ([]models.JobRun, error)
}

// MessageSender delivers a plain text message to a chat.
type MessageSender interface {
	SendText(chatID int64, text string) error
}

// SessionSyncer is the invocation surface of the session synchronizer.
type SessionSyncer interface {
	SyncOne(ctx context.Context, session *models.TrainingSession, cfg *models.CalendarSyncConfig) (string, error)
	RemoveOne(ctx context.Context, session *models.TrainingSession)
	ResyncTrainer(ctx context.Context, trainerID string) (int, error)
	CheckConflict(ctx context.Context, trainerID string, start time.Time, durationMinutes int, excludeEventID string) (bool, error)
}
