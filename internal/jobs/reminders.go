package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"github.com/rs/zerolog"
)

// ReminderDispatcher notifies clients about sessions starting within the lead time.
// Delivery is at least once: a crash between notifying and marking repeats the reminder.
type ReminderDispatcher struct {
	store    domain.ReminderStore
	sender   domain.MessageSender
	leadTime time.Duration
	loc      *time.Location
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewReminderDispatcher builds a dispatcher. sender may be nil, in which case
// reminders are only stored as notifications.
func NewReminderDispatcher(store domain.ReminderStore, sender domain.MessageSender, loc *time.Location, logger *zerolog.Logger) *ReminderDispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderDispatcher{
		store:    store,
		sender:   sender,
		leadTime: models.ReminderLeadTime,
		loc:      loc,
		logger:   orNop(logger),
		now:      time.Now,
	}
}

// Run sends every due reminder. Individual failures do not stop the batch.
func (d *ReminderDispatcher) Run(ctx context.Context) error {
	now := d.now()
	sessions, err := d.store.ListSessionsNeedingReminder(ctx, now, now.Add(d.leadTime))
	if err != nil {
		return fmt.Errorf("list sessions needing reminder: %w", err)
	}

	failed := 0
	for _, s := range sessions {
		if err := d.remind(ctx, s, now); err != nil {
			failed++
			d.logger.Warn().Err(err).Str("session_id", s.ID).Msg("reminder failed")
		}
	}

	if len(sessions) > 0 {
		d.logger.Info().Int("due", len(sessions)).Int("failed", failed).Msg("session reminders dispatched")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reminders failed", failed, len(sessions))
	}
	return nil
}

func (d *ReminderDispatcher) remind(ctx context.Context, s *models.TrainingSession, now time.Time) error {
	client, err := d.store.GetClient(ctx, s.ClientID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load client: %w", err)
	}

	text := reminderText(s, d.loc)
	if err := d.store.CreateNotification(ctx, &models.Notification{
		UserID:    s.ClientID,
		Kind:      models.NotificationKindSessionReminder,
		Message:   text,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if d.sender != nil && client != nil && client.TelegramChatID != 0 {
		if err := d.sender.SendText(client.TelegramChatID, text); err != nil {
			// the stored notification still reaches the client in the app
			d.logger.Warn().Err(err).Str("session_id", s.ID).Msg("telegram reminder not delivered")
		}
	}

	if err := d.store.MarkReminderSent(ctx, s.ID, now); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func reminderText(s *models.TrainingSession, loc *time.Location) string {
	kind := s.SessionType
	if kind == "" {
		kind = "training session"
	}
	text := fmt.Sprintf("Reminder: %s on %s (%d min)", kind, s.Start.In(loc).Format("Mon 02 Jan 15:04 MST"), s.DurationMinutes)
	if s.Location != "" {
		text += ", " + s.Location
	}
	if s.MeetingLink != "" {
		text += "\n" + s.MeetingLink
	}
	return text
}
