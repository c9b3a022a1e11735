package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/interval"
	"coachsync/internal/metrics"
	"coachsync/internal/models"

	"github.com/rs/zerolog"
)

// SyncService pushes training sessions to the trainer's remote calendar.
type SyncService struct {
	store       domain.Store
	calendar    domain.CalendarClient
	credentials domain.CredentialProvider
	detector    *ConflictDetector
	logger      *zerolog.Logger
	now         func() time.Time
}

var _ domain.SessionSyncer = (*SyncService)(nil)

func NewSyncService(store domain.Store, calendar domain.CalendarClient, credentials domain.CredentialProvider, logger *zerolog.Logger) *SyncService {
	logger = orNop(logger)
	return &SyncService{
		store:       store,
		calendar:    calendar,
		credentials: credentials,
		detector:    NewConflictDetector(calendar, logger),
		logger:      logger,
		now:         time.Now,
	}
}

// SyncOne creates or updates the remote event for session. A new event id is
// written back to the store before success is reported; remote errors are
// returned as they are.
func (s *SyncService) SyncOne(ctx context.Context, session *models.TrainingSession, cfg *models.CalendarSyncConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("sync session: nil sync config: %w", domain.ErrInvalidSession)
	}
	target, err := s.target(ctx, cfg)
	if err != nil {
		return "", err
	}
	return s.syncWithTarget(ctx, session, target)
}

func (s *SyncService) syncWithTarget(ctx context.Context, session *models.TrainingSession, target domain.CalendarTarget) (string, error) {
	if session == nil {
		return "", fmt.Errorf("sync session: nil session: %w", domain.ErrInvalidSession)
	}
	span, err := session.Interval()
	if err != nil {
		return "", fmt.Errorf("sync session %s: %w: %w", session.ID, domain.ErrInvalidSession, err)
	}

	draft, err := s.buildDraft(ctx, session, span)
	if err != nil {
		return "", err
	}

	if session.ExternalEventID != "" {
		if err := s.calendar.UpdateEvent(ctx, target, session.ExternalEventID, draft); err != nil {
			return "", PolicyInteractive.Apply(s.logger, err, "")
		}
		now := s.now().UTC()
		session.LastSyncedAt = &now
		if err := s.store.SaveSyncState(ctx, session.ID, session.ExternalEventID, &now); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to record sync time")
		}
		return session.ExternalEventID, nil
	}

	eventID, err := s.calendar.CreateEvent(ctx, target, draft)
	if err != nil {
		return "", PolicyInteractive.Apply(s.logger, err, "")
	}

	now := s.now().UTC()
	session.ExternalEventID = eventID
	session.LastSyncedAt = &now
	if err := s.store.SaveSyncState(ctx, session.ID, eventID, &now); err != nil {
		// the remote event now has no local reference; the next sync creates a duplicate
		session.ExternalEventID = ""
		session.LastSyncedAt = nil
		s.logger.Error().
			Err(err).
			Str("session_id", session.ID).
			Str("trainer_id", session.TrainerID).
			Str("calendar_id", target.CalendarID).
			Str("external_event_id", eventID).
			Msg("orphaned remote event: failed to store external event id")
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return "", fmt.Errorf("write back event %s for session %s: %w", eventID, session.ID, err)
	}

	s.logger.Info().Str("session_id", session.ID).Str("external_event_id", eventID).Msg("session pushed to calendar")
	return eventID, nil
}

// RemoveOne deletes the session's remote event, if any. Failures are logged
// and never returned. The in-memory id is cleared once the event is gone.
func (s *SyncService) RemoveOne(ctx context.Context, session *models.TrainingSession) {
	if session == nil || session.ExternalEventID == "" {
		return
	}
	log := s.logger.With().Str("session_id", session.ID).Str("external_event_id", session.ExternalEventID).Logger()

	cfg, err := s.store.GetSyncConfig(ctx, session.TrainerID)
	if err != nil {
		_ = PolicyCleanup.Apply(&log, err, "remote event left in place: sync config unavailable")
		return
	}
	target, err := s.target(ctx, cfg)
	if err != nil {
		_ = PolicyCleanup.Apply(&log, err, "remote event left in place: no credential")
		return
	}
	if err := s.calendar.DeleteEvent(ctx, target, session.ExternalEventID); err != nil {
		_ = PolicyCleanup.Apply(&log, err, "failed to delete remote event")
		return
	}

	session.ExternalEventID = ""
	log.Info().Msg("remote event deleted")
}

// ResyncTrainer pushes every scheduled or confirmed session in the rolling
// window to the trainer's calendar, one at a time. Individual failures are
// logged and skipped, as is a failure to record the finish time. It returns
// the number of sessions synced.
func (s *SyncService) ResyncTrainer(ctx context.Context, trainerID string) (int, error) {
	log := s.logger.With().Str("trainer_id", trainerID).Logger()

	cfg, err := s.store.GetSyncConfig(ctx, trainerID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resync %s: load sync config: %w", trainerID, err)
	}
	if !cfg.SyncEnabled {
		return 0, nil
	}

	now := s.now()
	from, to := now.Add(-models.ResyncLookBack), now.Add(models.ResyncLookAhead)
	sessions, err := s.store.ListSessions(ctx, trainerID, from, to, models.SyncableStatuses)
	if err != nil {
		return 0, fmt.Errorf("resync %s: list sessions: %w", trainerID, err)
	}

	synced, failed := 0, 0
	target, err := s.target(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Int("sessions", len(sessions)).Msg("resync skipped: no credential")
		failed = len(sessions)
	} else {
		for _, session := range sessions {
			if !session.Status.IsSyncable() || session.Start.Before(from) || session.Start.After(to) {
				continue
			}
			if _, err := s.syncWithTarget(ctx, session, target); err != nil {
				failed++
				_ = PolicyBatch.Apply(&log, err, "session sync failed: "+session.ID)
				continue
			}
			synced++
		}
	}
	metrics.AddResync(synced, failed)

	finished := s.now().UTC()
	if err := s.store.UpdateSyncConfig(ctx, trainerID, models.SyncConfigUpdate{LastSyncAt: &finished}); err != nil {
		// the sessions are already pushed; only the bookkeeping is lost
		log.Error().Err(err).Msg("failed to record last sync time")
	}

	log.Info().Int("synced", synced).Int("failed", failed).Msg("trainer resync finished")
	return synced, nil
}

// CheckConflict checks a prospective session slot against the trainer's calendar.
// Trainers without calendar sync never conflict.
func (s *SyncService) CheckConflict(ctx context.Context, trainerID string, start time.Time, durationMinutes int, excludeEventID string) (bool, error) {
	probe := models.TrainingSession{Start: start, DurationMinutes: durationMinutes}
	span, err := probe.Interval()
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidSession, err)
	}

	cfg, err := s.store.GetSyncConfig(ctx, trainerID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !cfg.SyncEnabled {
		return false, nil
	}

	target, err := s.target(ctx, cfg)
	if err != nil {
		return false, err
	}
	return s.detector.HasConflict(ctx, target, span, excludeEventID)
}

// HasConflict runs the conflict detector against an explicit target.
func (s *SyncService) HasConflict(ctx context.Context, target domain.CalendarTarget, candidate interval.Interval, excludeEventID string) (bool, error) {
	return s.detector.HasConflict(ctx, target, candidate, excludeEventID)
}

func (s *SyncService) target(ctx context.Context, cfg *models.CalendarSyncConfig) (domain.CalendarTarget, error) {
	cred, err := s.credentials.CredentialFor(ctx, cfg)
	if err != nil {
		return domain.CalendarTarget{}, fmt.Errorf("credential for trainer %s: %w: %w", cfg.TrainerID, domain.ErrRemoteRejected, err)
	}
	return domain.CalendarTarget{Credential: cred, CalendarID: cfg.CalendarOrDefault()}, nil
}

func (s *SyncService) buildDraft(ctx context.Context, session *models.TrainingSession, span interval.Interval) (models.EventDraft, error) {
	client, err := s.store.GetClient(ctx, session.ClientID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn().Str("session_id", session.ID).Str("client_id", session.ClientID).Msg("client not found, event has no attendee")
		client = &models.Client{ID: session.ClientID}
	case err != nil:
		return models.EventDraft{}, fmt.Errorf("sync session %s: load client: %w", session.ID, err)
	}
	return buildDraft(session, client, span), nil
}

func buildDraft(session *models.TrainingSession, client *models.Client, span interval.Interval) models.EventDraft {
	name := strings.TrimSpace(client.DisplayName)
	if name == "" {
		name = "client"
	}

	lines := []string{
		"Session type: " + orDefault(session.SessionType, "training"),
		fmt.Sprintf("Duration: %d min", session.DurationMinutes),
	}
	if session.Notes != "" {
		lines = append(lines, "Notes: "+session.Notes)
	}
	if session.Location != "" {
		lines = append(lines, "Location: "+session.Location)
	}
	if session.MeetingLink != "" {
		lines = append(lines, "Meeting link: "+session.MeetingLink)
	}

	draft := models.EventDraft{
		Summary:     "Training with " + name,
		Description: strings.Join(lines, "\n"),
		Location:    orDefault(session.Location, session.MeetingLink),
		Start:       span.Start,
		End:         span.End,
	}
	if client.Email != "" {
		draft.Attendees = []string{client.Email}
	}
	return draft
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
