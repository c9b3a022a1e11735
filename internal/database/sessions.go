package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"github.com/google/uuid"
)

const sessionColumns = `id, trainer_id, client_id, start_at, duration_minutes, status, session_type,
               external_event_id, location, meeting_link, notes, last_synced_at, reminder_sent_at,
               created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.TrainingSession, error) {
	var (
		s                                        models.TrainingSession
		status                                   string
		externalID, location, meetingLink, notes sql.NullString
		lastSynced, reminderSent                 sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.TrainerID,
		&s.ClientID,
		&s.Start,
		&s.DurationMinutes,
		&status,
		&s.SessionType,
		&externalID,
		&location,
		&meetingLink,
		&notes,
		&lastSynced,
		&reminderSent,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	s.ExternalEventID = externalID.String
	s.Location = location.String
	s.MeetingLink = meetingLink.String
	s.Notes = notes.String
	s.LastSyncedAt = timePtr(lastSynced)
	s.ReminderSentAt = timePtr(reminderSent)
	s.Start = s.Start.UTC()
	return &s, nil
}

// CreateSession inserts a new session, assigning an id when none is set.
func (db *DB) CreateSession(ctx context.Context, s *models.TrainingSession) error {
	if s.DurationMinutes < models.MinSessionMinutes {
		return fmt.Errorf("create session: %w: duration %d", domain.ErrInvalidSession, s.DurationMinutes)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = models.StatusScheduled
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
        INSERT INTO training_sessions (` + sessionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := db.db.ExecContext(ctx, query,
		s.ID,
		s.TrainerID,
		s.ClientID,
		s.Start.UTC(),
		s.DurationMinutes,
		string(s.Status),
		s.SessionType,
		nullString(s.ExternalEventID),
		nullString(s.Location),
		nullString(s.MeetingLink),
		nullString(s.Notes),
		nullTime(s.LastSyncedAt),
		nullTime(s.ReminderSentAt),
		s.CreatedAt.UTC(),
		s.UpdatedAt,
	)
	return persistErr("create session", err)
}

func (db *DB) GetSession(ctx context.Context, id string) (*models.TrainingSession, error) {
	row := db.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM training_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err != nil {
		return nil, persistErr("get session "+id, err)
	}
	return s, nil
}

// SaveSession writes every mutable field of an existing session.
func (db *DB) SaveSession(ctx context.Context, s *models.TrainingSession) error {
	s.UpdatedAt = time.Now().UTC()
	query := `
        UPDATE training_sessions SET
            trainer_id = ?, client_id = ?, start_at = ?, duration_minutes = ?, status = ?,
            session_type = ?, external_event_id = ?, location = ?, meeting_link = ?, notes = ?,
            last_synced_at = ?, reminder_sent_at = ?, updated_at = ?
        WHERE id = ?
    `
	res, err := db.db.ExecContext(ctx, query,
		s.TrainerID,
		s.ClientID,
		s.Start.UTC(),
		s.DurationMinutes,
		string(s.Status),
		s.SessionType,
		nullString(s.ExternalEventID),
		nullString(s.Location),
		nullString(s.MeetingLink),
		nullString(s.Notes),
		nullTime(s.LastSyncedAt),
		nullTime(s.ReminderSentAt),
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return persistErr("save session "+s.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persistErr("save session "+s.ID, sql.ErrNoRows)
	}
	return nil
}

// SaveSyncState writes only the calendar link of a session. Other columns
// may be edited concurrently and are left as they are.
func (db *DB) SaveSyncState(ctx context.Context, sessionID, externalEventID string, lastSyncedAt *time.Time) error {
	res, err := db.db.ExecContext(ctx,
		`UPDATE training_sessions SET external_event_id = ?, last_synced_at = ?, updated_at = ? WHERE id = ?`,
		nullString(externalEventID), nullTime(lastSyncedAt), time.Now().UTC(), sessionID)
	if err != nil {
		return persistErr("save sync state "+sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persistErr("save sync state "+sessionID, sql.ErrNoRows)
	}
	return nil
}

// ListSessions returns a trainer's sessions starting within [from, to], ordered by start.
// An empty status list matches every status.
func (db *DB) ListSessions(ctx context.Context, trainerID string, from, to time.Time, statuses []models.SessionStatus) ([]*models.TrainingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM training_sessions
        WHERE trainer_id = ? AND start_at >= ? AND start_at <= ?`
	args := []any{trainerID, from.UTC(), to.UTC()}

	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY start_at, id`

	return db.querySessions(ctx, "list sessions", query, args...)
}

// ListSessionsNeedingReminder returns active sessions starting within [from, to]
// that have not been reminded yet.
func (db *DB) ListSessionsNeedingReminder(ctx context.Context, from, to time.Time) ([]*models.TrainingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM training_sessions
        WHERE reminder_sent_at IS NULL AND start_at >= ? AND start_at <= ?
        AND status IN (` + placeholders(len(models.SyncableStatuses)) + `)
        ORDER BY start_at, id`
	args := []any{from.UTC(), to.UTC()}
	for _, st := range models.SyncableStatuses {
		args = append(args, string(st))
	}
	return db.querySessions(ctx, "list sessions needing reminder", query, args...)
}

func (db *DB) MarkReminderSent(ctx context.Context, sessionID string, at time.Time) error {
	_, err := db.db.ExecContext(ctx,
		`UPDATE training_sessions SET reminder_sent_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), sessionID)
	return persistErr("mark reminder sent", err)
}

// DeleteSession removes a session row.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM training_sessions WHERE id = ?`, id)
	return persistErr("delete session", err)
}

func (db *DB) querySessions(ctx context.Context, op, query string, args ...any) ([]*models.TrainingSession, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr(op, err)
	}
	defer rows.Close()

	sessions := make([]*models.TrainingSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, persistErr(op, err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, err)
	}
	return sessions, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
