package database

import (
	"context"
	"database/sql"
	"strings"

	"coachsync/internal/models"
)

// UpsertSyncConfig creates or replaces a trainer's calendar sync settings.
func (db *DB) UpsertSyncConfig(ctx context.Context, cfg *models.CalendarSyncConfig) error {
	query := `
        INSERT INTO calendar_sync_configs (trainer_id, calendar_id, owner_email, sync_enabled, last_sync_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(trainer_id) DO UPDATE SET
            calendar_id = excluded.calendar_id,
            owner_email = excluded.owner_email,
            sync_enabled = excluded.sync_enabled,
            last_sync_at = excluded.last_sync_at
    `
	_, err := db.db.ExecContext(ctx, query,
		cfg.TrainerID,
		cfg.CalendarOrDefault(),
		cfg.OwnerEmail,
		cfg.SyncEnabled,
		nullTime(cfg.LastSyncAt),
	)
	return persistErr("upsert sync config", err)
}

func (db *DB) GetSyncConfig(ctx context.Context, trainerID string) (*models.CalendarSyncConfig, error) {
	var (
		cfg      models.CalendarSyncConfig
		lastSync sql.NullTime
	)
	err := db.db.QueryRowContext(ctx,
		`SELECT trainer_id, calendar_id, owner_email, sync_enabled, last_sync_at
         FROM calendar_sync_configs WHERE trainer_id = ?`, trainerID,
	).Scan(&cfg.TrainerID, &cfg.CalendarID, &cfg.OwnerEmail, &cfg.SyncEnabled, &lastSync)
	if err != nil {
		return nil, persistErr("get sync config "+trainerID, err)
	}
	cfg.LastSyncAt = timePtr(lastSync)
	return &cfg, nil
}

// UpdateSyncConfig applies the non-nil fields of update. Missing trainers yield ErrNotFound.
func (db *DB) UpdateSyncConfig(ctx context.Context, trainerID string, update models.SyncConfigUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.CalendarID != nil {
		calendarID := *update.CalendarID
		if calendarID == "" {
			calendarID = models.DefaultCalendarID
		}
		sets = append(sets, "calendar_id = ?")
		args = append(args, calendarID)
	}
	if update.SyncEnabled != nil {
		sets = append(sets, "sync_enabled = ?")
		args = append(args, *update.SyncEnabled)
	}
	if update.LastSyncAt != nil {
		sets = append(sets, "last_sync_at = ?")
		args = append(args, update.LastSyncAt.UTC())
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, trainerID)
	res, err := db.db.ExecContext(ctx,
		`UPDATE calendar_sync_configs SET `+strings.Join(sets, ", ")+` WHERE trainer_id = ?`, args...)
	if err != nil {
		return persistErr("update sync config", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persistErr("update sync config "+trainerID, sql.ErrNoRows)
	}
	return nil
}

// ListSyncEnabledTrainers returns the ids of trainers with sync turned on, sorted.
func (db *DB) ListSyncEnabledTrainers(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT trainer_id FROM calendar_sync_configs WHERE sync_enabled = 1 ORDER BY trainer_id`)
	if err != nil {
		return nil, persistErr("list sync enabled trainers", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, persistErr("list sync enabled trainers", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list sync enabled trainers", err)
	}
	return ids, nil
}
