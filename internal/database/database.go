package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coachsync/internal/domain"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the SQLite implementation of the data-access interfaces the
// synchronization engine and the scheduled jobs depend on.
type DB struct {
	db     *sql.DB
	path   string
	logger *zerolog.Logger
}

var (
	_ domain.Store         = (*DB)(nil)
	_ domain.ReminderStore = (*DB)(nil)
	_ domain.TrainerLister = (*DB)(nil)
)

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	// Создаем директорию для БД, если её нет
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db, path: path, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS clients (
            id TEXT PRIMARY KEY,
            display_name TEXT NOT NULL,
            email TEXT,
            telegram_chat_id INTEGER,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS training_sessions (
            id TEXT PRIMARY KEY,
            trainer_id TEXT NOT NULL,
            client_id TEXT NOT NULL,
            start_at DATETIME NOT NULL,
            duration_minutes INTEGER NOT NULL CHECK (duration_minutes >= 15),
            status TEXT NOT NULL DEFAULT 'scheduled',
            session_type TEXT NOT NULL DEFAULT '',
            external_event_id TEXT,
            location TEXT,
            meeting_link TEXT,
            notes TEXT,
            last_synced_at DATETIME,
            reminder_sent_at DATETIME,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS calendar_sync_configs (
            trainer_id TEXT PRIMARY KEY,
            calendar_id TEXT NOT NULL DEFAULT 'primary',
            owner_email TEXT NOT NULL DEFAULT '',
            sync_enabled BOOLEAN NOT NULL DEFAULT 0,
            last_sync_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL,
            kind TEXT NOT NULL,
            message TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_trainer_start ON training_sessions(trainer_id, start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_reminder ON training_sessions(reminder_sent_at, start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_configs_enabled ON calendar_sync_configs(sync_enabled)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_read_created ON notifications(is_read, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) PingContext(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Close() error {
	return db.db.Close()
}

// persistErr tags a driver failure with ErrPersistence, mapping missing rows to ErrNotFound.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
