package database

import (
	"context"
	"database/sql"
	"time"

	"coachsync/internal/models"

	"github.com/google/uuid"
)

// CreateClient inserts a client record, assigning an id when none is set.
func (db *DB) CreateClient(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	chatID := sql.NullInt64{Int64: c.TelegramChatID, Valid: c.TelegramChatID != 0}
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO clients (id, display_name, email, telegram_chat_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.DisplayName, nullString(c.Email), chatID, time.Now().UTC())
	return persistErr("create client", err)
}

func (db *DB) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var (
		c      models.Client
		email  sql.NullString
		chatID sql.NullInt64
	)
	err := db.db.QueryRowContext(ctx,
		`SELECT id, display_name, email, telegram_chat_id FROM clients WHERE id = ?`, id,
	).Scan(&c.ID, &c.DisplayName, &email, &chatID)
	if err != nil {
		return nil, persistErr("get client "+id, err)
	}
	c.Email = email.String
	c.TelegramChatID = chatID.Int64
	return &c, nil
}
