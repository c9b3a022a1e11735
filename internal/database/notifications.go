package database

import (
	"context"
	"time"

	"coachsync/internal/models"
)

// CreateNotification stores a notification and fills in its id.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	res, err := db.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, kind, message, is_read, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.Kind, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return persistErr("create notification", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistErr("create notification", err)
	}
	n.ID = id
	return nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := db.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	return persistErr("mark notification read", err)
}

// ListNotifications returns a user's notifications, newest first.
func (db *DB) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, user_id, kind, message, is_read, created_at
         FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, persistErr("list notifications", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, persistErr("list notifications", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list notifications", err)
	}
	return out, nil
}

// DeleteOldReadNotifications removes read notifications created before olderThan.
// Unread notifications are kept regardless of age.
func (db *DB) DeleteOldReadNotifications(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := db.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, persistErr("delete old notifications", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistErr("delete old notifications", err)
	}
	return n, nil
}
