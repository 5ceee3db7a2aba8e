package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/lms-points/internal/models"
)

func InsertNotification(ctx context.Context, database *sql.DB, n *models.Notification) error {
	return database.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, kind, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		n.UserID, string(n.Kind), n.Title, n.Body,
	).Scan(&n.ID, &n.CreatedAt)
}

func ListUnreadNotifications(ctx context.Context, database *sql.DB, userID int64, limit int) ([]models.Notification, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, user_id, kind, title, body, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND NOT is_read
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead: только своё уведомление; ErrNotFound, если его нет.
func MarkNotificationRead(ctx context.Context, database *sql.DB, userID, id int64) error {
	res, err := database.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
