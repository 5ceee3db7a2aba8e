package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/Spok95/lms-points/internal/models"
)

// ReadAttendance: отметки пользователя; пустой statuses: все статусы.
func ReadAttendance(ctx context.Context, database *sql.DB, userID int64, statuses ...models.AttendanceStatus) ([]models.AttendanceRecord, error) {
	q := `
		SELECT user_id, class_number, status, session_date, topic
		FROM attendance
		WHERE user_id = $1`
	args := []any{userID}
	if len(statuses) > 0 {
		ss := make([]string, 0, len(statuses))
		for _, s := range statuses {
			ss = append(ss, string(s))
		}
		q += ` AND status = ANY($2)`
		args = append(args, pq.Array(ss))
	}
	q += ` ORDER BY class_number`

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		if err := rows.Scan(&r.UserID, &r.ClassNumber, &r.Status, &r.SessionDate, &r.Topic); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertAttendance: одна отметка на пользователя и занятие, повтор перезаписывает.
func UpsertAttendance(ctx context.Context, database *sql.DB, r models.AttendanceRecord) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO attendance (user_id, class_number, status, session_date, topic)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, class_number) DO UPDATE
		SET status = EXCLUDED.status, session_date = EXCLUDED.session_date, topic = EXCLUDED.topic`,
		r.UserID, r.ClassNumber, string(r.Status), r.SessionDate, r.Topic)
	return err
}
