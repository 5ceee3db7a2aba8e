package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/lms-points/internal/models"
)

func GetUserByID(ctx context.Context, database *sql.DB, id int64) (*models.User, error) {
	var (
		u  models.User
		tg sql.NullInt64
	)
	err := database.QueryRowContext(ctx, `
		SELECT id, name, role, points, points_version, telegram_id, created_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Role, &u.Points, &u.PointsVersion, &tg, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.TelegramID = tg.Int64
	return &u, nil
}

// SetUserPointsIfVersion: запись итога с проверкой версии (compare-and-swap).
// false: версию уже сдвинула другая запись, итог не тронут.
func SetUserPointsIfVersion(ctx context.Context, database *sql.DB, userID int64, total int, version int64) (bool, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE users
		SET points = $1, points_version = points_version + 1
		WHERE id = $2 AND points_version = $3`,
		total, userID, version)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListStudentPoints: все ученики с сохранёнными баллами, по убыванию.
func ListStudentPoints(ctx context.Context, database *sql.DB) ([]models.StudentPoints, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, name, points FROM users
		WHERE role = 'student'
		ORDER BY points DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StudentPoints
	for rows.Next() {
		var s models.StudentPoints
		if err := rows.Scan(&s.UserID, &s.Name, &s.Points); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func ListStudentIDs(ctx context.Context, database *sql.DB) ([]int64, error) {
	rows, err := database.QueryContext(ctx, `SELECT id FROM users WHERE role = 'student' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetOverview: сводка для админки.
func GetOverview(ctx context.Context, database *sql.DB) (*models.Overview, error) {
	var o models.Overview
	err := database.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'student'),
			(SELECT COALESCE(SUM(points), 0) FROM users WHERE role = 'student'),
			(SELECT COALESCE(AVG(points), 0) FROM users WHERE role = 'student'),
			(SELECT COALESCE(MAX(points), 0) FROM users WHERE role = 'student'),
			(SELECT COUNT(*) FROM videos),
			(SELECT COUNT(*) FROM challenges WHERE is_active),
			(SELECT COUNT(*) FROM quiz_grades),
			(SELECT COUNT(*) FROM attendance WHERE status = 'Present')
	`).Scan(&o.Students, &o.TotalPoints, &o.AveragePoints, &o.MaxPoints,
		&o.Videos, &o.Challenges, &o.QuizGrades, &o.PresentRecords)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateUser: заведение пользователя (сид и тесты; в проде пользователей создаёт бэкенд регистрации).
func CreateUser(ctx context.Context, database *sql.DB, name string, role models.Role, telegramID *int64) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO users (name, role, telegram_id) VALUES ($1, $2, $3) RETURNING id`,
		name, string(role), telegramID,
	).Scan(&id)
	return id, err
}
