package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/lms-points/internal/models"
)

// ReadVideoCompletions: завершённые видео; у удалённого видео название пустое.
func ReadVideoCompletions(ctx context.Context, database *sql.DB, userID int64) ([]models.VideoCompletion, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT vc.user_id, vc.video_id, COALESCE(v.title, ''), vc.is_completed, vc.completed_at
		FROM video_completions vc
		LEFT JOIN videos v ON v.id = vc.video_id
		WHERE vc.user_id = $1 AND vc.is_completed
		ORDER BY vc.completed_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VideoCompletion
	for rows.Next() {
		var c models.VideoCompletion
		if err := rows.Scan(&c.UserID, &c.VideoID, &c.Title, &c.IsCompleted, &c.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func ReadWatchProgress(ctx context.Context, database *sql.DB, userID int64) ([]models.WatchProgress, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT wp.user_id, wp.video_id, COALESCE(v.title, ''), wp.watch_percentage, wp.points_awarded, wp.updated_at
		FROM watch_progress wp
		LEFT JOIN videos v ON v.id = wp.video_id
		WHERE wp.user_id = $1
		ORDER BY wp.updated_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WatchProgress
	for rows.Next() {
		var w models.WatchProgress
		if err := rows.Scan(&w.UserID, &w.VideoID, &w.Title, &w.WatchPercentage, &w.PointsAwarded, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func GetWatchProgress(ctx context.Context, database *sql.DB, userID, videoID int64) (*models.WatchProgress, error) {
	var w models.WatchProgress
	err := database.QueryRowContext(ctx, `
		SELECT user_id, video_id, watch_percentage, points_awarded, updated_at
		FROM watch_progress WHERE user_id = $1 AND video_id = $2`, userID, videoID,
	).Scan(&w.UserID, &w.VideoID, &w.WatchPercentage, &w.PointsAwarded, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func GetVideo(ctx context.Context, database *sql.DB, id int64) (*models.Video, error) {
	var v models.Video
	err := database.QueryRowContext(ctx, `SELECT id, class_number, title FROM videos WHERE id = $1`, id).
		Scan(&v.ID, &v.ClassNumber, &v.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func CreateVideo(ctx context.Context, database *sql.DB, classNumber int, title string) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO videos (class_number, title) VALUES ($1, $2) RETURNING id`,
		classNumber, title).Scan(&id)
	return id, err
}

// MarkVideoCompleted: повторная отметка ничего не меняет; false: видео уже было завершено.
func MarkVideoCompleted(ctx context.Context, database *sql.DB, userID, videoID int64) (bool, error) {
	res, err := database.ExecContext(ctx, `
		INSERT INTO video_completions (user_id, video_id, is_completed, completed_at)
		VALUES ($1, $2, TRUE, now())
		ON CONFLICT (user_id, video_id) DO UPDATE
		SET is_completed = TRUE, completed_at = now()
		WHERE NOT video_completions.is_completed`,
		userID, videoID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// UpsertWatchProgress сохраняет прогресс, не опуская ни процент, ни баллы.
// Возвращает строку после слияния.
func UpsertWatchProgress(ctx context.Context, database *sql.DB, w models.WatchProgress) (*models.WatchProgress, error) {
	out := models.WatchProgress{UserID: w.UserID, VideoID: w.VideoID}
	err := database.QueryRowContext(ctx, `
		INSERT INTO watch_progress (user_id, video_id, watch_percentage, points_awarded, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, video_id) DO UPDATE SET
			watch_percentage = GREATEST(watch_progress.watch_percentage, EXCLUDED.watch_percentage),
			points_awarded   = GREATEST(watch_progress.points_awarded, EXCLUDED.points_awarded),
			updated_at = CASE
				WHEN EXCLUDED.watch_percentage > watch_progress.watch_percentage THEN now()
				ELSE watch_progress.updated_at
			END
		RETURNING watch_percentage, points_awarded, updated_at`,
		w.UserID, w.VideoID, w.WatchPercentage, w.PointsAwarded,
	).Scan(&out.WatchPercentage, &out.PointsAwarded, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
