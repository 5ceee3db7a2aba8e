package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/lms-points/internal/models"
)

func ReadQuizGrades(ctx context.Context, database *sql.DB, userID int64) ([]models.QuizGrade, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT user_id, quiz_number, grade, feedback, graded_at
		FROM quiz_grades
		WHERE user_id = $1
		ORDER BY quiz_number`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuizGrade
	for rows.Next() {
		var (
			q        models.QuizGrade
			feedback sql.NullString
			graded   sql.NullTime
		)
		if err := rows.Scan(&q.UserID, &q.QuizNumber, &q.Grade, &feedback, &graded); err != nil {
			return nil, err
		}
		if feedback.Valid {
			q.Feedback = &feedback.String
		}
		if graded.Valid {
			t := graded.Time
			q.GradedAt = &t
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpsertQuizGrade: оценка перезаписывается целиком, graded_at ставится сейчас.
func UpsertQuizGrade(ctx context.Context, database *sql.DB, g models.QuizGrade) (time.Time, error) {
	var gradedAt time.Time
	err := database.QueryRowContext(ctx, `
		INSERT INTO quiz_grades (user_id, quiz_number, grade, feedback, graded_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, quiz_number) DO UPDATE
		SET grade = EXCLUDED.grade, feedback = EXCLUDED.feedback, graded_at = EXCLUDED.graded_at
		RETURNING graded_at`,
		g.UserID, g.QuizNumber, g.Grade, g.Feedback,
	).Scan(&gradedAt)
	return gradedAt, err
}

func CountQuizzes(ctx context.Context, database *sql.DB, upToClass int) (int, error) {
	var n int
	err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes WHERE class_number <= $1`, upToClass).Scan(&n)
	return n, err
}
