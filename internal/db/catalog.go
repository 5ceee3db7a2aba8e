package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/lms-points/internal/models"
)

// ReadActivityTotals: сколько активностей ожидается к занятию activeClass включительно.
func ReadActivityTotals(ctx context.Context, database *sql.DB, activeClass int) (models.ActivityTotals, error) {
	t := models.ActivityTotals{Classes: activeClass}
	err := database.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM videos WHERE class_number <= $1),
			(SELECT COUNT(*) FROM quizzes WHERE class_number <= $1),
			(SELECT COUNT(*) FROM challenges WHERE is_active AND class_number <= $1)`,
		activeClass,
	).Scan(&t.Videos, &t.Quizzes, &t.Challenges)
	if err != nil {
		return models.ActivityTotals{}, err
	}
	return t, nil
}
