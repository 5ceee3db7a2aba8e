package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SeedCatalog заполняет пустой каталог демо-данными для локальной разработки:
// по два видео, квиз и два челленджа на первые три занятия.
func SeedCatalog(ctx context.Context, database *sql.DB) error {
	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	topics := []string{"Basics", "Control flow", "Functions"}
	for i, topic := range topics {
		class := i + 1
		for part := 1; part <= 2; part++ {
			if _, err := tx.ExecContext(ctx, `INSERT INTO videos (class_number, title) VALUES ($1, $2)`,
				class, fmt.Sprintf("%s, part %d", topic, part)); err != nil {
				return fmt.Errorf("insert video: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quizzes (quiz_number, class_number, title) VALUES ($1, $2, $3)
			ON CONFLICT (quiz_number) DO NOTHING`, class, class, topic+" quiz"); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		for n := 1; n <= 2; n++ {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO challenges (class_number, number, topic)
				VALUES ($1, $2, $3)
				ON CONFLICT (class_number, number) DO NOTHING`,
				class, n, fmt.Sprintf("%s challenge %d", topic, n)); err != nil {
				return fmt.Errorf("insert challenge: %w", err)
			}
		}
	}
	return tx.Commit()
}
