package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/lms-points/internal/models"
)

// ReadChallengeResponses подтягивает текущие ценности челленджа. Ответ на удалённый
// челлендж приходит с Challenge == nil.
func ReadChallengeResponses(ctx context.Context, database *sql.DB, userID int64) ([]models.ChallengeResponse, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT cr.user_id, cr.challenge_id, cr.status, cr.submitted_at,
		       c.class_number, c.number, c.topic, c.points_completed, c.points_tried
		FROM challenge_responses cr
		LEFT JOIN challenges c ON c.id = cr.challenge_id
		WHERE cr.user_id = $1
		ORDER BY cr.submitted_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChallengeResponse
	for rows.Next() {
		var (
			r                     models.ChallengeResponse
			classNum, num, pc, pt sql.NullInt64
			topic                 sql.NullString
		)
		if err := rows.Scan(&r.UserID, &r.ChallengeID, &r.Status, &r.SubmittedAt,
			&classNum, &num, &topic, &pc, &pt); err != nil {
			return nil, err
		}
		if classNum.Valid {
			r.Challenge = &models.ChallengePoints{
				ClassNumber:     int(classNum.Int64),
				Number:          int(num.Int64),
				Topic:           topic.String,
				PointsCompleted: int(pc.Int64),
				PointsTried:     int(pt.Int64),
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func UpsertChallengeResponse(ctx context.Context, database *sql.DB, userID, challengeID int64, status models.ChallengeStatus) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO challenge_responses (user_id, challenge_id, status, submitted_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, challenge_id) DO UPDATE
		SET status = EXCLUDED.status, submitted_at = EXCLUDED.submitted_at`,
		userID, challengeID, string(status))
	return err
}

const challengeColumns = `id, class_number, number, topic, description,
	points_completed, points_tried, points_not_completed, is_active`

func scanChallenge(row interface{ Scan(...any) error }) (*models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(&c.ID, &c.ClassNumber, &c.Number, &c.Topic, &c.Description,
		&c.PointsCompleted, &c.PointsTried, &c.PointsNotCompleted, &c.IsActive)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func ListChallenges(ctx context.Context, database *sql.DB, includeInactive bool) ([]models.Challenge, error) {
	q := `SELECT ` + challengeColumns + ` FROM challenges`
	if !includeInactive {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY class_number, number`

	rows, err := database.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func GetChallenge(ctx context.Context, database *sql.DB, id int64) (*models.Challenge, error) {
	c, err := scanChallenge(database.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func CreateChallenge(ctx context.Context, database *sql.DB, c models.Challenge) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO challenges (class_number, number, topic, description,
			points_completed, points_tried, points_not_completed, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		c.ClassNumber, c.Number, c.Topic, c.Description,
		c.PointsCompleted, c.PointsTried, c.PointsNotCompleted, c.IsActive,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrConflict
	}
	return id, err
}

// UpdateChallenge меняет челлендж целиком. pointsChanged: поменялась ли ценность
// Completed или Tried: тогда итоги ответивших надо пересчитать.
func UpdateChallenge(ctx context.Context, database *sql.DB, c models.Challenge) (pointsChanged bool, err error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var oldCompleted, oldTried int
	err = tx.QueryRowContext(ctx, `
		SELECT points_completed, points_tried FROM challenges WHERE id = $1 FOR UPDATE`, c.ID,
	).Scan(&oldCompleted, &oldTried)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE challenges SET
			class_number = $2, number = $3, topic = $4, description = $5,
			points_completed = $6, points_tried = $7, points_not_completed = $8, is_active = $9
		WHERE id = $1`,
		c.ID, c.ClassNumber, c.Number, c.Topic, c.Description,
		c.PointsCompleted, c.PointsTried, c.PointsNotCompleted, c.IsActive)
	if isUniqueViolation(err) {
		return false, ErrConflict
	}
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return oldCompleted != c.PointsCompleted || oldTried != c.PointsTried, nil
}

// ListChallengeResponders: кто отвечал на челлендж (для пересчёта после правки ценности).
func ListChallengeResponders(ctx context.Context, database *sql.DB, challengeID int64) ([]int64, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM challenge_responses WHERE challenge_id = $1 ORDER BY user_id`, challengeID)
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
