package db

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/lms-points/internal/ctxutil"
	"github.com/Spok95/lms-points/internal/models"
)

func (s *Store) Video(ctx context.Context, id int64) (*models.Video, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return GetVideo(ctx, s.DB, id)
}

func (s *Store) CompleteVideo(ctx context.Context, userID, videoID int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return MarkVideoCompleted(ctx, s.DB, userID, videoID)
}

// WatchProgressFor: nil без ошибки, если пользователь видео ещё не открывал.
func (s *Store) WatchProgressFor(ctx context.Context, userID, videoID int64) (*models.WatchProgress, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	w, err := GetWatchProgress(ctx, s.DB, userID, videoID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return w, err
}

func (s *Store) SaveWatchProgress(ctx context.Context, w models.WatchProgress) (*models.WatchProgress, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return UpsertWatchProgress(ctx, s.DB, w)
}

func (s *Store) SaveQuizGrade(ctx context.Context, g models.QuizGrade) (time.Time, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return UpsertQuizGrade(ctx, s.DB, g)
}

func (s *Store) SaveAttendance(ctx context.Context, r models.AttendanceRecord) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return UpsertAttendance(ctx, s.DB, r)
}

func (s *Store) SaveChallengeResponse(ctx context.Context, userID, challengeID int64, status models.ChallengeStatus) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return UpsertChallengeResponse(ctx, s.DB, userID, challengeID, status)
}

func (s *Store) Challenge(ctx context.Context, id int64) (*models.Challenge, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return GetChallenge(ctx, s.DB, id)
}

func (s *Store) Challenges(ctx context.Context, includeInactive bool) ([]models.Challenge, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ListChallenges(ctx, s.DB, includeInactive)
}

func (s *Store) CreateChallenge(ctx context.Context, c models.Challenge) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return CreateChallenge(ctx, s.DB, c)
}

func (s *Store) UpdateChallenge(ctx context.Context, c models.Challenge) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return UpdateChallenge(ctx, s.DB, c)
}

func (s *Store) ChallengeResponders(ctx context.Context, challengeID int64) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ListChallengeResponders(ctx, s.DB, challengeID)
}

func (s *Store) Overview(ctx context.Context) (*models.Overview, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return GetOverview(ctx, s.DB)
}
