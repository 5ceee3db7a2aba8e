package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/lms-points/internal/ctxutil"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/points"
)

// Store: адаптер пакета над *sql.DB: источник активности, хранилище итога
// и уведомлений. Каждый запрос идёт со стандартным таймаутом БД.
type Store struct {
	DB *sql.DB
}

func NewStore(database *sql.DB) *Store { return &Store{DB: database} }

func (s *Store) VideoCompletions(ctx context.Context, userID int64) ([]models.VideoCompletion, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ReadVideoCompletions(ctx, s.DB, userID)
}

func (s *Store) WatchProgress(ctx context.Context, userID int64) ([]models.WatchProgress, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ReadWatchProgress(ctx, s.DB, userID)
}

func (s *Store) QuizGrades(ctx context.Context, userID int64) ([]models.QuizGrade, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ReadQuizGrades(ctx, s.DB, userID)
}

func (s *Store) ChallengeResponses(ctx context.Context, userID int64) ([]models.ChallengeResponse, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ReadChallengeResponses(ctx, s.DB, userID)
}

func (s *Store) Attendance(ctx context.Context, userID int64, statuses ...models.AttendanceStatus) ([]models.AttendanceRecord, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ReadAttendance(ctx, s.DB, userID, statuses...)
}

func (s *Store) ActivityTotals(ctx context.Context, classNumber int) (models.ActivityTotals, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ReadActivityTotals(ctx, s.DB, classNumber)
}

func (s *Store) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	u, err := GetUserByID(ctx, s.DB, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, points.ErrUserNotFound
	}
	return u, err
}

func (s *Store) SetUserPoints(ctx context.Context, userID int64, total int, expectedVersion int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return SetUserPointsIfVersion(ctx, s.DB, userID, total, expectedVersion)
}

func (s *Store) StudentStandings(ctx context.Context) ([]models.StudentPoints, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ListStudentPoints(ctx, s.DB)
}

func (s *Store) StudentIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ListStudentIDs(ctx, s.DB)
}

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return InsertNotification(ctx, s.DB, n)
}

func (s *Store) UnreadNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ListUnreadNotifications(ctx, s.DB, userID, limit)
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return MarkNotificationRead(ctx, s.DB, userID, id)
}

// TelegramChatID: привязанный чат; 0, если не привязан.
func (s *Store) TelegramChatID(ctx context.Context, userID int64) (int64, error) {
	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.TelegramID, nil
}

func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.DB.PingContext(ctx)
	return time.Since(start), err
}
