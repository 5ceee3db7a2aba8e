package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/observability"
	"github.com/Spok95/lms-points/internal/points"
)

const unreadLimit = 50

type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	UnreadNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error
	TelegramChatID(ctx context.Context, userID int64) (int64, error)
}

// Mirror: внешний канал доставки (телеграм). Может отсутствовать.
type Mirror interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Service struct {
	store  Store
	hub    *Hub
	mirror Mirror
	log    *zap.Logger

	// nil: любой Origin
	origins map[string]bool
}

func NewService(store Store, hub *Hub, mirror Mirror, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, hub: hub, mirror: mirror, log: log}
}

func (s *Service) Hub() *Hub { return s.hub }

// Publish сохраняет уведомление и раздаёт его живым подписчикам и в телеграм.
// Ошибкой считается только неудачная запись; доставка best effort.
func (s *Service) Publish(ctx context.Context, n models.Notification) (models.Notification, error) {
	if err := s.store.InsertNotification(ctx, &n); err != nil {
		return n, fmt.Errorf("insert notification: %w", err)
	}
	s.hub.Publish(n)

	if s.mirror == nil {
		return n, nil
	}
	chatID, err := s.store.TelegramChatID(ctx, n.UserID)
	if err != nil {
		s.log.Warn("telegram chat lookup failed", zap.Int64("user_id", n.UserID), zap.Error(err))
		return n, nil
	}
	if chatID == 0 {
		return n, nil
	}
	text := n.Title
	if n.Body != "" {
		text += "\n" + n.Body
	}
	if err := s.mirror.SendText(ctx, chatID, text); err != nil {
		s.log.Warn("telegram mirror failed", zap.Int64("user_id", n.UserID), zap.Error(err))
	}
	return n, nil
}

func (s *Service) Unread(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.store.UnreadNotifications(ctx, userID, unreadLimit)
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.store.MarkNotificationRead(ctx, userID, id)
}

// PointsUpdated: колбэк для Aggregator.OnCorrection.
func (s *Service) PointsUpdated(ctx context.Context, r points.ReconcileResult) {
	n := models.Notification{
		UserID: r.UserID,
		Kind:   models.KindPointsUpdated,
		Title:  "Points updated",
		Body:   fmt.Sprintf("Your total is now %d points (was %d).", r.Current, r.Previous),
	}
	if _, err := s.Publish(ctx, n); err != nil {
		s.log.Error("points notification failed", zap.Int64("user_id", r.UserID), zap.Error(err))
		observability.CaptureUserErr(err, r.UserID)
	}
}

func (s *Service) QuizGraded(ctx context.Context, g models.QuizGrade) error {
	n := models.Notification{
		UserID: g.UserID,
		Kind:   models.KindQuizGraded,
		Title:  fmt.Sprintf("Quiz %d graded", g.QuizNumber),
		Body:   fmt.Sprintf("Grade: %d.", g.Grade),
	}
	if g.Feedback != nil && *g.Feedback != "" {
		n.Body += " " + *g.Feedback
	}
	_, err := s.Publish(ctx, n)
	return err
}
