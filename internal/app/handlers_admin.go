package app

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/lms-points/internal/db"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/points"
)

type quizGradeRequest struct {
	UserID     int64   `json:"user_id" validate:"required,gt=0"`
	QuizNumber int     `json:"quiz_number" validate:"required,gt=0"`
	Grade      *int    `json:"grade" validate:"required,oneof=0 5 10"`
	Feedback   *string `json:"feedback" validate:"omitempty,max=2000"`
}

// studentExists: 404, если такого пользователя нет.
func (s *Server) studentExists(w http.ResponseWriter, r *http.Request, userID int64) bool {
	_, err := s.store.UserByID(r.Context(), userID)
	switch {
	case errors.Is(err, points.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return false
	case err != nil:
		s.internalError(w, r, err)
		return false
	}
	return true
}

func (s *Server) putQuizGrade(w http.ResponseWriter, r *http.Request) {
	var req quizGradeRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.studentExists(w, r, req.UserID) {
		return
	}
	g := models.QuizGrade{UserID: req.UserID, QuizNumber: req.QuizNumber, Grade: *req.Grade, Feedback: req.Feedback}
	gradedAt, err := s.store.SaveQuizGrade(r.Context(), g)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	g.GradedAt = &gradedAt
	s.queue.Enqueue(g.UserID)

	if err := s.notify.QuizGraded(r.Context(), g); err != nil {
		s.log.Warn("quiz graded notification failed", zap.Int64("user_id", g.UserID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, g)
}

type attendanceRequest struct {
	UserID      int64  `json:"user_id" validate:"required,gt=0"`
	ClassNumber int    `json:"class_number" validate:"required,gt=0"`
	Status      string `json:"status" validate:"required,oneof=Present Absent Leave"`
	SessionDate string `json:"session_date" validate:"omitempty,datetime=2006-01-02"`
	Topic       string `json:"topic" validate:"max=200"`
}

func (s *Server) putAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.studentExists(w, r, req.UserID) {
		return
	}
	date := s.now().In(s.loc)
	if req.SessionDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.SessionDate, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad session_date")
			return
		}
		date = d
	}
	rec := models.AttendanceRecord{
		UserID:      req.UserID,
		ClassNumber: req.ClassNumber,
		Status:      models.AttendanceStatus(req.Status),
		SessionDate: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc),
		Topic:       req.Topic,
	}
	if err := s.store.SaveAttendance(r.Context(), rec); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.queue.Enqueue(rec.UserID)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listChallenges(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	items, err := s.store.Challenges(r.Context(), all)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Challenge{}
	}
	writeJSON(w, http.StatusOK, items)
}

type challengeRequest struct {
	ClassNumber        int    `json:"class_number" validate:"required,gt=0"`
	Number             int    `json:"number" validate:"required,gt=0"`
	Topic              string `json:"topic" validate:"required,max=200"`
	Description        string `json:"description" validate:"max=4000"`
	PointsCompleted    *int   `json:"points_completed" validate:"omitempty,min=0"`
	PointsTried        *int   `json:"points_tried" validate:"omitempty,min=0"`
	PointsNotCompleted *int   `json:"points_not_completed" validate:"omitempty,min=0"`
	IsActive           *bool  `json:"is_active"`
}

// model: незаданные ценности берутся по умолчанию: 10 / 5 / 0, активен.
func (req challengeRequest) model(id int64) models.Challenge {
	c := models.Challenge{
		ID:              id,
		ClassNumber:     req.ClassNumber,
		Number:          req.Number,
		Topic:           req.Topic,
		Description:     req.Description,
		PointsCompleted: 10,
		PointsTried:     5,
		IsActive:        true,
	}
	if req.PointsCompleted != nil {
		c.PointsCompleted = *req.PointsCompleted
	}
	if req.PointsTried != nil {
		c.PointsTried = *req.PointsTried
	}
	if req.PointsNotCompleted != nil {
		c.PointsNotCompleted = *req.PointsNotCompleted
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return c
}

func (s *Server) createChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !decode(w, r, &req) {
		return
	}
	c := req.model(0)
	id, err := s.store.CreateChallenge(r.Context(), c)
	switch {
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, "challenge with this class and number already exists")
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}
	c.ID = id
	writeJSON(w, http.StatusCreated, c)
}

type challengeUpdateResponse struct {
	Challenge       models.Challenge `json:"challenge"`
	RecomputeQueued int              `json:"recompute_queued"`
}

// updateChallenge: правка ценности пересчитывает всех, кто уже ответил.
func (s *Server) updateChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad challenge id")
		return
	}
	var req challengeRequest
	if !decode(w, r, &req) {
		return
	}
	c := req.model(id)
	changed, err := s.store.UpdateChallenge(r.Context(), c)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, "challenge with this class and number already exists")
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}

	resp := challengeUpdateResponse{Challenge: c}
	if changed {
		ids, err := s.store.ChallengeResponders(r.Context(), id)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		s.queue.Enqueue(ids...)
		resp.RecomputeQueued = len(ids)
		s.log.Info("challenge points changed, recompute queued",
			zap.Int64("challenge_id", id), zap.Int("users", len(ids)))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	o, err := s.store.Overview(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
