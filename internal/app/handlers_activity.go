package app

import (
	"errors"
	"net/http"

	"github.com/Spok95/lms-points/internal/ctxutil"
	"github.com/Spok95/lms-points/internal/db"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/points"
)

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := ctxutil.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return id, ok
}

type progressRequest struct {
	Percentage *int `json:"percentage" validate:"required,min=0,max=100"`
}

// saveProgress: прогресс просмотра только растёт; итог пересчитает очередь.
func (s *Server) saveProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	videoID, ok := pathID(r, "videoID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad video id")
		return
	}
	var req progressRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.videoExists(w, r, videoID) {
		return
	}

	prev, err := s.store.WatchProgressFor(r.Context(), userID, videoID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	merged := points.MergeWatchProgress(prev, models.WatchProgress{
		UserID:          userID,
		VideoID:         videoID,
		WatchPercentage: *req.Percentage,
	})
	saved, err := s.store.SaveWatchProgress(r.Context(), merged)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.queue.Enqueue(userID)
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) completeVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	videoID, ok := pathID(r, "videoID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad video id")
		return
	}
	if !s.videoExists(w, r, videoID) {
		return
	}
	created, err := s.store.CompleteVideo(r.Context(), userID, videoID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if created {
		s.queue.Enqueue(userID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"video_id": videoID, "newly_completed": created})
}

func (s *Server) videoExists(w http.ResponseWriter, r *http.Request, videoID int64) bool {
	_, err := s.store.Video(r.Context(), videoID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "video not found")
		return false
	case err != nil:
		s.internalError(w, r, err)
		return false
	}
	return true
}

type challengeResponseRequest struct {
	Status string `json:"status" validate:"required,oneof='Completed' 'Tried' 'Not Completed'"`
}

func (s *Server) respondChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	challengeID, ok := pathID(r, "challengeID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad challenge id")
		return
	}
	var req challengeResponseRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := s.store.Challenge(r.Context(), challengeID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}
	if !c.IsActive {
		writeError(w, http.StatusConflict, "challenge is closed")
		return
	}

	status := models.ChallengeStatus(req.Status)
	if err := s.store.SaveChallengeResponse(r.Context(), userID, challengeID, status); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.queue.Enqueue(userID)
	writeJSON(w, http.StatusOK, models.ChallengeResponse{
		UserID:      userID,
		ChallengeID: challengeID,
		Status:      status,
		SubmittedAt: s.now(),
	})
}
