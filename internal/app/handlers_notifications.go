package app

import (
	"errors"
	"net/http"

	"github.com/Spok95/lms-points/internal/db"
	"github.com/Spok95/lms-points/internal/models"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := s.notify.Unread(r.Context(), userID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) readNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad notification id")
		return
	}
	err := s.notify.MarkRead(r.Context(), userID, id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "notification not found")
	case err != nil:
		s.internalError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) notificationStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	s.notify.ServeWS(w, r, userID)
}
