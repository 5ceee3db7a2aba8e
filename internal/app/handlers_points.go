package app

import (
	"errors"
	"mime"
	"net/http"
	"sort"
	"strconv"

	"github.com/Spok95/lms-points/internal/ctxutil"
	"github.com/Spok95/lms-points/internal/export"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/points"
)

// targetUser: id из пути, если вызывающему можно его смотреть.
func (s *Server) targetUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad user id")
		return 0, false
	}
	if !ctxutil.CanAccessUser(r.Context(), id) {
		writeError(w, http.StatusForbidden, "forbidden")
		return 0, false
	}
	return id, true
}

func (s *Server) pointsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, points.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, points.ErrNotRanked):
		writeError(w, http.StatusNotFound, "user is not ranked")
	case errors.Is(err, points.ErrStaleTotal):
		writeError(w, http.StatusConflict, "points changed concurrently, retry")
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) (*points.Stats, bool) {
	id, ok := s.targetUser(w, r)
	if !ok {
		return nil, false
	}
	class := s.activeClass
	if v := r.URL.Query().Get("class"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "class must be a positive integer")
			return nil, false
		}
		class = n
	}
	st, err := s.agg.Stats(r.Context(), id, class)
	if err != nil {
		s.pointsError(w, r, err)
		return nil, false
	}
	return st, true
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	if st, ok := s.stats(w, r); ok {
		writeJSON(w, http.StatusOK, st)
	}
}

type ledgerResponse struct {
	UserID  int64                `json:"user_id"`
	Entries []models.LedgerEntry `json:"entries"`
}

func (s *Server) userLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	entries, err := s.agg.Ledger(r.Context(), id)
	if err != nil {
		s.pointsError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, ledgerResponse{UserID: id, Entries: entries})
}

func (s *Server) userLedgerXLSX(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stats(w, r)
	if !ok {
		return
	}
	wb, err := export.Ledger(st)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer wb.Close()
	writeXLSX(w, export.LedgerFilename(st.Name, s.now().In(s.loc)), wb)
}

func (s *Server) userRank(w http.ResponseWriter, r *http.Request) {
	id, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	st, err := s.agg.Rank(r.Context(), id)
	if err != nil {
		s.pointsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) userReconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	res, err := s.agg.Reconcile(r.Context(), id)
	if err != nil {
		s.pointsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) leaderboardXLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.StudentStandings(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].UserID < rows[j].UserID
	})
	wb, err := export.Leaderboard(rows)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer wb.Close()
	writeXLSX(w, export.LeaderboardFilename(s.now().In(s.loc)), wb)
}

func writeXLSX(w http.ResponseWriter, filename string, wb *export.Workbook) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	_, _ = wb.WriteTo(w)
}
