package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/lms-points/internal/jobs"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/notify"
	"github.com/Spok95/lms-points/internal/points"
)

const testSecret = "test-secret"

type harness struct {
	store   *memStore
	queue   *jobs.RecomputeQueue
	agg     *points.Aggregator
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newMemStore()
	st.addUser(1, "Alice", models.Student, 0)
	st.addUser(2, "Bob", models.Student, 250)
	st.addUser(9, "Ms. Smith", models.Instructor, 0)
	st.videos[10] = models.Video{ID: 10, ClassNumber: 1, Title: "Intro"}
	st.challenges[5] = models.Challenge{ID: 5, ClassNumber: 1, Number: 1, Topic: "FizzBuzz", PointsCompleted: 10, PointsTried: 5, IsActive: true}
	st.challenges[6] = models.Challenge{ID: 6, ClassNumber: 1, Number: 2, Topic: "Closed", PointsCompleted: 10, PointsTried: 5}

	agg := points.New(st, st, nil)
	ns := notify.NewService(st, notify.NewHub(8), nil, nil)
	agg.OnCorrection(ns.PointsUpdated)
	q := jobs.NewRecomputeQueue(agg, nil)

	srv := NewServer(st, agg, q, ns, nil, Options{JWTSecret: testSecret, CORSOrigins: []string{"*"}, ActiveClass: 1})
	return &harness{store: st, queue: q, agg: agg, handler: srv.Handler()}
}

func token(t *testing.T, userID int64, role models.Role) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (h *harness) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestAuth(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/api/users/1/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}})
	bad, err := forged.SignedString([]byte("other"))
	require.NoError(t, err)
	rr = h.do(t, http.MethodGet, "/api/users/1/stats", bad, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{Role: "root", RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}})
	raw, err := unknownRole.SignedString([]byte(testSecret))
	require.NoError(t, err)
	rr = h.do(t, http.MethodGet, "/api/users/1/stats", raw, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStats_AccessRules(t *testing.T) {
	h := newHarness(t)
	alice := token(t, 1, models.Student)

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/users/1/stats", alice, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/users/2/stats", alice, nil).Code)

	instructor := token(t, 9, models.Instructor)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/users/2/stats", instructor, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/users/404/stats", instructor, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/users/1/stats?class=zero", alice, nil).Code)
}

func TestStats_ReadOnly(t *testing.T) {
	h := newHarness(t)
	alice := token(t, 1, models.Student)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/me/videos/10/complete", alice, nil).Code)

	rr := h.do(t, http.MethodGet, "/api/users/1/stats", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var st points.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.Equal(t, 100, st.Breakdown.Total)
	assert.Equal(t, 0, st.PersistedPoints)
	assert.False(t, st.InSync)
	assert.Equal(t, 0, h.store.users[1].Points)
}

func TestReconcile_WritesAndNotifies(t *testing.T) {
	h := newHarness(t)
	alice := token(t, 1, models.Student)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/me/videos/10/complete", alice, nil).Code)

	rr := h.do(t, http.MethodPost, "/api/users/1/reconcile", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var res points.ReconcileResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Changed)
	assert.Equal(t, 100, res.Current)

	rr = h.do(t, http.MethodGet, "/api/me/notifications", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var notes []models.Notification
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, models.KindPointsUpdated, notes[0].Kind)

	path := "/api/me/notifications/" + strconv.FormatInt(notes[0].ID, 10) + "/read"
	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodPost, path, alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, path, token(t, 2, models.Student), nil).Code)
}

func TestLedgerAndExport(t *testing.T) {
	h := newHarness(t)
	alice := token(t, 1, models.Student)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/me/videos/10/complete", alice, nil).Code)

	rr := h.do(t, http.MethodGet, "/api/users/1/ledger", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body ledgerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "video:10", body.Entries[0].ID)
	assert.Equal(t, "Intro", body.Entries[0].Title)

	rr = h.do(t, http.MethodGet, "/api/users/1/ledger.xlsx", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Points ledger - Alice")
	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Ledger")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRank(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/api/users/1/rank", token(t, 1, models.Student), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var st points.Standing
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.Equal(t, 2, st.Rank)
	assert.Equal(t, 2, st.TotalStudents)

	rr = h.do(t, http.MethodGet, "/api/users/9/rank", token(t, 9, models.Instructor), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSaveProgress(t *testing.T) {
	h := newHarness(t)
	alice := token(t, 1, models.Student)

	rr := h.do(t, http.MethodPut, "/api/me/videos/10/progress", alice, map[string]int{"percentage": 150})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"percentage":"max"`)

	rr = h.do(t, http.MethodPut, "/api/me/videos/77/progress", alice, map[string]int{"percentage": 50})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(t, http.MethodPut, "/api/me/videos/10/progress", alice, map[string]int{"percentage": 60})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, http.MethodPut, "/api/me/videos/10/progress", alice, map[string]int{"percentage": 30})
	require.Equal(t, http.StatusOK, rr.Code)
	var w models.WatchProgress
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &w))
	assert.Equal(t, 60, w.WatchPercentage)
	assert.Equal(t, 50, w.PointsAwarded)
	assert.Equal(t, 1, h.queue.Len())
}

func TestCompleteVideo_Idempotent(t *testing.T) {
	h := newHarness(t)
	alice := token(t, 1, models.Student)

	rr := h.do(t, http.MethodPost, "/api/me/videos/10/complete", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"newly_completed":true`)

	require.NoError(t, h.queue.Drain(context.Background()))

	rr = h.do(t, http.MethodPost, "/api/me/videos/10/complete", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"newly_completed":false`)
	assert.Zero(t, h.queue.Len())
	assert.Equal(t, 100, h.store.users[1].Points)
}

func TestRespondChallenge(t *testing.T) {
	h := newHarness(t)
	alice := token(t, 1, models.Student)

	rr := h.do(t, http.MethodPut, "/api/me/challenges/5/response", alice, map[string]string{"status": "Done"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = h.do(t, http.MethodPut, "/api/me/challenges/6/response", alice, map[string]string{"status": "Tried"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(t, http.MethodPut, "/api/me/challenges/5/response", alice, map[string]string{"status": "Not Completed"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, h.queue.Len())
}

func TestAdmin_RequiresManager(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/api/admin/overview", token(t, 1, models.Student), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(t, http.MethodGet, "/api/admin/overview", token(t, 9, models.Instructor), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var o models.Overview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &o))
	assert.Equal(t, 2, o.Students)
	assert.Equal(t, 250, o.TotalPoints)
}

func TestAdmin_QuizGradeNotifies(t *testing.T) {
	h := newHarness(t)
	instructor := token(t, 9, models.Instructor)

	rr := h.do(t, http.MethodPut, "/api/admin/quiz-grades", instructor, map[string]any{"user_id": 1, "quiz_number": 2})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"grade":"required"`)

	rr = h.do(t, http.MethodPut, "/api/admin/quiz-grades", instructor, map[string]any{"user_id": 404, "quiz_number": 2, "grade": 5})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(t, http.MethodPut, "/api/admin/quiz-grades", instructor, map[string]any{"user_id": 1, "quiz_number": 2, "grade": 5})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, h.queue.Len())

	notes, _ := h.store.UnreadNotifications(context.Background(), 1, 10)
	require.Len(t, notes, 1)
	assert.Equal(t, models.KindQuizGraded, notes[0].Kind)

	require.NoError(t, h.queue.Drain(context.Background()))
	assert.Equal(t, 5, h.store.users[1].Points)
}

func TestAdmin_QuizGradeOnlyManualScale(t *testing.T) {
	h := newHarness(t)
	instructor := token(t, 9, models.Instructor)

	for _, g := range []int{7, 1000, -5} {
		rr := h.do(t, http.MethodPut, "/api/admin/quiz-grades", instructor, map[string]any{"user_id": 1, "quiz_number": 3, "grade": g})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "grade=%d", g)
		assert.Contains(t, rr.Body.String(), `"grade":"oneof"`)
	}
	assert.Zero(t, h.queue.Len())
	require.NoError(t, h.queue.Drain(context.Background()))
	assert.Equal(t, 0, h.store.users[1].Points)

	for _, g := range []int{0, 5, 10} {
		rr := h.do(t, http.MethodPut, "/api/admin/quiz-grades", instructor, map[string]any{"user_id": 1, "quiz_number": 3, "grade": g})
		assert.Equal(t, http.StatusOK, rr.Code, "grade=%d", g)
	}
	require.NoError(t, h.queue.Drain(context.Background()))
	assert.Equal(t, 10, h.store.users[1].Points)
}

func TestAdmin_Attendance(t *testing.T) {
	h := newHarness(t)
	instructor := token(t, 9, models.Instructor)

	rr := h.do(t, http.MethodPut, "/api/admin/attendance", instructor, map[string]any{
		"user_id": 1, "class_number": 1, "status": "Present", "session_date": "10/03/2025",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = h.do(t, http.MethodPut, "/api/admin/attendance", instructor, map[string]any{
		"user_id": 1, "class_number": 1, "status": "Present", "session_date": "2025-03-10", "topic": "Basics",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, h.queue.Drain(context.Background()))
	assert.Equal(t, 100, h.store.users[1].Points)
}

func TestAdmin_ChallengeRevaluationQueuesResponders(t *testing.T) {
	h := newHarness(t)
	instructor := token(t, 9, models.Instructor)
	alice := token(t, 1, models.Student)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPut, "/api/me/challenges/5/response", alice, map[string]string{"status": "Completed"}).Code)
	require.NoError(t, h.queue.Drain(context.Background()))
	require.Equal(t, 10, h.store.users[1].Points)

	rr := h.do(t, http.MethodPut, "/api/admin/challenges/5", instructor, map[string]any{
		"class_number": 1, "number": 1, "topic": "FizzBuzz", "points_completed": 40,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var resp challengeUpdateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RecomputeQueued)
	assert.Equal(t, 5, resp.Challenge.PointsTried)

	require.NoError(t, h.queue.Drain(context.Background()))
	assert.Equal(t, 40, h.store.users[1].Points)
}

func TestAdmin_CreateChallenge(t *testing.T) {
	h := newHarness(t)
	instructor := token(t, 9, models.Instructor)

	rr := h.do(t, http.MethodPost, "/api/admin/challenges", instructor, map[string]any{"class_number": 2, "number": 1, "topic": "Maps"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var c models.Challenge
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c))
	assert.Equal(t, 10, c.PointsCompleted)
	assert.True(t, c.IsActive)

	rr = h.do(t, http.MethodPost, "/api/admin/challenges", instructor, map[string]any{"class_number": 2, "number": 1, "topic": "Again"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(t, http.MethodGet, "/api/admin/challenges", instructor, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []models.Challenge
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestAdmin_LeaderboardExport(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/api/admin/leaderboard.xlsx", token(t, 9, models.Admin), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/vnd.openxmlformats"))

	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Leaderboard")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "Bob", "250"}, rows[1])
}
