package points

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/lms-points/internal/metrics"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/observability"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrStaleTotal: итог успел поменять кто-то другой между чтением и записью.
	ErrStaleTotal = errors.New("points total changed concurrently")
	ErrNotRanked  = errors.New("user is not ranked")
)

// Имена источников для метрик, логов и Snapshot.Failed.
const (
	SourceVideos     = "video_completions"
	SourceWatch      = "watch_progress"
	SourceQuizzes    = "quiz_grades"
	SourceChallenges = "challenge_responses"
	SourceAttendance = "attendance"
	SourceTotals     = "activity_totals"
)

// Source: чтение активности пользователя.
type Source interface {
	VideoCompletions(ctx context.Context, userID int64) ([]models.VideoCompletion, error)
	WatchProgress(ctx context.Context, userID int64) ([]models.WatchProgress, error)
	QuizGrades(ctx context.Context, userID int64) ([]models.QuizGrade, error)
	ChallengeResponses(ctx context.Context, userID int64) ([]models.ChallengeResponse, error)
	Attendance(ctx context.Context, userID int64, statuses ...models.AttendanceStatus) ([]models.AttendanceRecord, error)
	ActivityTotals(ctx context.Context, classNumber int) (models.ActivityTotals, error)
}

// Store: сохранённый итог баллов и список учеников для рейтинга.
type Store interface {
	UserByID(ctx context.Context, userID int64) (*models.User, error)
	// SetUserPoints пишет итог, только если версия не изменилась; false: версия ушла вперёд.
	SetUserPoints(ctx context.Context, userID int64, total int, expectedVersion int64) (bool, error)
	StudentStandings(ctx context.Context) ([]models.StudentPoints, error)
}

// Snapshot: всё, что прочитано по пользователю за один проход.
type Snapshot struct {
	Videos     []models.VideoCompletion
	Watch      []models.WatchProgress
	Quizzes    []models.QuizGrade
	Challenges []models.ChallengeResponse
	Attendance []models.AttendanceRecord
	Failed     []string
}

type Breakdown struct {
	Video      int `json:"video"`
	Quiz       int `json:"quiz"`
	Challenge  int `json:"challenge"`
	Attendance int `json:"attendance"`
	Total      int `json:"total"`
}

type Stats struct {
	UserID          int64                `json:"user_id"`
	Name            string               `json:"name"`
	Breakdown       Breakdown            `json:"breakdown"`
	PersistedPoints int                  `json:"persisted_points"`
	InSync          bool                 `json:"in_sync"`
	Completion      float64              `json:"completion_percent"`
	Ledger          []models.LedgerEntry `json:"ledger"`
	PartialSources  []string             `json:"partial_sources,omitempty"`
}

type ReconcileResult struct {
	UserID   int64    `json:"user_id"`
	Previous int      `json:"previous"`
	Current  int      `json:"current"`
	Changed  bool     `json:"changed"`
	Partial  []string `json:"partial_sources,omitempty"`
}

type Aggregator struct {
	src          Source
	store        Store
	log          *zap.Logger
	locks        *userLocks
	now          func() time.Time
	onCorrection func(ctx context.Context, r ReconcileResult)
}

func New(src Source, store Store, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		src:   src,
		store: store,
		log:   log,
		locks: newUserLocks(),
		now:   time.Now,
	}
}

// OnCorrection: колбэк после успешной записи исправленного итога (уведомления).
func (a *Aggregator) OnCorrection(fn func(ctx context.Context, r ReconcileResult)) {
	a.onCorrection = fn
}

// Collect читает все источники параллельно. Упавший источник считается пустым,
// а его имя попадает в Snapshot.Failed.
func (a *Aggregator) Collect(ctx context.Context, userID int64) Snapshot {
	var s Snapshot
	var g errgroup.Group
	var videoErr, watchErr, quizErr, chErr, attErr error

	g.Go(func() error {
		s.Videos, videoErr = a.src.VideoCompletions(ctx, userID)
		return nil
	})
	g.Go(func() error {
		s.Watch, watchErr = a.src.WatchProgress(ctx, userID)
		return nil
	})
	g.Go(func() error {
		s.Quizzes, quizErr = a.src.QuizGrades(ctx, userID)
		return nil
	})
	g.Go(func() error {
		s.Challenges, chErr = a.src.ChallengeResponses(ctx, userID)
		return nil
	})
	g.Go(func() error {
		// Absent не нужен ни истории, ни итогу.
		s.Attendance, attErr = a.src.Attendance(ctx, userID, models.Present, models.Leave)
		return nil
	})
	_ = g.Wait()

	if videoErr != nil {
		s.Videos = nil
		s.Failed = append(s.Failed, a.sourceFailed(userID, SourceVideos, videoErr))
	}
	if watchErr != nil {
		s.Watch = nil
		s.Failed = append(s.Failed, a.sourceFailed(userID, SourceWatch, watchErr))
	}
	if quizErr != nil {
		s.Quizzes = nil
		s.Failed = append(s.Failed, a.sourceFailed(userID, SourceQuizzes, quizErr))
	}
	if chErr != nil {
		s.Challenges = nil
		s.Failed = append(s.Failed, a.sourceFailed(userID, SourceChallenges, chErr))
	}
	if attErr != nil {
		s.Attendance = nil
		s.Failed = append(s.Failed, a.sourceFailed(userID, SourceAttendance, attErr))
	}
	return s
}

func (a *Aggregator) sourceFailed(userID int64, source string, err error) string {
	metrics.SourceFailures.WithLabelValues(source).Inc()
	a.log.Warn("activity source read failed, using empty result",
		zap.String("source", source), zap.Int64("user_id", userID), zap.Error(err))
	observability.CaptureUserErr(fmt.Errorf("read %s: %w", source, err), userID)
	return source
}

// ComputeTotal: итог по снимку. Чистая функция: на одном снимке всегда один ответ.
func ComputeTotal(s Snapshot) Breakdown {
	var b Breakdown

	videos := make(map[int64]struct{}, len(s.Videos))
	for _, v := range s.Videos {
		if !v.IsCompleted {
			continue
		}
		if _, dup := videos[v.VideoID]; dup {
			continue
		}
		videos[v.VideoID] = struct{}{}
		b.Video += VideoPoints
	}

	for _, q := range s.Quizzes {
		b.Quiz += q.Grade
	}

	for _, r := range s.Challenges {
		b.Challenge += ChallengePoints(r)
	}

	// Leave в итог не идёт, только в историю.
	classes := make(map[int]struct{}, len(s.Attendance))
	for _, r := range s.Attendance {
		if r.Status != models.Present {
			continue
		}
		if _, dup := classes[r.ClassNumber]; dup {
			continue
		}
		classes[r.ClassNumber] = struct{}{}
		b.Attendance += AttendancePoints
	}

	b.Total = b.Video + b.Quiz + b.Challenge + b.Attendance
	return b
}

// Total: свежий итог пользователя без записи в хранилище.
func (a *Aggregator) Total(ctx context.Context, userID int64) (Breakdown, error) {
	if _, err := a.store.UserByID(ctx, userID); err != nil {
		return Breakdown{}, err
	}
	return ComputeTotal(a.Collect(ctx, userID)), nil
}

// Ledger: полная история начислений, новые сверху.
func (a *Aggregator) Ledger(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	if _, err := a.store.UserByID(ctx, userID); err != nil {
		return nil, err
	}
	return BuildLedger(a.Collect(ctx, userID), a.now()), nil
}

// Stats: сводка для дашборда. Только чтение: расхождение с сохранённым итогом
// видно по InSync, исправляет его Reconcile.
func (a *Aggregator) Stats(ctx context.Context, userID int64, activeClass int) (*Stats, error) {
	u, err := a.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap := a.Collect(ctx, userID)

	totals, err := a.src.ActivityTotals(ctx, activeClass)
	if err != nil {
		snap.Failed = append(snap.Failed, a.sourceFailed(userID, SourceTotals, err))
		totals = models.ActivityTotals{}
	}

	b := ComputeTotal(snap)
	return &Stats{
		UserID:          u.ID,
		Name:            u.Name,
		Breakdown:       b,
		PersistedPoints: u.Points,
		InSync:          u.Points == b.Total,
		Completion:      completion(snap, totals),
		Ledger:          BuildLedger(snap, a.now()),
		PartialSources:  snap.Failed,
	}, nil
}

func completion(s Snapshot, t models.ActivityTotals) float64 {
	expected := t.Videos + t.Quizzes + t.Challenges + t.Classes
	if expected <= 0 {
		return 0
	}

	done := 0
	videos := make(map[int64]struct{})
	for _, v := range s.Videos {
		if v.IsCompleted {
			videos[v.VideoID] = struct{}{}
		}
	}
	done += len(videos)
	done += len(s.Quizzes)
	for _, r := range s.Challenges {
		if r.Status != models.ChallengeNotCompleted {
			done++
		}
	}
	classes := make(map[int]struct{})
	for _, r := range s.Attendance {
		if r.Status == models.Present {
			classes[r.ClassNumber] = struct{}{}
		}
	}
	done += len(classes)

	p := float64(done) * 100 / float64(expected)
	if p > 100 {
		p = 100
	}
	return p
}

// Reconcile пересчитывает итог и, если он расходится с сохранённым, пишет ровно один раз.
// Запись условная по версии; проигранная гонка возвращает ErrStaleTotal без повтора.
// Колбэк onCorrection вызывается уже после снятия блокировки пользователя.
func (a *Aggregator) Reconcile(ctx context.Context, userID int64) (ReconcileResult, error) {
	res, err := a.reconcileLocked(ctx, userID)
	if err == nil && res.Changed && a.onCorrection != nil {
		a.onCorrection(ctx, res)
	}
	return res, err
}

func (a *Aggregator) reconcileLocked(ctx context.Context, userID int64) (ReconcileResult, error) {
	unlock := a.locks.lock(userID)
	defer unlock()

	u, err := a.store.UserByID(ctx, userID)
	if err != nil {
		return ReconcileResult{UserID: userID}, err
	}
	snap := a.Collect(ctx, userID)
	b := ComputeTotal(snap)

	res := ReconcileResult{
		UserID:   userID,
		Previous: u.Points,
		Current:  u.Points,
		Partial:  snap.Failed,
	}
	if b.Total == u.Points {
		metrics.Reconciliations.WithLabelValues("in_sync").Inc()
		return res, nil
	}

	ok, err := a.store.SetUserPoints(ctx, userID, b.Total, u.PointsVersion)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		observability.CaptureUserErr(err, userID)
		return res, fmt.Errorf("write points for user %d: %w", userID, err)
	}
	if !ok {
		metrics.Reconciliations.WithLabelValues("stale").Inc()
		return res, ErrStaleTotal
	}

	metrics.Reconciliations.WithLabelValues("corrected").Inc()
	res.Current = b.Total
	res.Changed = true
	fields := []zap.Field{
		zap.Int64("user_id", userID), zap.Int("previous", res.Previous), zap.Int("current", res.Current),
	}
	if len(snap.Failed) > 0 {
		a.log.Warn("points corrected from partial data", append(fields, zap.Strings("failed_sources", snap.Failed))...)
	} else {
		a.log.Info("points corrected", fields...)
	}
	return res, nil
}

// sortLedger: по времени, новые сверху; при равном времени порядок по id.
func sortLedger(entries []models.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].At.Equal(entries[j].At) {
			return entries[i].At.After(entries[j].At)
		}
		return entries[i].ID < entries[j].ID
	})
}
