package points

import (
	"context"
	"errors"
	"sync"

	"github.com/Spok95/lms-points/internal/models"
)

var errBoom = errors.New("boom")

// fakeDB: источник и хранилище в памяти; ошибки задаются по имени источника.
type fakeDB struct {
	mu sync.Mutex

	users      map[int64]*models.User
	videos     []models.VideoCompletion
	watch      []models.WatchProgress
	quizzes    []models.QuizGrade
	challenges map[int64]*models.Challenge
	responses  []models.ChallengeResponse
	attendance []models.AttendanceRecord
	totals     models.ActivityTotals

	fail   map[string]error
	writes []int
	// bumpBeforeWrite имитирует конкурентную запись между чтением и CAS.
	bumpBeforeWrite bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:      make(map[int64]*models.User),
		challenges: make(map[int64]*models.Challenge),
		fail:       make(map[string]error),
	}
}

func (f *fakeDB) addStudent(id int64, name string, pts int) {
	f.users[id] = &models.User{ID: id, Name: name, Role: models.Student, Points: pts}
}

func (f *fakeDB) VideoCompletions(_ context.Context, userID int64) ([]models.VideoCompletion, error) {
	if err := f.fail[SourceVideos]; err != nil {
		return nil, err
	}
	var out []models.VideoCompletion
	for _, v := range f.videos {
		if v.UserID == userID && v.IsCompleted {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeDB) WatchProgress(_ context.Context, userID int64) ([]models.WatchProgress, error) {
	if err := f.fail[SourceWatch]; err != nil {
		return nil, err
	}
	var out []models.WatchProgress
	for _, w := range f.watch {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeDB) QuizGrades(_ context.Context, userID int64) ([]models.QuizGrade, error) {
	if err := f.fail[SourceQuizzes]; err != nil {
		return nil, err
	}
	var out []models.QuizGrade
	for _, q := range f.quizzes {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

// ChallengeResponses повторяет LEFT JOIN: ценности берутся из текущего челленджа.
func (f *fakeDB) ChallengeResponses(_ context.Context, userID int64) ([]models.ChallengeResponse, error) {
	if err := f.fail[SourceChallenges]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChallengeResponse
	for _, r := range f.responses {
		if r.UserID != userID {
			continue
		}
		r.Challenge = nil
		if c, ok := f.challenges[r.ChallengeID]; ok {
			r.Challenge = &models.ChallengePoints{
				ClassNumber:     c.ClassNumber,
				Number:          c.Number,
				Topic:           c.Topic,
				PointsCompleted: c.PointsCompleted,
				PointsTried:     c.PointsTried,
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeDB) Attendance(_ context.Context, userID int64, statuses ...models.AttendanceStatus) ([]models.AttendanceRecord, error) {
	if err := f.fail[SourceAttendance]; err != nil {
		return nil, err
	}
	want := make(map[models.AttendanceStatus]bool)
	for _, s := range statuses {
		want[s] = true
	}
	var out []models.AttendanceRecord
	for _, r := range f.attendance {
		if r.UserID == userID && (len(want) == 0 || want[r.Status]) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDB) ActivityTotals(_ context.Context, _ int) (models.ActivityTotals, error) {
	if err := f.fail[SourceTotals]; err != nil {
		return models.ActivityTotals{}, err
	}
	return f.totals, nil
}

func (f *fakeDB) UserByID(_ context.Context, userID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDB) SetUserPoints(_ context.Context, userID int64, total int, expectedVersion int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["write"]; err != nil {
		return false, err
	}
	u, ok := f.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	if f.bumpBeforeWrite {
		u.PointsVersion++
	}
	if u.PointsVersion != expectedVersion {
		return false, nil
	}
	f.writes = append(f.writes, total)
	u.Points = total
	u.PointsVersion++
	return true, nil
}

func (f *fakeDB) StudentStandings(_ context.Context) ([]models.StudentPoints, error) {
	if err := f.fail["standings"]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StudentPoints
	for _, u := range f.users {
		if u.Role == models.Student {
			out = append(out, models.StudentPoints{UserID: u.ID, Name: u.Name, Points: u.Points})
		}
	}
	return out, nil
}
