package app

import (
	"context"
	"sync"
	"time"

	"github.com/Spok95/lms-points/internal/db"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/points"
)

// memStore: всё хранилище сервиса в памяти: источник агрегатора, его итог,
// записи API и уведомления.
type memStore struct {
	mu sync.Mutex

	users       map[int64]*models.User
	videos      map[int64]models.Video
	completions map[[2]int64]models.VideoCompletion
	watch       map[[2]int64]models.WatchProgress
	quizzes     map[[2]int64]models.QuizGrade
	challenges  map[int64]models.Challenge
	responses   map[[2]int64]models.ChallengeResponse
	attendance  map[[2]int64]models.AttendanceRecord
	notes       []models.Notification
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[int64]*models.User),
		videos:      make(map[int64]models.Video),
		completions: make(map[[2]int64]models.VideoCompletion),
		watch:       make(map[[2]int64]models.WatchProgress),
		quizzes:     make(map[[2]int64]models.QuizGrade),
		challenges:  make(map[int64]models.Challenge),
		responses:   make(map[[2]int64]models.ChallengeResponse),
		attendance:  make(map[[2]int64]models.AttendanceRecord),
	}
}

func (m *memStore) addUser(id int64, name string, role models.Role, pts int) {
	m.users[id] = &models.User{ID: id, Name: name, Role: role, Points: pts}
}

// points.Source

func (m *memStore) VideoCompletions(_ context.Context, userID int64) ([]models.VideoCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.VideoCompletion
	for k, c := range m.completions {
		if k[0] == userID {
			c.Title = m.videos[c.VideoID].Title
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) WatchProgress(_ context.Context, userID int64) ([]models.WatchProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WatchProgress
	for k, w := range m.watch {
		if k[0] == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) QuizGrades(_ context.Context, userID int64) ([]models.QuizGrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizGrade
	for k, q := range m.quizzes {
		if k[0] == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memStore) ChallengeResponses(_ context.Context, userID int64) ([]models.ChallengeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChallengeResponse
	for k, r := range m.responses {
		if k[0] != userID {
			continue
		}
		if c, ok := m.challenges[r.ChallengeID]; ok {
			r.Challenge = &models.ChallengePoints{
				ClassNumber: c.ClassNumber, Number: c.Number, Topic: c.Topic,
				PointsCompleted: c.PointsCompleted, PointsTried: c.PointsTried,
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) Attendance(_ context.Context, userID int64, statuses ...models.AttendanceStatus) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceRecord
	for k, a := range m.attendance {
		if k[0] != userID {
			continue
		}
		for _, s := range statuses {
			if a.Status == s {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) ActivityTotals(_ context.Context, classNumber int) (models.ActivityTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.ActivityTotals{Videos: len(m.videos), Challenges: len(m.challenges), Classes: classNumber}, nil
}

// points.Store

func (m *memStore) UserByID(_ context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, points.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) SetUserPoints(_ context.Context, userID int64, total int, expectedVersion int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.PointsVersion != expectedVersion {
		return false, nil
	}
	u.Points = total
	u.PointsVersion++
	return true, nil
}

func (m *memStore) StudentStandings(_ context.Context) ([]models.StudentPoints, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StudentPoints
	for _, u := range m.users {
		if u.Role == models.Student {
			out = append(out, models.StudentPoints{UserID: u.ID, Name: u.Name, Points: u.Points})
		}
	}
	return out, nil
}

// app.Store

func (m *memStore) Ping(context.Context) (time.Duration, error) { return time.Millisecond, nil }

func (m *memStore) Video(_ context.Context, id int64) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &v, nil
}

func (m *memStore) CompleteVideo(_ context.Context, userID, videoID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]int64{userID, videoID}
	if _, ok := m.completions[k]; ok {
		return false, nil
	}
	m.completions[k] = models.VideoCompletion{UserID: userID, VideoID: videoID, IsCompleted: true, CompletedAt: time.Now()}
	return true, nil
}

func (m *memStore) WatchProgressFor(_ context.Context, userID, videoID int64) (*models.WatchProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watch[[2]int64{userID, videoID}]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *memStore) SaveWatchProgress(_ context.Context, w models.WatchProgress) (*models.WatchProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]int64{w.UserID, w.VideoID}
	if old, ok := m.watch[k]; ok {
		w.WatchPercentage = max(old.WatchPercentage, w.WatchPercentage)
		w.PointsAwarded = max(old.PointsAwarded, w.PointsAwarded)
	}
	w.UpdatedAt = time.Now()
	m.watch[k] = w
	return &w, nil
}

func (m *memStore) SaveQuizGrade(_ context.Context, g models.QuizGrade) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	g.GradedAt = &now
	m.quizzes[[2]int64{g.UserID, int64(g.QuizNumber)}] = g
	return now, nil
}

func (m *memStore) SaveAttendance(_ context.Context, r models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[[2]int64{r.UserID, int64(r.ClassNumber)}] = r
	return nil
}

func (m *memStore) Challenge(_ context.Context, id int64) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) Challenges(_ context.Context, includeInactive bool) ([]models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Challenge
	for _, c := range m.challenges {
		if c.IsActive || includeInactive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateChallenge(_ context.Context, c models.Challenge) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.challenges {
		if ex.ClassNumber == c.ClassNumber && ex.Number == c.Number {
			return 0, db.ErrConflict
		}
	}
	c.ID = int64(len(m.challenges) + 100)
	m.challenges[c.ID] = c
	return c.ID, nil
}

func (m *memStore) UpdateChallenge(_ context.Context, c models.Challenge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.challenges[c.ID]
	if !ok {
		return false, db.ErrNotFound
	}
	m.challenges[c.ID] = c
	return old.PointsCompleted != c.PointsCompleted || old.PointsTried != c.PointsTried, nil
}

func (m *memStore) ChallengeResponders(_ context.Context, challengeID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for k := range m.responses {
		if k[1] == challengeID {
			ids = append(ids, k[0])
		}
	}
	return ids, nil
}

func (m *memStore) SaveChallengeResponse(_ context.Context, userID, challengeID int64, status models.ChallengeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[[2]int64{userID, challengeID}] = models.ChallengeResponse{
		UserID: userID, ChallengeID: challengeID, Status: status, SubmittedAt: time.Now(),
	}
	return nil
}

func (m *memStore) Overview(_ context.Context) (*models.Overview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := &models.Overview{Videos: len(m.videos), Challenges: len(m.challenges), QuizGrades: len(m.quizzes)}
	for _, u := range m.users {
		if u.Role == models.Student {
			o.Students++
			o.TotalPoints += u.Points
		}
	}
	return o, nil
}

// notify.Store

func (m *memStore) InsertNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.notes) + 1)
	n.CreatedAt = time.Now()
	m.notes = append(m.notes, *n)
	return nil
}

func (m *memStore) UnreadNotifications(_ context.Context, userID int64, _ int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notes {
		if n.UserID == userID && !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notes {
		if m.notes[i].ID == id && m.notes[i].UserID == userID {
			m.notes[i].IsRead = true
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) TelegramChatID(context.Context, int64) (int64, error) { return 0, nil }
