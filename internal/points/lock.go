package points

import "sync"

// userLocks не даёт двум сверкам одного пользователя идти одновременно в рамках процесса.
// Между процессами гонку закрывает версия в users.points_version.
// Мьютекс живёт в карте, пока его кто-то держит или ждёт.
type userLocks struct {
	mu   sync.Mutex
	byID map[int64]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{byID: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[userID]
	if !ok {
		m = &userLock{}
		l.byID[userID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.byID, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}
