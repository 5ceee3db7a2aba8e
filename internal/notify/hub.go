package notify

import (
	"sync"

	"github.com/Spok95/lms-points/internal/metrics"
	"github.com/Spok95/lms-points/internal/models"
)

// Hub: живые подписчики по user id. Доставка не более одного раза:
// полный буфер подписчика означает потерю события, повторов нет.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[*Subscription]struct{}
	buf  int
}

type Subscription struct {
	UserID int64
	ch     chan models.Notification
	hub    *Hub
	once   sync.Once
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[int64]map[*Subscription]struct{}), buf: buffer}
}

func (h *Hub) Subscribe(userID int64) *Subscription {
	s := &Subscription{UserID: userID, ch: make(chan models.Notification, h.buf), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[s] = struct{}{}
	return s
}

// C: канал событий; закрывается после Close.
func (s *Subscription) C() <-chan models.Notification { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[s.UserID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.UserID)
			}
		}
		close(s.ch)
	})
}

// Publish не блокируется. Возвращает число подписчиков, получивших событие.
func (h *Hub) Publish(n models.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.subs[n.UserID] {
		select {
		case s.ch <- n:
			delivered++
		default:
			metrics.NotificationsDropped.Inc()
		}
	}
	return delivered
}

func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
