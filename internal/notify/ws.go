package notify

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// AllowOrigins задаёт браузерные Origin, которым разрешён апгрейд сокета.
// Пустой список или "*" пускает всех; доступ к данным всё равно закрыт токеном.
func (s *Service) AllowOrigins(origins ...string) {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		if o == "*" {
			s.origins = nil
			return
		}
		if o != "" {
			allowed[o] = true
		}
	}
	if len(allowed) == 0 {
		allowed = nil
	}
	s.origins = allowed
}

// checkOrigin: CORS на апгрейд не распространяется, поэтому Origin сверяется здесь.
// Запросы без Origin (не из браузера) пропускаются.
func (s *Service) checkOrigin(r *http.Request) bool {
	if s.origins == nil {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.origins[strings.TrimRight(strings.ToLower(origin), "/")]
}

func (s *Service) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// ServeWS стримит уведомления пользователя в сокет, пока клиент не закроет соединение.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(userID)
	defer sub.Close()

	// Чтение нужно только для pong и закрытия с той стороны.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case n, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				s.log.Debug("websocket write failed", zap.Int64("user_id", userID), zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
