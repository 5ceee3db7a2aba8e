package app

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Spok95/lms-points/internal/jobs"
	"github.com/Spok95/lms-points/internal/logging"
	"github.com/Spok95/lms-points/internal/metrics"
	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/notify"
	"github.com/Spok95/lms-points/internal/points"
)

// Store: то, что API пишет и читает мимо агрегатора.
type Store interface {
	UserByID(ctx context.Context, userID int64) (*models.User, error)
	StudentStandings(ctx context.Context) ([]models.StudentPoints, error)
	Ping(ctx context.Context) (time.Duration, error)

	Video(ctx context.Context, id int64) (*models.Video, error)
	CompleteVideo(ctx context.Context, userID, videoID int64) (bool, error)
	WatchProgressFor(ctx context.Context, userID, videoID int64) (*models.WatchProgress, error)
	SaveWatchProgress(ctx context.Context, w models.WatchProgress) (*models.WatchProgress, error)

	SaveQuizGrade(ctx context.Context, g models.QuizGrade) (time.Time, error)
	SaveAttendance(ctx context.Context, r models.AttendanceRecord) error

	Challenge(ctx context.Context, id int64) (*models.Challenge, error)
	Challenges(ctx context.Context, includeInactive bool) ([]models.Challenge, error)
	CreateChallenge(ctx context.Context, c models.Challenge) (int64, error)
	UpdateChallenge(ctx context.Context, c models.Challenge) (bool, error)
	ChallengeResponders(ctx context.Context, challengeID int64) ([]int64, error)
	SaveChallengeResponse(ctx context.Context, userID, challengeID int64, status models.ChallengeStatus) error

	Overview(ctx context.Context) (*models.Overview, error)
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	ActiveClass int
	Location    *time.Location
}

type Server struct {
	store       Store
	agg         *points.Aggregator
	queue       *jobs.RecomputeQueue
	notify      *notify.Service
	log         *zap.Logger
	jwtSecret   []byte
	cors        []string
	activeClass int
	loc         *time.Location
	now         func() time.Time
}

func NewServer(store Store, agg *points.Aggregator, queue *jobs.RecomputeQueue, ns *notify.Service, log *zap.Logger, opt Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	loc := opt.Location
	if loc == nil {
		loc = time.UTC
	}
	active := opt.ActiveClass
	if active < 1 {
		active = 1
	}
	return &Server{
		store:       store,
		agg:         agg,
		queue:       queue,
		notify:      ns,
		log:         log,
		jwtSecret:   []byte(opt.JWTSecret),
		cors:        opt.CORSOrigins,
		activeClass: active,
		loc:         loc,
		now:         time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logging.Middleware(s.log), routeMetrics)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/users/{id:[0-9]+}/stats", s.userStats).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/ledger", s.userLedger).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/ledger.xlsx", s.userLedgerXLSX).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/rank", s.userRank).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/reconcile", s.userReconcile).Methods(http.MethodPost)

	api.HandleFunc("/me/videos/{videoID:[0-9]+}/progress", s.saveProgress).Methods(http.MethodPut)
	api.HandleFunc("/me/videos/{videoID:[0-9]+}/complete", s.completeVideo).Methods(http.MethodPost)
	api.HandleFunc("/me/challenges/{challengeID:[0-9]+}/response", s.respondChallenge).Methods(http.MethodPut)

	api.HandleFunc("/me/notifications", s.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/me/notifications/{id:[0-9]+}/read", s.readNotification).Methods(http.MethodPost)
	api.HandleFunc("/me/notifications/ws", s.notificationStream).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireManager)
	admin.HandleFunc("/quiz-grades", s.putQuizGrade).Methods(http.MethodPut)
	admin.HandleFunc("/attendance", s.putAttendance).Methods(http.MethodPut)
	admin.HandleFunc("/challenges", s.listChallenges).Methods(http.MethodGet)
	admin.HandleFunc("/challenges", s.createChallenge).Methods(http.MethodPost)
	admin.HandleFunc("/challenges/{id:[0-9]+}", s.updateChallenge).Methods(http.MethodPut)
	admin.HandleFunc("/overview", s.overview).Methods(http.MethodGet)
	admin.HandleFunc("/leaderboard.xlsx", s.leaderboardXLSX).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cors,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(r)
}

// routeMetrics считает запросы по шаблону маршрута, а не по сырому пути.
func routeMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := w.(*logging.StatusRecorder)
		if !ok {
			rec = &logging.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.Status)).Inc()
	})
}
