package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/lms-points/internal/app"
	"github.com/Spok95/lms-points/internal/config"
	"github.com/Spok95/lms-points/internal/db"
	"github.com/Spok95/lms-points/internal/jobs"
	"github.com/Spok95/lms-points/internal/logging"
	"github.com/Spok95/lms-points/internal/notify"
	"github.com/Spok95/lms-points/internal/observability"
	"github.com/Spok95/lms-points/internal/points"
	"github.com/Spok95/lms-points/internal/tg"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf(".env not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env, version)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	if cfg.Env == "dev" {
		if err := db.SeedCatalog(ctx, database); err != nil {
			logger.Warn("demo catalog seed failed", zap.Error(err))
		}
	}

	store := db.NewStore(database)

	var mirror notify.Mirror
	if cfg.BotToken != "" {
		m, err := tg.NewMirror(cfg.BotToken)
		if err != nil {
			logger.Warn("telegram mirror disabled", zap.Error(err))
		} else {
			mirror = m
		}
	}
	notifier := notify.NewService(store, notify.NewHub(32), mirror, logger.Named("notify"))
	notifier.AllowOrigins(cfg.CORSOrigins...)

	agg := points.New(store, store, logger.Named("points"))
	agg.OnCorrection(notifier.PointsUpdated)

	queue := jobs.NewRecomputeQueue(agg, logger.Named("recompute"))
	runner := jobs.New(ctx)
	runner.Every(cfg.ReconcileInterval, "reconcile-queue", queue.Drain)
	runner.Every(cfg.SweepInterval, "reconcile-sweep", queue.Sweep(store))

	srv := app.NewServer(store, agg, queue, notifier, logger.Named("http"), app.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		ActiveClass: cfg.ActiveClass,
		Location:    cfg.Location,
	})
	app.StartHTTP(ctx, cfg.HTTPAddr, srv.Handler(), logger)
	logger.Info("started",
		zap.String("addr", cfg.HTTPAddr),
		zap.Bool("telegram", mirror != nil))

	<-ctx.Done()
	logger.Info("shutting down")
}
