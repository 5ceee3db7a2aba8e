package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string
	JWTSecret   string
	HTTPAddr    string
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string
	BotToken    string // пусто: без дублирования в телеграм
	CORSOrigins []string
	Location    *time.Location

	ReconcileInterval time.Duration
	SweepInterval     time.Duration
	ActiveClass       int
}

func Load() (*Config, error) {
	tz := getenv("TZ", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	reconcile, err := duration("RECONCILE_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	sweep, err := duration("SWEEP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	activeClass, err := strconv.Atoi(getenv("ACTIVE_CLASS", "1"))
	if err != nil || activeClass < 1 {
		return nil, fmt.Errorf("ACTIVE_CLASS: must be a positive integer")
	}

	cfg := &Config{
		DatabaseURL:       mustEnv("DATABASE_URL"),
		JWTSecret:         mustEnv("JWT_SECRET"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Env:               getenv("ENV", "dev"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		BotToken:          os.Getenv("BOT_TOKEN"),
		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "*")),
		Location:          loc,
		ReconcileInterval: reconcile,
		SweepInterval:     sweep,
		ActiveClass:       activeClass,
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func duration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", k)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
