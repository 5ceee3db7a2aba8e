package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// isUniqueViolation понимает ошибки обоих драйверов: pgx в сервисе, lib/pq в тестовой БД.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Open открывает пул через pgx и ждёт готовности базы.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(25)
	database.SetMaxIdleConns(25)
	database.SetConnMaxIdleTime(5 * time.Minute)

	if err := ping(ctx, database); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

// ping ждёт базу: каждая следующая попытка на 100мс дольше.
func ping(ctx context.Context, database *sql.DB) error {
	var err error
	for attempt := 1; attempt <= 30; attempt++ {
		if err = database.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("db ping timeout: %w", err)
}
