//go:build testutil
// +build testutil

// Package testdb поднимает одноразовый Postgres для интеграционных тестов db.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/Spok95/student-helper-bot/internal/db"
)

const image = "postgres:17-alpine"

// Start запускает контейнер и накатывает миграции бота. stop гасит и базу, и контейнер.
func Start(ctx context.Context) (database *sql.DB, stop func(), err error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage(image),
		postgres.WithDatabase("helper"),
		postgres.WithUsername("helper"),
		postgres.WithPassword("helper"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", image, err)
	}
	terminate := func() {
		tctx, tcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer tcancel()
		_ = pg.Terminate(tctx)
	}

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, err
	}
	database, err = sql.Open("postgres", dsn)
	if err == nil {
		err = database.PingContext(ctx)
	}
	if err == nil {
		err = db.Migrate(ctx, database, zap.NewNop())
	}
	if err != nil {
		if database != nil {
			_ = database.Close()
		}
		terminate()
		return nil, nil, err
	}

	return database, func() {
		_ = database.Close()
		terminate()
	}, nil
}

// MustStart пропускает тест, если Docker недоступен.
func MustStart(t *testing.T) *sql.DB {
	t.Helper()
	database, stop, err := Start(context.Background())
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(stop)
	return database
}

// Reset очищает таблицы между подтестами.
func Reset(t *testing.T, database *sql.DB) {
	t.Helper()
	if _, err := database.Exec(`TRUNCATE tasks, subjects, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
