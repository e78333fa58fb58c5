package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"github.com/emews/EQ-SQL/postgres"
)

// newTestDB starts a disposable PostgreSQL container, applies migrations,
// and registers cleanup. Unlike the in-memory sqlite fixture this backend
// replaces, a real PostgreSQL instance is required: the claim path relies
// on SELECT ... FOR UPDATE SKIP LOCKED, which sqlite does not support.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("eqsql_test"),
		tcpostgres.WithUsername("eqsql"),
		tcpostgres.WithPassword("eqsql"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("cannot start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("cannot terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("cannot resolve container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("cannot resolve container port: %v", err)
	}

	params := postgres.Params{
		Host:           host,
		Port:           port.Int(),
		User:           "eqsql",
		Password:       "eqsql",
		DBName:         "eqsql_test",
		RetryThreshold: 20,
	}
	db, err := postgres.InitTaskQueue(ctx, params)
	if err != nil {
		t.Fatalf("cannot initialize task queue: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
