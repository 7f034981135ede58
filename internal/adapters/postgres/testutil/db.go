// Package testutil provides helpers for Postgres integration tests.
// Helpers skip the calling test when TEST_DATABASE_URL is not set.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/postgres"
)

// OpenMigratedPool opens a pool against TEST_DATABASE_URL and applies the embedded
// migrations. Suites seed rows with fresh UUIDs, so no truncation is needed between
// packages sharing the database. The pool is closed on cleanup.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{MaxConns: 8})
	if err != nil {
		t.Fatalf("testutil.OpenMigratedPool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("testutil.OpenMigratedPool: migrate: %v", err)
	}
	return pool
}
