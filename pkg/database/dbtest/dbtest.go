// Package dbtest opens a migrated PostgreSQL pool for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/campus-events/backend/pkg/database"
)

// EnvURL names the variable holding the test database URL.
const EnvURL = "TEST_DATABASE_URL"

// Open returns a migrated pool with every table emptied, or skips the test
// when EnvURL is unset or the database is unreachable. The pool is closed
// when the test ends.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skip(EnvURL + " not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, url, 4, zap.NewNop())
	if err != nil {
		t.Skipf("db unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	const truncate = `TRUNCATE event_participants, comments, events, rso_members, rso, users, university RESTART IDENTITY CASCADE`
	if _, err := pool.Exec(ctx, truncate); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
