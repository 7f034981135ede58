package testutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/testutil"
)

func TestMigrations_CreateEveryTable(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	for _, table := range []string{"users", "trips", "trip_participants", "polls", "poll_votes", "idempotency_records"} {
		var exists bool
		err := pool.QueryRow(context.Background(), `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public'
				AND   table_name   = $1
			)`, table).Scan(&exists)
		require.NoError(t, err, "check table existence for %q", table)
		assert.True(t, exists, "expected table %q to exist", table)
	}
}
