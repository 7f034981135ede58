// Package testutil provides helpers for MongoDB integration tests.
// Helpers skip the calling test when TEST_MONGO_URI is not set.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb"
)

// OpenTestDB connects to TEST_MONGO_URI, creates a uniquely named database with
// the application indexes, and drops it on cleanup.
func OpenTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongodb.Connect(ctx, uri, 5*time.Second)
	if err != nil {
		t.Fatalf("testutil.OpenTestDB: %v", err)
	}

	name := "trip_planner_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	db := client.Database(name)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		t.Fatalf("testutil.OpenTestDB: indexes: %v", err)
	}

	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		_ = db.Drop(cctx)
		_ = client.Disconnect(cctx)
	})
	return db
}
