package idempotency

import (
	"context"
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint scopes an idempotency key to a caller and a route.
//
// Route is the HTTP method plus the route pattern with concrete ids (e.g. "/api/trips/{id}/polls"
// rendered as "/api/trips/7c9e.../polls"). The request body is not part of the fingerprint; it is
// compared through Record.BodyHash so key reuse with a different payload can be detected.
type Fingerprint struct {
	Key     Key
	Subject domain.UserID
	Method  string
	Route   string
}

// Retention is how long a record stays replayable. Stores may discard older records,
// after which the key can be used for a new request.
const Retention = 24 * time.Hour

// Record is the stored response replayed for a duplicate request.
type Record struct {
	BodyHash    string
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records.
//
// Put is first-writer-wins: when a live record already exists for fp, it is kept and Put
// returns nil. A record past Retention may be replaced.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
