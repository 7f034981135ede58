package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Without a clock records never expire; WithClock
// enables expiry after idempotency.Retention.
type Store struct {
	mu        sync.Mutex
	m         map[idempotency.Fingerprint]idempotency.Record
	clock     clock.Clock
	lastSweep time.Time
}

type Option func(*Store)

// WithClock makes records expire idempotency.Retention after their CreatedAt, as
// measured by clk.
func WithClock(clk clock.Clock) Option {
	return func(s *Store) { s.clock = clk }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		m: make(map[idempotency.Fingerprint]idempotency.Record),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok || s.expiredLocked(rec) {
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	if existing, ok := s.m[fp]; ok && !s.expiredLocked(existing) {
		return nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.m[fp] = rec
	return nil
}

// Len reports how many records are held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *Store) expiredLocked(rec idempotency.Record) bool {
	if s.clock == nil {
		return false
	}
	return !s.clock.Now().Before(rec.CreatedAt.Add(idempotency.Retention))
}

// sweepLocked drops expired records at most once per retention period.
func (s *Store) sweepLocked() {
	if s.clock == nil {
		return
	}
	now := s.clock.Now()
	if now.Sub(s.lastSweep) < idempotency.Retention {
		return
	}
	s.lastSweep = now
	for fp, rec := range s.m {
		if s.expiredLocked(rec) {
			delete(s.m, fp)
		}
	}
}
