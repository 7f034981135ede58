package idempotency

import (
	"context"
	"testing"
	"time"

	memclock "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/clock"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
)

func TestStore_GetReturnsCopyOfBody(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:     "k1",
		Subject: domain.UserID("user-1"),
		Method:  "POST",
		Route:   "/api/trips",
	}
	if err := s.Put(context.Background(), fp, idempotency.Record{
		BodyHash:    "abc123",
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil || !ok {
		t.Fatalf("Get() ok=%v err=%v", ok, err)
	}
	got.Body[0] = 'X'

	again, _, _ := s.Get(context.Background(), fp)
	if string(again.Body) != `{"ok":true}` {
		t.Fatalf("stored body mutated through returned record: %q", string(again.Body))
	}
}

func TestStore_SubjectScopesKey(t *testing.T) {
	t.Parallel()

	s := NewStore()
	a := idempotency.Fingerprint{Key: "same", Subject: "user-a", Method: "POST", Route: "/api/trips"}
	b := a
	b.Subject = "user-b"

	if err := s.Put(context.Background(), a, idempotency.Record{StatusCode: 201}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	if _, ok, err := s.Get(context.Background(), b); err != nil || ok {
		t.Fatalf("Get(other subject) ok=%v err=%v, want miss", ok, err)
	}
}

func TestStore_RecordsExpireWithClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := memclock.NewManualClock(start)
	s := NewStore(WithClock(clk))
	ctx := context.Background()
	fp := idempotency.Fingerprint{Key: "k", Subject: "user-a", Method: "POST", Route: "/api/trips"}

	if err := s.Put(ctx, fp, idempotency.Record{BodyHash: "first", StatusCode: 201, CreatedAt: start}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	clk.Advance(idempotency.Retention - time.Second)
	if got, ok, _ := s.Get(ctx, fp); !ok || got.BodyHash != "first" {
		t.Fatalf("Get() before expiry ok=%v rec=%+v", ok, got)
	}

	clk.Advance(time.Second)
	if _, ok, _ := s.Get(ctx, fp); ok {
		t.Fatalf("Get() after expiry ok=true, want miss")
	}

	// An expired key can be reused.
	if err := s.Put(ctx, fp, idempotency.Record{BodyHash: "second", StatusCode: 201, CreatedAt: clk.Now()}); err != nil {
		t.Fatalf("Put() reuse err=%v", err)
	}
	if got, ok, _ := s.Get(ctx, fp); !ok || got.BodyHash != "second" {
		t.Fatalf("Get() after reuse ok=%v rec=%+v", ok, got)
	}
}

func TestStore_SweepDropsExpiredRecords(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := memclock.NewManualClock(start)
	s := NewStore(WithClock(clk))
	ctx := context.Background()

	for _, k := range []idempotency.Key{"a", "b", "c"} {
		fp := idempotency.Fingerprint{Key: k, Subject: "user-a", Method: "POST", Route: "/api/trips"}
		if err := s.Put(ctx, fp, idempotency.Record{CreatedAt: start}); err != nil {
			t.Fatalf("Put(%s) err=%v", k, err)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("Len()=%d want 3", s.Len())
	}

	clk.Advance(idempotency.Retention + time.Minute)
	fresh := idempotency.Fingerprint{Key: "d", Subject: "user-a", Method: "POST", Route: "/api/trips"}
	if err := s.Put(ctx, fresh, idempotency.Record{CreatedAt: clk.Now()}); err != nil {
		t.Fatalf("Put(d) err=%v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len()=%d want 1 after sweep", s.Len())
	}
}
