package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/ratelimit"
)

// Limiter is an in-process fixed-window limiter keyed by an arbitrary string (usually client IP).
// It is safe for concurrent use. Counters are not shared between replicas; use the Redis
// limiter when more than one instance serves traffic.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	duration  time.Duration
	clock     clock.Clock
	lastSweep time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

func New(limit int, duration time.Duration, clk clock.Clock) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		clock:    clk,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.sweepLocked(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(l.duration)}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return ratelimit.Decision{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: w.expiresAt}, nil
	}
	w.count++
	return ratelimit.Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - w.count,
		ResetAt:   w.expiresAt,
	}, nil
}

// sweepLocked drops expired windows at most once per window duration.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.duration {
		return
	}
	l.lastSweep = now
	for k, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}
