// Package ratelimit implements a fixed-window request limiter on Redis so the
// counters are shared by every API replica.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/ratelimit"
)

type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	clock  clock.Clock
}

// NewClient parses redisURL and pings the server.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, prefix string, limit int, window time.Duration, clk clock.Clock) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window, clock: clk}
}

// Allow increments the counter of the window containing now and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	now := l.clock.Now()
	windowStart := now.Truncate(l.window)
	windowKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Decision{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Decision{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   windowStart.Add(l.window),
	}, nil
}
