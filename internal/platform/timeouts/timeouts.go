// Package timeouts holds the per-operation deadlines handlers apply to storage
// and upstream calls.
//
//   - Short: single-record reads and writes (get by id, vote, participant change)
//   - Medium: list queries, multi-step writes and upstream HTTP calls
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
)

var mu sync.RWMutex

var (
	short  = DefaultShort
	medium = DefaultMedium
)

func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Config holds timeout overrides. Zero values keep the current value.
type Config struct {
	Short  time.Duration
	Medium time.Duration
}

// Configure sets custom timeout values. Call it at startup before serving.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	short = DefaultShort
	medium = DefaultMedium
}

func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Short: short, Medium: medium}
}

// WithTimeout derives a context with the given timeout. The returned cancel func
// logs a warning when the deadline was hit before it was called.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.log, "trips.get")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
