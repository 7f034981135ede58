package clock

import "time"

// Clock provides time to the application services.
// Tests substitute a manual implementation to make timestamps deterministic.
type Clock interface {
	Now() time.Time
}
