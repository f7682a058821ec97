package port

import (
	"context"
	"time"
)

// LimitResult describes the state of a sliding window after a hit.
type LimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// AttemptLimiter counts attempts per key inside a sliding window.
type AttemptLimiter interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (LimitResult, error)
}
