// Package ratelimit provides fixed-window request limiters.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides rate limit checks over windows of a fixed length.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// windowStart truncates now to the beginning of its window.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}
