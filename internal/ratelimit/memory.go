package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	window  int64
	expires time.Time
	count   int
}

// MemoryLimiter is a single-process limiter used when Redis is unavailable.
type MemoryLimiter struct {
	mu        sync.Mutex
	counters  map[string]*memoryEntry
	lastSweep int64
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counters: make(map[string]*memoryEntry)}
}

// Allow counts one hit against key in the window containing now.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || window <= 0 {
		return Result{Allowed: true}, nil
	}
	start := windowStart(now, window)
	reset := start.Add(window).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if start.Unix() > l.lastSweep {
		l.sweep(now)
		l.lastSweep = start.Unix()
	}
	entry := l.counters[key]
	if entry == nil || entry.window != start.Unix() {
		entry = &memoryEntry{window: start.Unix(), expires: reset}
		l.counters[key] = entry
	}
	if entry.count >= limit {
		return Result{Allowed: false, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: reset}, nil
}

// sweep drops counters whose window has closed. Caller holds mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, e := range l.counters {
		if !now.Before(e.expires) {
			delete(l.counters, k)
		}
	}
}

