package security

import (
	"math/rand"
	"sync"
	"time"
)

// sweepProbability is the fraction of Allow calls that also sweep expired
// entries, bounding map growth without a background task.
const sweepProbability = 0.01

type rateEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a process-local fixed-window counter store keyed by client
// identifier. It is shared by all requests handled by one process instance
// and is not synchronized across instances.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	now     func() time.Time
	rnd     func() float64
}

// NewRateLimiter constructs an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*rateEntry),
		now:     time.Now,
		rnd:     rand.Float64,
	}
}

// Allow reports whether the identifier is under its limit for the current
// window, recording the call when it is. A denied call does not increment
// the counter.
func (l *RateLimiter) Allow(id string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.rnd() < sweepProbability {
		l.sweep(now)
	}

	entry, ok := l.entries[id]
	if !ok || now.After(entry.resetAt) {
		l.entries[id] = &rateEntry{count: 1, resetAt: now.Add(window)}
		return true
	}

	if entry.count >= limit {
		return false
	}

	entry.count++
	return true
}

func (l *RateLimiter) sweep(now time.Time) {
	for id, entry := range l.entries {
		if now.After(entry.resetAt) {
			delete(l.entries, id)
		}
	}
}
