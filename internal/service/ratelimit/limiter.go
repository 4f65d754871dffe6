package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"DripView/pkg/http/middleware"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is an in-process token bucket per key. It backs rate limiting
// when Redis is not used.
type Limiter struct {
	mu     sync.Mutex
	m      map[string]*bucket
	now    func() time.Time
	limit  int
	window time.Duration
	calls  int
}

// New creates a limiter allowing limit calls per window for each key.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{m: make(map[string]*bucket), now: time.Now, limit: limit, window: window}
}

// WithClock replaces time.Now. Tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	ok, _ := l.take(key, capacity, refillPerSec)
	return ok
}

// Check implements middleware.RateChecker.
func (l *Limiter) Check(_ context.Context, route, identity string) (middleware.RateDecision, error) {
	capacity := float64(l.limit)
	refill := capacity / l.window.Seconds()
	ok, wait := l.take(route+":"+identity, capacity, refill)
	return middleware.RateDecision{Allowed: ok, RetryAfter: wait}, nil
}

// take consumes a token or reports how long until one is available.
func (l *Limiter) take(key string, capacity, refillPerSec float64) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%1024 == 0 {
		l.prune(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, l.window
	}
	wait := time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
	return false, wait
}

// prune drops buckets that have been idle long enough to be full again.
func (l *Limiter) prune(now time.Time) {
	for k, b := range l.m {
		if b.refillRate > 0 && now.Sub(b.last).Seconds()*b.refillRate >= b.capacity {
			delete(l.m, k)
		}
	}
}
