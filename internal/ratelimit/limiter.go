// Package ratelimit throttles repeated failed login attempts with a
// per-key sliding window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMaxAttempts is the number of attempts allowed per key
	// within the window.
	DefaultMaxAttempts = 5

	// DefaultWindow is the trailing window length.
	DefaultWindow = 5 * time.Minute
)

// Limiter counts recent attempts per key. Construct one per process and
// inject it; there is no package-level instance. Buckets are pruned
// lazily on every call so they never grow unbounded.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string][]time.Time
	now     func() time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// NewDefault returns a limiter with the standard 5 attempts / 5 minutes
// policy.
func NewDefault() *Limiter {
	return New(DefaultMaxAttempts, DefaultWindow)
}

// CanAttempt reports whether key has fewer than max recorded attempts
// within the trailing window.
func (l *Limiter) CanAttempt(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key, l.now())) < l.max
}

// RecordAttempt appends the current timestamp to key's bucket. Callers
// record on every failed login, for unknown emails as well as wrong
// passwords, so the limiter cannot be used to probe account existence.
func (l *Limiter) RecordAttempt(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.buckets[key] = append(l.prune(key, now), now)
}

// prune drops timestamps outside the window and stores the result.
// Callers must hold mu. Empty buckets are deleted so abandoned keys do
// not accumulate.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	bucket := l.buckets[key]
	kept := bucket[:0]
	for _, ts := range bucket {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.buckets, key)
		return nil
	}
	l.buckets[key] = kept
	return kept
}
