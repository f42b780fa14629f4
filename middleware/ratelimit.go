package middleware

import (
	"sync"
	"time"

	"github.com/hedeqiang/subline/event"
)

// RateLimit passes at most one record of each kind per interval and drops
// the rest.
type RateLimit struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[event.Kind]time.Time
	now      func() time.Time
}

// NewRateLimit creates a rate-limiting middleware.
func NewRateLimit(interval time.Duration) *RateLimit {
	return &RateLimit{
		interval: interval,
		last:     make(map[event.Kind]time.Time),
		now:      time.Now,
	}
}

// Wrap decorates the handler with rate limiting.
func (r *RateLimit) Wrap(next Handler) Handler {
	return func(rec event.Record) *event.Record {
		r.mu.Lock()
		now := r.now()
		if last, ok := r.last[rec.Kind]; ok && now.Sub(last) < r.interval {
			r.mu.Unlock()
			return nil
		}
		r.last[rec.Kind] = now
		r.mu.Unlock()

		return next(rec)
	}
}
