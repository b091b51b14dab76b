package fetcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// StoreLimiter manages per-store request rates so that a large catalog does
// not hammer a single shop.
type StoreLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewStoreLimiter creates a limiter allowing rps requests per second per
// store. rps <= 0 disables limiting.
func NewStoreLimiter(rps float64, burst int) *StoreLimiter {
	r := rate.Limit(rps)
	if rps <= 0 {
		r = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &StoreLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Wait blocks until a token is available for store, respecting the context.
func (l *StoreLimiter) Wait(ctx context.Context, store string) error {
	if l == nil || l.rate == rate.Inf {
		return nil
	}
	l.mu.Lock()
	limiter, exists := l.limiters[store]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[store] = limiter
	}
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
