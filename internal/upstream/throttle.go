package upstream

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Throttle paces outbound calls per upstream using a token bucket.
// A zero rate disables pacing.
type Throttle struct {
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstLimit int
}

// NewThrottle creates a throttle with the specified rate and burst.
// rate is requests per second, burst is the maximum burst size.
func NewThrottle(ratePerSecond float64, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
	}
}

// Enabled reports whether calls are paced at all.
func (t *Throttle) Enabled() bool {
	return t != nil && t.rateLimit > 0
}

// Allow checks if a call to the upstream may proceed now.
func (t *Throttle) Allow(upstream string) bool {
	if !t.Enabled() {
		return true
	}
	return t.getLimiter(upstream).Allow()
}

// Wait blocks until a call to the upstream is allowed or the context is canceled.
func (t *Throttle) Wait(ctx context.Context, upstream string) error {
	if !t.Enabled() {
		return nil
	}
	return t.getLimiter(upstream).Wait(ctx)
}

// getLimiter returns the limiter for the given upstream, creating one if needed.
func (t *Throttle) getLimiter(upstream string) *rate.Limiter {
	t.mu.RLock()
	limiter, exists := t.limiters[upstream]
	t.mu.RUnlock()

	if exists {
		return limiter
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = t.limiters[upstream]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(t.rateLimit, t.burstLimit)
	t.limiters[upstream] = limiter
	return limiter
}
