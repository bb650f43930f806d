// Package ratelimit implements fixed-window request counting per route
// class and caller tier.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/mrz1836/cashgate/internal/policy"
)

// Defaults match the public free tier.
const (
	DefaultWindow    = time.Minute
	DefaultFreeLimit = 60
	DefaultProLimit  = 600
)

// Clock returns the current time. Tests swap it for a fake.
type Clock func() time.Time

// Config configures a Limiter.
type Config struct {
	Window    time.Duration
	FreeLimit int
	ProLimit  int
	Clock     Clock
}

// Key identifies one counter. Client is empty unless per-client limiting is on.
type Key struct {
	Class  string
	Tier   policy.Tier
	Client string
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// window is the state of one counter.
type window struct {
	count int
	start time.Time
}

// Limiter counts requests in fixed windows. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[Key]*window

	window    time.Duration
	freeLimit int
	proLimit  int
	now       Clock
}

// New creates a Limiter, filling unset fields with defaults.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.FreeLimit <= 0 {
		cfg.FreeLimit = DefaultFreeLimit
	}
	if cfg.ProLimit <= 0 {
		cfg.ProLimit = DefaultProLimit
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Limiter{
		windows:   make(map[Key]*window),
		window:    cfg.Window,
		freeLimit: cfg.FreeLimit,
		proLimit:  cfg.ProLimit,
		now:       cfg.Clock,
	}
}

// Limit returns the per-window ceiling for a tier.
func (l *Limiter) Limit(t policy.Tier) int {
	if t.Pro {
		return l.proLimit
	}
	return l.freeLimit
}

// Message is the advisory returned to rejected callers.
func (l *Limiter) Message() string {
	return fmt.Sprintf("Too many requests. Limits are %d requests per %s.", l.freeLimit, windowName(l.window))
}

// Allow counts one request against key and reports whether it may proceed.
// Expiry, comparison and increment happen under one lock so two concurrent
// requests can never both take the last slot.
func (l *Limiter) Allow(key Key) Decision {
	limit := l.Limit(key.Tier)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok {
		w = &window{start: now}
		l.windows[key] = w
	} else if !now.Before(w.start.Add(l.window)) {
		w.count = 0
		w.start = now
	}

	resetAt := w.start.Add(l.window)
	if w.count >= limit {
		return Decision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}
	}

	w.count++
	return Decision{Allowed: true, Limit: limit, Remaining: limit - w.count, ResetAt: resetAt}
}

// Sweep drops windows that have expired. It returns the number removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, w := range l.windows {
		if !now.Before(w.start.Add(l.window)) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Reset clears every counter.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[Key]*window)
}

func windowName(d time.Duration) string {
	switch d {
	case time.Minute:
		return "minute"
	case time.Second:
		return "second"
	case time.Hour:
		return "hour"
	default:
		return d.String()
	}
}
