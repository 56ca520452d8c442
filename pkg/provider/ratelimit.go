package provider

import (
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
)

// WindowLimiter tracks per-provider usage against a fixed daily quota that
// resets on a rolling 24h window. In-memory state, single instance only.
type WindowLimiter struct {
	mu     sync.Mutex
	quotas map[string]int
	used   map[string]int
	resets map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// NewWindowLimiter creates a limiter with per-provider daily quotas.
// A provider without a quota entry is unlimited.
func NewWindowLimiter(quotas map[string]int) *WindowLimiter {
	return &WindowLimiter{
		quotas: quotas,
		used:   make(map[string]int),
		resets: make(map[string]time.Time),
		window: 24 * time.Hour,
		now:    time.Now,
	}
}

// Allow reports whether the provider has budget left.
func (l *WindowLimiter) Allow(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset(name)
	quota, ok := l.quotas[name]
	if !ok {
		return true
	}
	return l.used[name] < quota
}

// Use records one request against the provider's budget.
func (l *WindowLimiter) Use(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset(name)
	l.used[name]++
	if quota, ok := l.quotas[name]; ok {
		lgr.Printf("[DEBUG] provider %s used %d/%d requests", name, l.used[name], quota)
	}
}

// Remaining returns the number of requests left in the provider's window,
// or a large value for unlimited providers.
func (l *WindowLimiter) Remaining(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset(name)
	quota, ok := l.quotas[name]
	if !ok {
		return 1 << 20
	}
	left := quota - l.used[name]
	if left < 0 {
		return 0
	}
	return left
}

// maybeReset clears usage once the rolling window has elapsed; callers hold the lock
func (l *WindowLimiter) maybeReset(name string) {
	reset, ok := l.resets[name]
	if !ok {
		l.resets[name] = l.now().Add(l.window)
		return
	}
	if l.now().After(reset) {
		lgr.Printf("[INFO] rate limit window reset for provider %s", name)
		l.used[name] = 0
		l.resets[name] = l.now().Add(l.window)
	}
}
