package middleware

import (
	"sync"
	"time"

	"github.com/mroshb/cockpit/pkg/clock"
)

// LoginLimiter throttles login attempts per key (a username or a device)
// within a fixed window. It is in-memory and per process.
type LoginLimiter struct {
	limits map[string]*attemptLimit
	mu     sync.Mutex
	now    clock.Clock

	maxAttempts int
	window      time.Duration
	lastSweep   time.Time
}

type attemptLimit struct {
	attempts  int
	resetTime time.Time
}

// NewLoginLimiter creates a limiter allowing maxAttempts per window. A
// non-positive maxAttempts disables throttling.
func NewLoginLimiter(maxAttempts int, window time.Duration, now clock.Clock) *LoginLimiter {
	if now == nil {
		now = clock.System
	}
	return &LoginLimiter{
		limits:      make(map[string]*attemptLimit),
		now:         now,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allow records one attempt for key and reports whether it is within the
// limit.
func (rl *LoginLimiter) Allow(key string) bool {
	if rl == nil || rl.maxAttempts <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	limit, exists := rl.limits[key]
	if !exists || !now.Before(limit.resetTime) {
		rl.limits[key] = &attemptLimit{
			attempts:  1,
			resetTime: now.Add(rl.window),
		}
		return true
	}

	if limit.attempts >= rl.maxAttempts {
		return false
	}

	limit.attempts++
	return true
}

// Remaining returns the attempts left for key in the current window. A
// nil or disabled limiter reports -1.
func (rl *LoginLimiter) Remaining(key string) int {
	if rl == nil || rl.maxAttempts <= 0 {
		return -1
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, exists := rl.limits[key]
	if !exists || !rl.now().Before(limit.resetTime) {
		return rl.maxAttempts
	}

	remaining := rl.maxAttempts - limit.attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clear forgets the attempts recorded for key, e.g. after a successful login
func (rl *LoginLimiter) Clear(key string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limits, key)
}

// sweep removes expired entries at most once per window. Callers hold mu.
func (rl *LoginLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	for key, limit := range rl.limits {
		if !now.Before(limit.resetTime) {
			delete(rl.limits, key)
		}
	}
	rl.lastSweep = now
}
