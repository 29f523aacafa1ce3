// internal/service/auth/ratelimit.go
package auth

import (
	"strings"
	"sync"
	"time"
)

const (
	maxLoginAttempts = 5
	loginWindow      = 15 * time.Minute
)

// LoginLimiter throttles credential checks per (ip, email). State is held
// in process: the KV substrate has no atomic counter and throttle state is
// deliberately per-instance.
type LoginLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	count       int64
	windowStart time.Time
}

func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{entries: make(map[string]*limiterEntry)}
}

// Allow records an attempt and reports whether it may proceed, plus the
// attempts remaining in the current window.
func (l *LoginLimiter) Allow(ip, email string) (bool, int64) {
	key := ip + ":" + strings.ToLower(email)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) > loginWindow {
		e = &limiterEntry{windowStart: now}
		l.entries[key] = e
	}
	e.count++

	remaining := int64(maxLoginAttempts) - e.count
	if remaining < 0 {
		remaining = 0
	}
	return e.count <= maxLoginAttempts, remaining
}

// Reset clears the attempt counter after a successful login.
func (l *LoginLimiter) Reset(ip, email string) {
	key := ip + ":" + strings.ToLower(email)
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}
