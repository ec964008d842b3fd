package handlers

import (
	"net"
	"strings"
	"sync"
	"time"
)

// createLimiter throttles unauthenticated order creation per client address
// using a fixed window counter.
type createLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]limiterWindow
}

type limiterWindow struct {
	count   int
	resetAt time.Time
}

func newCreateLimiter(limit int, window time.Duration, clock func() time.Time) *createLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &createLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]limiterWindow),
	}
}

// allow reports whether the remote address may issue another create in the
// current window. The port is stripped so every connection from one client
// shares a window.
func (l *createLimiter) allow(remoteAddr string) bool {
	if l == nil {
		return true
	}
	key := clientKey(remoteAddr)

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = limiterWindow{count: 1, resetAt: now.Add(l.window)}
		l.pruneLocked(now)
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	l.windows[key] = w
	return true
}

func clientKey(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return "anonymous"
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		return host
	}
	return remoteAddr
}

func (l *createLimiter) pruneLocked(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
