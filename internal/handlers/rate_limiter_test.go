package handlers

import (
	"testing"
	"time"
)

func TestCreateLimiterEnforcesWindowLimit(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	limiter := newCreateLimiter(2, time.Minute, func() time.Time { return now })

	if !limiter.allow("203.0.113.7:4123") {
		t.Fatal("first request should be allowed")
	}
	if !limiter.allow("203.0.113.7:4124") {
		t.Fatal("second request should be allowed")
	}
	if limiter.allow("203.0.113.7:4125") {
		t.Fatal("third request in the same window should be rejected")
	}

	// A different client keeps its own window.
	if !limiter.allow("198.51.100.9:5000") {
		t.Fatal("other client should not share the exhausted window")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.allow("203.0.113.7:4126") {
		t.Fatal("request after the window elapsed should be allowed")
	}
}

func TestCreateLimiterSharesWindowAcrossPorts(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	limiter := newCreateLimiter(1, time.Minute, func() time.Time { return now })

	if !limiter.allow("203.0.113.7:1111") {
		t.Fatal("first request should be allowed")
	}
	if limiter.allow("203.0.113.7:2222") {
		t.Fatal("same host on a different port should hit the shared window")
	}
}

func TestNewCreateLimiterDisabled(t *testing.T) {
	if limiter := newCreateLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatal("zero limit should disable the limiter")
	}
	if limiter := newCreateLimiter(5, 0, nil); limiter != nil {
		t.Fatal("zero window should disable the limiter")
	}

	var disabled *createLimiter
	if !disabled.allow("203.0.113.7:1111") {
		t.Fatal("nil limiter should allow every request")
	}
}
