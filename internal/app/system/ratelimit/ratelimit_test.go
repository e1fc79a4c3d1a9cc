package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_WindowAndReset(t *testing.T) {
	now := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Error("third request in window should be refused")
	}
	if !l.Allow("b") {
		t.Error("other keys are independent")
	}

	l.Reset("a")
	if !l.Allow("a") {
		t.Error("reset key should pass again")
	}

	now = now.Add(2 * time.Minute)
	if !l.Allow("b") {
		t.Error("expired window should reopen")
	}
	l.mu.Lock()
	_, stale := l.windows["a"]
	l.mu.Unlock()
	if stale {
		t.Error("expired windows should be swept")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", "", " 198.51.100.2 ", "10.0.0.2:1234", "198.51.100.2"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"no port", "", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	r := httptest.NewRequest("POST", "/login", nil)

	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "ana@example.com"); !ok {
			t.Fatalf("attempt %d refused", i+1)
		}
	}
	if ok, reason := ll.Check(r, "ana@example.com"); ok || reason == "" {
		t.Error("third attempt for the account should be refused with a reason")
	}
	ll.ResetEmail("ana@example.com")
	if ok, _ := ll.Check(r, "ana@example.com"); !ok {
		t.Error("reset account should be allowed")
	}

	var none *LoginLimiter
	if ok, _ := none.Check(r, "x"); !ok {
		t.Error("nil limiter allows")
	}
}
