package api

import (
	"net/http"
	"testing"
	"time"
)

func TestIPRateLimiterIsolatesIPs(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		CleanupInterval:   time.Hour,
	})
	defer rl.Stop()

	for i := 0; i < 2; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was rejected", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request over burst was allowed")
	}
	// A different IP has its own budget.
	if !rl.Allow("10.0.0.2") {
		t.Error("fresh IP was rejected")
	}
}

func TestConnLimiterCapsAndReleases(t *testing.T) {
	cl := NewConnLimiter(2)

	if !cl.Acquire("ip") || !cl.Acquire("ip") {
		t.Fatal("connections under the cap were rejected")
	}
	if cl.Acquire("ip") {
		t.Error("connection over the cap was allowed")
	}
	cl.Release("ip")
	if !cl.Acquire("ip") {
		t.Error("released slot not reusable")
	}
	cl.Release("ip")
	cl.Release("ip")
	if got := cl.Count("ip"); got != 0 {
		t.Errorf("count after full release = %d, want 0", got)
	}
}

func TestGetClientIP(t *testing.T) {
	r, _ := http.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	if got := GetClientIP(r); got != "192.0.2.1" {
		t.Errorf("remote addr ip = %q", got)
	}

	r.Header.Set("X-Real-IP", "192.0.2.2")
	if got := GetClientIP(r); got != "192.0.2.2" {
		t.Errorf("x-real-ip = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "192.0.2.3, 192.0.2.4")
	if got := GetClientIP(r); got != "192.0.2.3" {
		t.Errorf("x-forwarded-for first hop = %q", got)
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{"https://game.example.com"}
	cases := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"http://localhost", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"http://localhost.evil.com", false},
		{"http://127.0.0.1.evil.com", false},
		{"https://game.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, c := range cases {
		if got := IsAllowedOrigin(c.origin, allowed); got != c.want {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", c.origin, got, c.want)
		}
	}
}
