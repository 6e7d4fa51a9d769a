package api

import (
	"net/http/httptest"
	"testing"
)

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1)

	if !rl.Allow("192.0.2.1") {
		t.Fatal("first request from a client should pass")
	}
	if rl.Allow("192.0.2.1") {
		t.Fatal("second immediate request should be limited")
	}
	if !rl.Allow("192.0.2.2") {
		t.Fatal("a different client must have its own bucket")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{name: "ipv4 with port", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "ipv6 with port", remoteAddr: "[::1]:8080", want: "::1"},
		{name: "bare ip", remoteAddr: "198.51.100.7", want: "198.51.100.7"},
		{name: "empty", remoteAddr: "", want: "unknown"},
		{name: "garbage", remoteAddr: "not-an-ip", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
			}
		})
	}
}
