package pubaddr_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/saveenergy/netglance/internal/pubaddr"
)

func TestRefreshCachesResolvedAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer srv.Close()

	l := pubaddr.New(srv.URL, time.Second, time.Millisecond)
	if got := l.Current(); got != "" {
		t.Fatalf("Current() before refresh = %q, want empty", got)
	}

	l.Refresh(context.Background())
	if got := l.Current(); got != "203.0.113.7" {
		t.Errorf("Current() = %q, want 203.0.113.7", got)
	}
}

func TestRefreshKeepsCacheOnFailure(t *testing.T) {
	addr := "203.0.113.7"
	var mode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch mode {
		case "garbage":
			w.Write([]byte("<html>not an address</html>"))
		case "error":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(addr))
		}
	}))
	defer srv.Close()

	l := pubaddr.New(srv.URL, time.Second, time.Millisecond)
	l.Refresh(context.Background())
	if got := l.Current(); got != addr {
		t.Fatalf("Current() = %q, want %q", got, addr)
	}

	for _, mode = range []string{"garbage", "error"} {
		time.Sleep(5 * time.Millisecond)
		l.Refresh(context.Background())
		if got := l.Current(); got != addr {
			t.Errorf("mode %s: Current() = %q, want cached %q", mode, got, addr)
		}
	}
}

func TestRefreshIsRateLimited(t *testing.T) {
	responses := []string{"203.0.113.7", "198.51.100.9"}
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(responses[calls%len(responses)]))
		calls++
	}))
	defer srv.Close()

	l := pubaddr.New(srv.URL, time.Second, time.Hour)
	l.Refresh(context.Background())
	l.Refresh(context.Background())

	if calls != 1 {
		t.Errorf("endpoint called %d times, want 1", calls)
	}
	if got := l.Current(); got != "203.0.113.7" {
		t.Errorf("Current() = %q, want first response", got)
	}
}

func TestRefreshWithUnreachableEndpoint(t *testing.T) {
	l := pubaddr.New("http://127.0.0.1:1/ip", 200*time.Millisecond, time.Millisecond)
	l.Refresh(context.Background())
	if got := l.Current(); got != "" {
		t.Errorf("Current() = %q, want empty after failed lookup", got)
	}
}
