// Package pubaddr resolves the machine's public address through an
// external echo endpoint. Lookups are best effort and rate limited so
// connectivity flapping cannot hammer the endpoint.
package pubaddr

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/saveenergy/netglance/internal/logging"
)

const maxResponseBytes = 256

// Lookup caches the last resolved address. Refresh and Current are safe
// from any goroutine.
type Lookup struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *logging.Logger

	mu   sync.Mutex
	addr string
}

// New builds a lookup against url. minInterval spaces out consecutive
// refreshes; zero values fall back to sane defaults.
func New(url string, timeout, minInterval time.Duration) *Lookup {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if minInterval <= 0 {
		minInterval = 30 * time.Second
	}
	return &Lookup{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		logger:  logging.NewLogger("pubaddr"),
	}
}

// Refresh queries the endpoint and caches the result. Failures and
// throttled calls leave the cached address untouched.
func (l *Lookup) Refresh(ctx context.Context) {
	if l.url == "" || !l.limiter.Allow() {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		l.logger.Warn("bad lookup URL",
			logging.Field{Key: "url", Value: l.url},
			logging.Field{Key: "error", Value: err})
		return
	}
	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Debug("address lookup failed",
			logging.Field{Key: "error", Value: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Debug("address lookup rejected",
			logging.Field{Key: "status", Value: resp.StatusCode})
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return
	}

	addr := strings.TrimSpace(string(body))
	if net.ParseIP(addr) == nil {
		l.logger.Warn("address lookup returned garbage",
			logging.Field{Key: "body", Value: addr})
		return
	}

	l.mu.Lock()
	changed := l.addr != addr
	l.addr = addr
	l.mu.Unlock()

	if changed {
		l.logger.Info("public address changed",
			logging.Field{Key: "address", Value: addr})
	}
}

// Current returns the last successfully resolved address, or "" when no
// lookup has succeeded yet.
func (l *Lookup) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}
