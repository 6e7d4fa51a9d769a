package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-client token bucket. Buckets refill at the
// configured requests-per-minute rate and idle entries are dropped so
// the map cannot grow without bound.
type RateLimiter struct {
	perMinute int

	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time
	cleanupTTL  time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		perMinute:   perMinute,
		buckets:     make(map[string]*bucket),
		lastCleanup: time.Now(),
		cleanupTTL:  10 * time.Minute,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	now := time.Now()
	if now.Sub(rl.lastCleanup) >= rl.cleanupTTL {
		for key, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.cleanupTTL {
				delete(rl.buckets, key)
			}
		}
		rl.lastCleanup = now
	}

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(
			rate.Limit(float64(rl.perMinute)/60.0), rl.perMinute)}
		rl.buckets[ip] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.Allow()
}

func (rl *RateLimiter) ClientIP(r *http.Request) string {
	return clientIP(r)
}
