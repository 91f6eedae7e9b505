// Package middleware provides the HTTP middleware stack: request logging,
// panic recovery, CORS, rate limiting and token authentication.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/response"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window limiter keyed by client IP.
type RateLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: max, window: window, buckets: make(map[string]*bucket)}
}

// Allow records one request for key and reports whether it is within budget.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.max
}

// Janitor evicts expired buckets every window until ctx is done.
func (l *RateLimiter) Janitor(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if now.After(b.resetAt) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware answers 429 once a client exceeds its budget. A non-positive
// max disables limiting.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.max > 0 && !l.Allow(clientIP(r)) {
			response.TooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
