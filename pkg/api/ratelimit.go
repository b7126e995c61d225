package api

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiter applies a per-client-IP token bucket to the admin
// surface. A nil limiter allows everything.
type rateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
}

func newRateLimiter(requestsPerSecond float64, burst int) *rateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// allow reports whether the request's client is within its budget
func (rl *rateLimiter) allow(r *http.Request) bool {
	if rl == nil {
		return true
	}

	clientIP := getClientIP(r)

	rl.mu.Lock()
	limiter, exists := rl.limiters[clientIP]
	if !exists {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[clientIP] = limiter

		// Bound the map so a scan across many source addresses cannot
		// grow it without limit.
		if len(rl.limiters) > 10000 {
			rl.limiters = map[string]*rate.Limiter{clientIP: limiter}
		}
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
