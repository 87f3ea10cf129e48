package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RateLimit applies a per-client token bucket. Single-instance only; a
// multi-instance deployment would move this into Redis.
func RateLimit(next http.Handler) http.Handler {
	limiter := newTokenBucketLimiter(60, 10)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		if !limiter.Allow(clientIP) {
			log.Warn().
				Str("client_ip", clientIP).
				Str("url", r.URL.String()).
				Msg("Rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)

			resp := map[string]string{
				"error":   "rate limit exceeded",
				"details": "too many requests, try again later",
			}
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getClientIP(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		if commaIndex := strings.IndexByte(forwardedFor, ','); commaIndex > 0 {
			return forwardedFor[:commaIndex]
		}
		return forwardedFor
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

type tokenBucketLimiter struct {
	requestsPerMinute int
	burstSize         int

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

func newTokenBucketLimiter(requestsPerMinute, burstSize int) *tokenBucketLimiter {
	return &tokenBucketLimiter{
		requestsPerMinute: requestsPerMinute,
		burstSize:         burstSize,
		clients:           make(map[string]*clientBucket),
	}
}

func (rl *tokenBucketLimiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	bucket, exists := rl.clients[clientIP]
	if !exists {
		bucket = &clientBucket{
			tokens:     rl.burstSize,
			lastRefill: now,
		}
		rl.clients[clientIP] = bucket
	}

	refill := int(now.Sub(bucket.lastRefill).Minutes() * float64(rl.requestsPerMinute))
	if refill > 0 {
		bucket.tokens = min(bucket.tokens+refill, rl.burstSize)
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
