package auth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket guarding the login endpoint
type RateLimiter struct {
	mu             sync.Mutex
	buckets        map[string]*tokenBucket
	maxTokens      int
	refillRate     int
	refillInterval time.Duration
	now            func() time.Time
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter allows maxTokens requests per client, then refillRate more every refillInterval
func NewRateLimiter(maxTokens, refillRate int, refillInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:        make(map[string]*tokenBucket),
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		refillInterval: refillInterval,
		now:            time.Now,
	}
}

// DefaultLoginRateLimiter allows 5 attempts, then 1 per minute
func DefaultLoginRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 1, time.Minute)
}

// Allow takes a token for clientID and reports whether one was available
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket, exists := rl.buckets[clientID]
	if !exists {
		bucket = &tokenBucket{tokens: rl.maxTokens, lastRefill: now}
		rl.buckets[clientID] = bucket
	}

	if intervals := int(now.Sub(bucket.lastRefill) / rl.refillInterval); intervals > 0 {
		bucket.tokens = min(bucket.tokens+intervals*rl.refillRate, rl.maxTokens)
		bucket.lastRefill = bucket.lastRefill.Add(time.Duration(intervals) * rl.refillInterval)
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

// Reset clears all rate limit state
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buckets = make(map[string]*tokenBucket)
}

// GetClientIP returns the originating client address. API Gateway puts it first
// in X-Forwarded-For; local runs fall back to RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
		return xrip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware answers 429 once a client has used up its bucket
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl != nil && !rl.Allow(GetClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeAuthError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
