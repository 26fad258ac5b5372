package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(maxTokens, refillRate int, interval time.Duration) (*RateLimiter, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(maxTokens, refillRate, interval)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestDefaultLoginRateLimiter(t *testing.T) {
	rl := DefaultLoginRateLimiter()

	assert.Equal(t, 5, rl.maxTokens)
	assert.Equal(t, 1, rl.refillRate)
	assert.Equal(t, time.Minute, rl.refillInterval)
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows requests up to limit", func(t *testing.T) {
		rl, _ := newTestLimiter(3, 1, time.Hour)

		assert.True(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"), "request 4 should be blocked")
	})

	t.Run("limits are per client", func(t *testing.T) {
		rl, _ := newTestLimiter(1, 1, time.Hour)

		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"), "other clients keep their quota")
	})

	t.Run("tokens refill per interval up to the cap", func(t *testing.T) {
		rl, now := newTestLimiter(2, 1, time.Minute)

		assert.True(t, rl.Allow("c"))
		assert.True(t, rl.Allow("c"))
		assert.False(t, rl.Allow("c"))

		*now = now.Add(90 * time.Second)
		assert.True(t, rl.Allow("c"))
		assert.False(t, rl.Allow("c"))

		*now = now.Add(30 * time.Second)
		assert.True(t, rl.Allow("c"), "partial interval carries over")

		*now = now.Add(time.Hour)
		assert.True(t, rl.Allow("c"))
		assert.True(t, rl.Allow("c"))
		assert.False(t, rl.Allow("c"), "bucket never exceeds max tokens")
	})

	t.Run("reset restores quota", func(t *testing.T) {
		rl, _ := newTestLimiter(1, 1, time.Hour)

		assert.True(t, rl.Allow("c"))
		assert.False(t, rl.Allow("c"))
		rl.Reset()
		assert.True(t, rl.Allow("c"))
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.7"},
		{"real ip header", "", "198.51.100.4", "10.0.0.2:1234", "198.51.100.4"},
		{"ipv4 remote", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 remote", "", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"no port", "", "", "192.0.2.9", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1, 1, time.Hour)
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send().Code)

	rr := send()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"error":"too many login attempts, try again later"}`, rr.Body.String())
}
