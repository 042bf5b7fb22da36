package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/ycho/redmine-mcp/internal/mcp"
)

const apiKeyHeader = "X-Redmine-API-Key"

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the Redmine client for a request: the caller's
// X-Redmine-API-Key when present, otherwise the server's own credentials
// unless RequireCallerKey is set. Requests with neither are rejected.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(apiKeyHeader); key != "" {
			ctx := mcp.WithClient(r.Context(), s.client.WithAPIKey(key))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		if s.config.RequireCallerKey || !s.client.HasCredentials() {
			writeError(w, http.StatusUnauthorized, "Missing "+apiKeyHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	mu        sync.Mutex
	tokens    map[string]*bucket
	rate      int           // tokens per interval
	interval  time.Duration // refill interval
	maxTokens int           // max burst size
	now       func() time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter that refills rate tokens every
// interval up to maxTokens.
func NewRateLimiter(rate int, interval time.Duration, maxTokens int) *RateLimiter {
	return &RateLimiter{
		tokens:    make(map[string]*bucket),
		rate:      rate,
		interval:  interval,
		maxTokens: maxTokens,
		now:       time.Now,
	}
}

// Allow checks if a request from the given key is allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.tokens[key]
	if !exists {
		rl.tokens[key] = &bucket{
			tokens:     rl.maxTokens - 1,
			lastRefill: now,
		}
		return true
	}

	elapsed := now.Sub(b.lastRefill)
	if refill := int(elapsed/rl.interval) * rl.rate; refill > 0 {
		b.tokens = min(b.tokens+refill, rl.maxTokens)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Middleware rate limits by API key prefix, or by remote address for
// requests without a key.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if apiKey := r.Header.Get(apiKeyHeader); apiKey != "" {
			// Only a prefix is kept so full keys never sit in memory here.
			key = apiKey[:min(len(apiKey), 8)]
		}

		if !rl.Allow(key) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup removes buckets idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.tokens {
		if now.Sub(b.lastRefill) > maxAge {
			delete(rl.tokens, key)
		}
	}
}
