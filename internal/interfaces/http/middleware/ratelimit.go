package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kotek/backend/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window in-memory limiter keyed by client IP.
// It sits in front of the order endpoints because every storefront burst
// turns into carrier API calls on the other side of the sync engine.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	done    chan struct{}
}

type bucket struct {
	remaining int
	resetAt   time.Time
}

// NewRateLimiter starts a limiter allowing limit requests per window and
// a background sweep that drops expired buckets.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		done:    make(chan struct{}),
	}
	go rl.sweep(2 * window)
	return rl
}

// Stop ends the background sweep. The limiter itself keeps working.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

func (rl *RateLimiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, b := range rl.buckets {
				if !now.Before(b.resetAt) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow consumes one request from the key's current window. It reports
// whether the request may proceed, how many requests remain, and how
// long a refused client has to wait.
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{remaining: rl.limit, resetAt: now.Add(rl.window)}
		rl.buckets[key] = b
	}

	if b.remaining == 0 {
		return false, 0, b.resetAt.Sub(now)
	}
	b.remaining--
	return true, b.remaining, 0
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// RateLimit enforces the limiter per client IP and exposes the budget
// through the X-RateLimit headers the storefront reads.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return rateLimitWith(limiter,
		func(c *gin.Context) string { return c.ClientIP() },
		"Too many requests, retry later")
}

// AuthRateLimit throttles credential guessing on the login endpoint.
// It keys on its own namespace, so an exhausted login budget leaves the
// rest of the API usable for the same client.
func AuthRateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return rateLimitWith(limiter,
		func(c *gin.Context) string { return "auth:" + c.ClientIP() },
		"Too many login attempts, retry later")
}

func rateLimitWith(limiter *RateLimiter, key func(*gin.Context) string, message string) gin.HandlerFunc {
	limitHeader := strconv.Itoa(limiter.limit)

	return func(c *gin.Context) {
		allowed, remaining, retryAfter := limiter.Allow(key(c))

		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter/time.Second)+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse(dto.ErrCodeRateLimited, message))
			return
		}

		c.Next()
	}
}
