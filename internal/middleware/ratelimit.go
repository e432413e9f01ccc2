package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentradar/backend/pkg/utils"
)

// RateLimiter implements a simple in-memory rate limiter keyed by
// client. Tracking endpoints receive high-frequency traffic from the
// same browsers, so limits are keyed per session when the client sends
// one and fall back to the client IP.
type RateLimiter struct {
	clients map[string]*clientWindow
	mu      sync.Mutex
	rate    int // requests per minute
	cleanup time.Duration
}

type clientWindow struct {
	lastSeen time.Time
	count    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		rate:    rate,
		cleanup: time.Minute,
	}

	go rl.cleanupClients()

	return rl
}

// RateLimit middleware function
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Session-ID")
		if key == "" {
			key = c.ClientIP()
		}

		rl.mu.Lock()
		w, exists := rl.clients[key]
		if !exists || time.Since(w.lastSeen) > time.Minute {
			rl.clients[key] = &clientWindow{
				lastSeen: time.Now(),
				count:    1,
			}
			rl.mu.Unlock()
			c.Next()
			return
		}

		if w.count >= rl.rate {
			rl.mu.Unlock()
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded", nil)
			c.Abort()
			return
		}

		w.count++
		w.lastSeen = time.Now()
		rl.mu.Unlock()

		c.Next()
	}
}

// cleanupClients removes stale client windows
func (rl *RateLimiter) cleanupClients() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for key, w := range rl.clients {
			if time.Since(w.lastSeen) > time.Minute*5 {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Security middleware
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenerateRandomID(8)
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
