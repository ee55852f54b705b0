// Package http provides the gin HTTP server, middleware and metrics server.
package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CustomLoggerMiddleware logs HTTP requests with slog.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", c.ClientIP()),
			slog.String("request_id", requestid.Get(c)),
		)
	}
}

// clientRateLimiter keeps one token bucket per client identity.
type clientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientRateLimiter(requestsPerSec float64, burst int) *clientRateLimiter {
	return &clientRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSec),
		burst:    burst,
	}
}

func (c *clientRateLimiter) limiter(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.limiters[key] = limiter
	}
	return limiter
}

// RateLimitMiddleware applies a per-client token bucket. The client identity
// is the Client-Id header when present, the remote address otherwise.
func RateLimitMiddleware(requestsPerSec float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	rateLimiter := newClientRateLimiter(requestsPerSec, burst)

	return func(c *gin.Context) {
		key := c.GetHeader("Client-Id")
		if key == "" {
			key = c.ClientIP()
		}

		if !rateLimiter.limiter(key).Allow() {
			if logger != nil {
				logger.Warn("rate limit exceeded", slog.String("client", key))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}
