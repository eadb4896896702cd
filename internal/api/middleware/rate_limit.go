package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"spacehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware is a no-op when built without a limiter (no Redis configured)
type RateLimitMiddleware struct {
	limiter RateLimiter
}

func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// RateLimit limits authenticated requests per user and endpoint
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return rm.limit(requests, window, func(c *gin.Context) (string, bool) {
		userID, ok := c.Get(ContextUserID)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("rate_limit:%s:%s", userID, c.FullPath()), true
	})
}

// RateLimitIP limits public routes per client address and endpoint
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return rm.limit(requests, window, func(c *gin.Context) (string, bool) {
		return fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.FullPath()), true
	})
}

// WebSocketRateLimit limits connection attempts per client address
func (rm *RateLimitMiddleware) WebSocketRateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return rm.limit(requests, window, func(c *gin.Context) (string, bool) {
		return fmt.Sprintf("rate_limit:websocket:%s", c.ClientIP()), true
	})
}

// limit fails open when the limiter itself errors
func (rm *RateLimitMiddleware) limit(requests int, window time.Duration, keyFn func(*gin.Context) (string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rm == nil || rm.limiter == nil || requests <= 0 {
			c.Next()
			return
		}

		key, ok := keyFn(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "", "")
			return
		}

		allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			slog.Warn("Rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded",
				fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window))
			return
		}

		c.Next()
	}
}
