// middleware/rate_limit.go
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/auth-service/internal/constants"
	"github.com/surdiana/auth-service/pkg/logger"
	redisclient "github.com/surdiana/auth-service/pkg/redis"
	"go.uber.org/zap"
)

// RateLimit returns a fixed-window per-IP limiter. With a Redis client
// the window is shared across instances, without one it falls back to an
// in-process window.
func RateLimit(client *redisclient.Client, maxRequest int, duration time.Duration) gin.HandlerFunc {
	if client != nil {
		return redisRateLimit(client, maxRequest, duration)
	}
	return localRateLimit(maxRequest, duration)
}

func redisRateLimit(client *redisclient.Client, maxRequest int, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := constants.CacheKeyRateLimit + c.ClientIP()

		count, err := client.IncrementWithWindow(ctx, key, duration)
		if err != nil {
			// Redis trouble should not take the API down
			logger.GetLogger().Warn("Rate limit check failed, allowing request",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count > int64(maxRequest) {
			ttl, _ := client.TTL(ctx, key)
			rejectRateLimited(c, maxRequest, ttl)
			return
		}

		remaining := int64(maxRequest) - count
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequest))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		c.Next()
	}
}

type localLimiter struct {
	tokens     map[string][]time.Time
	maxRequest int
	duration   time.Duration
	mu         sync.Mutex
}

func localRateLimit(maxRequest int, duration time.Duration) gin.HandlerFunc {
	limiter := &localLimiter{
		tokens:     make(map[string][]time.Time),
		maxRequest: maxRequest,
		duration:   duration,
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		limiter.mu.Lock()
		limiter.cleanup(now)

		tokens := limiter.tokens[ip]
		if len(tokens) >= maxRequest {
			limiter.mu.Unlock()
			rejectRateLimited(c, maxRequest, duration)
			return
		}

		limiter.tokens[ip] = append(tokens, now)
		remaining := maxRequest - len(tokens) - 1
		limiter.mu.Unlock()

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequest))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		c.Next()
	}
}

func (rl *localLimiter) cleanup(now time.Time) {
	for ip, tokens := range rl.tokens {
		var valid []time.Time
		for _, t := range tokens {
			if now.Sub(t) <= rl.duration {
				valid = append(valid, t)
			}
		}
		if len(valid) > 0 {
			rl.tokens[ip] = valid
		} else {
			delete(rl.tokens, ip)
		}
	}
}

func rejectRateLimited(c *gin.Context, maxRequest int, retryAfter time.Duration) {
	logger.GetLogger().Warn("Rate limit exceeded",
		zap.String("client_ip", c.ClientIP()),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("max_requests", maxRequest),
	)

	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       constants.MsgTooManyRequests,
		"retry_after": retryAfter.Seconds(),
	})
	c.Abort()
}
