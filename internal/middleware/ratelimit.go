package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"filemind/backend/internal/apperr"
)

// RateLimiter enforces a fixed window of at most Limit requests per key,
// counted in redis so the window survives restarts and spans replicas.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window}
}

// ByKey returns gin middleware limiting on whatever keyFunc extracts from
// the request (client IP, an email field, ...). An empty key skips the
// limiter; a redis outage fails open rather than blocking all traffic.
func (r *RateLimiter) ByKey(keyFunc func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" || r.Redis == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		redisKey := fmt.Sprintf("%s:%s", r.Prefix, key)

		count, err := r.Redis.Incr(ctx, redisKey).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			r.Redis.Expire(ctx, redisKey, r.Window)
		}
		if count > int64(r.Limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    apperr.CodeRateLimited,
				"message": "too many requests, try again later",
			})
			return
		}
		c.Next()
	}
}
