package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/ratelimit"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// RateLimit limits each authenticated user to limit requests per window.
// Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if v, ok := c.Get(ContextUserID); ok {
			key = "user:" + toString(v)
		}
		res, err := limiter.Allow(c.Request.Context(), key, limit, window, time.Now())
		if err != nil {
			Log(c, logger).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(res.Reset).Seconds())+1))
			response.TooManyRequests(c, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func toString(v interface{}) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
