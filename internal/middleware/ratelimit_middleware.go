package middleware

import (
	"context"
	"net/http"
	"strconv"

	"propdesk/internal/redis"
	"propdesk/internal/services"
	"propdesk/internal/transport/httpdto"
	"propdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RateLimiter interface {
	Allow(ctx context.Context, action, subject string) (*redis.RateLimitResult, error)
}

// RateLimitMiddleware limits action per authenticated user, falling back to
// the client IP. Limiter failures let the request through.
func RateLimitMiddleware(limiter RateLimiter, action string, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		subject, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			subject = c.ClientIP()
		}

		result, err := limiter.Allow(c.Request.Context(), action, subject)
		if err != nil {
			if l != nil {
				l.Ctx(c.Request.Context()).Warnf("rate limiter unavailable for %s: %v", action, err)
			}
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(action+" rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	if result.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
