package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"recipebox/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Limiter 按 key 判定一次请求是否放行。
type Limiter interface {
	TryAcquire(ctx context.Context, key string) (bool, int64, error)
}

// TokenRateLimit throttles an endpoint per client IP. Redis failures fail
// open: losing the limiter must not take logins down with it.
func TokenRateLimit(limiter Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, waitMs, err := limiter.TryAcquire(c.Request.Context(), c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !allowed {
			metrics.TokenThrottledTotal.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "retry_after_ms": waitMs})
			c.Abort()
			return
		}
		c.Next()
	}
}
