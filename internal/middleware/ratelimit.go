package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

// WindowCounter counts hits for a key inside a fixed window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit allows limit requests per client IP and route inside each window. It fails open when
// the counter is unavailable.
func RateLimit(counter WindowCounter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("ratelimit:%s:%s", route, c.ClientIP())
		count, err := counter.IncrWindow(c.Request.Context(), key, window)
		if err != nil {
			logger.Debug("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
