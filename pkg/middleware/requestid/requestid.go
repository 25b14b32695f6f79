package requestid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request ID in both directions.
	Header     = "X-Request-ID"
	contextKey = "request_id"
	maxLength  = 128
)

type ctxKey struct{}

// Middleware tags every request with an ID. A well-formed inbound X-Request-ID is
// reused so traces can be joined across services; anything else is replaced.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(Header)
		if !acceptable(reqID) {
			reqID = uuid.NewString()
		}

		c.Set(contextKey, reqID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, reqID))
		c.Writer.Header().Set(Header, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// FromContext returns the request ID attached to a request context, if any.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
