package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cacheHit"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Set("request_start", time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata map stored on the context, stamped with the elapsed time.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok || len(meta) == 0 {
		return nil
	}
	if start, ok := c.Get("request_start"); ok {
		if ts, ok := start.(time.Time); ok {
			meta["processingTimeMs"] = time.Since(ts).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if typed, ok := value.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
