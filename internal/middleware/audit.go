package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit log entry after each successful request. idParam names the path
// parameter holding the affected resource id and may be empty.
func Audit(repo AuditRecorder, action, resource, idParam string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims := ClaimsFromContext(c); claims != nil {
			id := claims.UserID
			userID = &id
		}
		var resourceID *string
		if idParam != "" {
			if id := c.Param(idParam); id != "" {
				resourceID = &id
			}
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		if err := repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}); err != nil {
			logger.Warn("audit log", zap.String("action", action), zap.Error(err))
		}
	}
}
