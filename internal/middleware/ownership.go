package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

// OwnershipCheck reports whether actor owns the resource identified by id. It returns an error
// (usually a uniform not found) when it does not.
type OwnershipCheck func(ctx context.Context, id string, actor models.Actor) error

// RequireOwnership guards a route group by running check against the named path parameter.
// Admins bypass the check.
func RequireOwnership(param string, check OwnershipCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrAuthMissing)
			c.Abort()
			return
		}
		actor := claims.Actor()
		if actor.IsAdmin() {
			c.Next()
			return
		}
		id := c.Param(param)
		if id == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, param+" is required"))
			c.Abort()
			return
		}
		if err := check(c.Request.Context(), id, actor); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
