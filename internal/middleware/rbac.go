package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type roleSet map[models.UserRole]struct{}

func newRoleSet(roles []models.UserRole) roleSet {
	set := make(roleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s roleSet) has(role models.UserRole) bool {
	_, ok := s[role]
	return ok
}

// RequireRoles lets a request through only when the caller's role is listed.
// Admin roles get no implicit pass; routes name them.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return guardRoles(newRoleSet(roles), "")
}

// RequireRolesOrSelf behaves like RequireRoles but also admits a caller whose user id
// equals the named path parameter.
func RequireRolesOrSelf(param string, roles ...models.UserRole) gin.HandlerFunc {
	return guardRoles(newRoleSet(roles), param)
}

func guardRoles(allowed roleSet, selfParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		switch {
		case claims == nil:
			response.Error(c, appErrors.ErrAuthMissing)
		case allowed.has(claims.Role):
			c.Next()
			return
		case selfParam != "" && c.Param(selfParam) != "" && c.Param(selfParam) == claims.UserID:
			c.Next()
			return
		default:
			response.Error(c, appErrors.ErrForbidden)
		}
		c.Abort()
	}
}
