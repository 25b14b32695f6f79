package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator parses access tokens into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid bearer access token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.ErrAuthMissing)
			c.Abort()
			return
		}
		authenticate(c, validator, token)
	}
}

// JWTQuery behaves like JWT but also accepts the token in the access_token query parameter.
// Browsers cannot set headers on websocket upgrades.
func JWTQuery(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			token = strings.TrimSpace(c.Query("access_token"))
		}
		if token == "" {
			response.Error(c, appErrors.ErrAuthMissing)
			c.Abort()
			return
		}
		authenticate(c, validator, token)
	}
}

// OptionalJWT attaches claims when present but does not block.
func OptionalJWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		if claims, err := validator.ValidateToken(token); err == nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by JWT, or nil.
func ClaimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func authenticate(c *gin.Context, validator TokenValidator, token string) {
	claims, err := validator.ValidateToken(token)
	if err != nil {
		response.Error(c, err)
		c.Abort()
		return
	}
	c.Set(ContextUserKey, claims)
	c.Next()
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
