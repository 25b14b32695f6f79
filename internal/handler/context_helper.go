package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/middleware"
	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// actorFromContext writes AUTH_MISSING and returns false when the route ran without JWT.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrAuthMissing)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

func bindJSON(c *gin.Context, dest interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Rewrap(appErrors.ErrValidation, err, msg))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.Query("limit"))
	if size == 0 {
		size, _ = strconv.Atoi(c.Query("page_size"))
	}
	return models.NormalizePage(page, size)
}

func optionalInt64Query(c *gin.Context, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return &v, nil
}

func listed(c *gin.Context, items interface{}, pagination *models.Pagination) {
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// optionalActor returns the caller on routes behind OptionalJWT, or an anonymous actor.
func optionalActor(c *gin.Context) models.Actor {
	if claims := claimsFromContext(c); claims != nil {
		return claims.Actor()
	}
	return models.Actor{}
}
