package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrAuthInvalid, "")
}

var tokens = staticValidator{
	"student": {UserID: "student-1", Role: models.RoleStudent},
	"mentor":  {UserID: "mentor-1", Role: models.RoleMentor},
	"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Code
}

func serve(router *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", JWT(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFromContext(c).UserID)
	})

	w := serve(router, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_MISSING", errorCode(t, w))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "AUTH_MISSING", errorCode(t, w))

	w = serve(router, http.MethodGet, "/me", "forged")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_INVALID", errorCode(t, w))

	w = serve(router, http.MethodGet, "/me", "student")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", w.Body.String())
}

func TestJWTQueryAcceptsAccessTokenParameter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", JWTQuery(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFromContext(c).UserID)
	})

	w := serve(router, http.MethodGet, "/ws?access_token=mentor", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mentor-1", w.Body.String())

	w = serve(router, http.MethodGet, "/ws", "")
	assert.Equal(t, "AUTH_MISSING", errorCode(t, w))
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/courses", JWT(tokens), RequireRoles(models.RoleMentor, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	assert.Equal(t, http.StatusCreated, serve(router, http.MethodPost, "/courses", "mentor").Code)
	assert.Equal(t, http.StatusCreated, serve(router, http.MethodPost, "/courses", "admin").Code)

	w := serve(router, http.MethodPost, "/courses", "student")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))
}

func TestRequireRolesOrSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/students/:id/profile", JWT(tokens), RequireRolesOrSelf("id", models.RoleEmployer), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/students/student-1/profile", "student").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/students/student-2/profile", "student").Code)
}

func TestRequireOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)
	owners := map[string]string{"course-1": "mentor-1"}
	calls := 0
	check := func(ctx context.Context, id string, actor models.Actor) error {
		calls++
		if owners[id] != actor.UserID {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
		}
		return nil
	}
	router := gin.New()
	router.PUT("/courses/:id", JWT(tokens), RequireOwnership("id", check), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPut, "/courses/course-1", "mentor").Code)

	w := serve(router, http.MethodPut, "/courses/course-1", "student")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	missing := serve(router, http.MethodPut, "/courses/course-9", "mentor")
	assert.Equal(t, http.StatusNotFound, missing.Code)

	calls = 0
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPut, "/courses/course-9", "admin").Code)
	assert.Zero(t, calls)
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counter := &fakeCounter{counts: map[string]int64{}}
	router := gin.New()
	router.POST("/auth/login", RateLimit(counter, 2, time.Minute, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/auth/login", "").Code)
	w := serve(router, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(router, http.MethodPost, "/auth/login", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, w))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counter := &fakeCounter{err: errors.New("redis down")}
	router := gin.New()
	router.POST("/auth/login", RateLimit(counter, 1, time.Minute, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/auth/login", "").Code)
	}
}

type recordingAudit struct {
	logs []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &recordingAudit{}
	router := gin.New()
	router.DELETE("/jobs/:id", JWT(tokens), Audit(audit, models.AuditActionJobDelete, "job", "id", nil), func(c *gin.Context) {
		if c.Param("id") == "fail" {
			c.Status(http.StatusForbidden)
			return
		}
		c.Status(http.StatusNoContent)
	})

	serve(router, http.MethodDelete, "/jobs/job-1", "mentor")
	serve(router, http.MethodDelete, "/jobs/fail", "mentor")

	require.Len(t, audit.logs, 1)
	entry := audit.logs[0]
	assert.Equal(t, models.AuditActionJobDelete, entry.Action)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "job-1", *entry.ResourceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "mentor-1", *entry.UserID)
}

type recordingObserver struct {
	paths []string
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.paths = append(r.paths, path)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/jobs/123", "")
	serve(router, http.MethodGet, "/nope/abc", "")

	assert.Equal(t, []string{"/jobs/:id", "unmatched"}, observer.paths)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/jobs", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	w := serve(router, http.MethodGet, "/jobs", "")
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cacheHit"])
	assert.Contains(t, meta, "processingTimeMs")
}
