package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/handler"
	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/config"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrAuthInvalid
}

type ownershipStub struct {
	courseOwner  map[string]string
	sessionOwner map[string]string
	calls        int
}

func (o *ownershipStub) CourseCheck(ctx context.Context, courseID string, actor models.Actor) error {
	o.calls++
	if o.courseOwner[courseID] != actor.UserID {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
	}
	return nil
}

func (o *ownershipStub) SessionCheck(ctx context.Context, sessionID string, actor models.Actor) error {
	o.calls++
	if o.sessionOwner[sessionID] != actor.UserID {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found or unauthorized")
	}
	return nil
}

type denyCounter struct{}

func (denyCounter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 100, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *ownershipStub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api"}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 5, Window: time.Minute}

	ownership := &ownershipStub{
		courseOwner:  map[string]string{"course-1": "mentor-1"},
		sessionOwner: map[string]string{"session-1": "mentor-1"},
	}
	h := Handlers{
		Auth:        handler.NewAuthHandler(nil),
		Course:      handler.NewCourseHandler(nil, nil),
		Chapter:     handler.NewChapterHandler(nil, nil),
		Resource:    handler.NewResourceHandler(nil),
		Job:         handler.NewJobHandler(nil),
		Application: handler.NewApplicationHandler(nil, nil),
		Ambassador:  handler.NewAmbassadorHandler(nil, nil),
		Profile:     handler.NewProfileHandler(nil, nil),
		Upload:      handler.NewUploadHandler(nil, nil),
		Session:     handler.NewSessionHandler(nil, nil, nil),
		Metrics:     handler.NewMetricsHandler(nil, nil),
	}
	deps := Dependencies{
		Tokens: tokenTable{
			"student": {UserID: "student-1", Role: models.RoleStudent},
			"mentor":  {UserID: "mentor-1", Role: models.RoleMentor},
			"mentor2": {UserID: "mentor-2", Role: models.RoleMentor},
			"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		},
		Ownership: ownership,
		Counter:   denyCounter{},
	}
	return New(cfg, h, deps), ownership
}

func do(r *gin.Engine, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func codeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Error.RequestID)
	return env.Error.Code
}

func TestHealthIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthGate(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/jobs", "", `{}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_MISSING", codeOf(t, w))

	w = do(r, http.MethodPost, "/api/jobs", "forged", `{}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_INVALID", codeOf(t, w))

	w = do(r, http.MethodPost, "/api/jobs", "student", `{}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", codeOf(t, w))

	w = do(r, http.MethodGet, "/api/admin/payouts", "mentor", "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCourseMutationsRequireOwnership(t *testing.T) {
	r, ownership := newTestRouter(t)

	w := do(r, http.MethodPut, "/api/courses/course-1", "mentor2", `{`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", codeOf(t, w))

	w = do(r, http.MethodDelete, "/api/courses/course-1/chapters/ch-1", "mentor2", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// Owners pass the guard and reach payload validation.
	w = do(r, http.MethodPut, "/api/courses/course-1", "mentor", `{`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", codeOf(t, w))
	assert.Equal(t, 3, ownership.calls)

	w = do(r, http.MethodPut, "/api/courses/course-1/chapters/reorder", "admin", `{`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, ownership.calls)
}

func TestSessionMutationsRequireOwnership(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPut, "/api/sessions/session-1/status", "mentor2", `{`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/api/sessions/session-1/status", "mentor", `{`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebsocketAcceptsQueryToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/sessions/session-1/ws?access_token=forged", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_INVALID", codeOf(t, w))
}

func TestLoginIsRateLimited(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/auth/login", "", `{}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", codeOf(t, w))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
