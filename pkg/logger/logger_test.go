package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-connect-api/pkg/middleware/requestid"
)

func TestGinMiddlewareLogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(requestid.Middleware(), GinMiddleware(zap.New(core)))
	r.GET("/jobs/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/jobs/42", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/jobs/:id", fields["path"])
	assert.Equal(t, "abc", fields["request_id"])
	assert.Contains(t, fields["error"], "boom")
}

func TestForAddsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", func(c *gin.Context) {
		For(c.Request.Context(), base).Info("payout reviewed")
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("payout reviewed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	_, hasTrace := entries[0].ContextMap()["trace_id"]
	assert.False(t, hasTrace)

	assert.Same(t, base, For(httptest.NewRequest(http.MethodGet, "/", nil).Context(), base))
}
