package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEnvelope(t *testing.T) {
	assert.Empty(t, checkEnvelope(200, "req-1", []byte(`{"success":true,"data":[]}`)))
	assert.Empty(t, checkEnvelope(404, "req-1", []byte(`{"success":false,"error":{"code":"NOT_FOUND","message":"x","requestId":"req-1"}}`)))

	problems := checkEnvelope(403, "req-1", []byte(`{"success":true,"data":{}}`))
	assert.Contains(t, problems, "success=true does not match status 403")

	problems = checkEnvelope(400, "", []byte(`{"success":false,"error":{"code":"","message":"bad","requestId":"other"}}`))
	assert.ElementsMatch(t, []string{
		"missing X-Request-ID header",
		"missing error code",
		"error requestId does not echo X-Request-ID",
	}, problems)

	assert.Equal(t, []string{"body is not a JSON envelope"}, checkEnvelope(200, "req-1", []byte("ok")))
}

func TestCheckTargetSendsTokenOnlyWhenAsked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-9")
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"AUTH_MISSING","message":"missing","requestId":"req-9"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"u-1"}}`))
	}))
	defer srv.Close()

	client := resty.New().SetBaseURL(srv.URL)

	res := checkTarget(client, "secret", target{Method: "get", Path: "api/auth/me", Auth: true, ExpectStatus: 200})
	require.NoError(t, res.Error)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, res.Problems)

	res = checkTarget(client, "secret", target{Path: "/api/auth/me", ExpectStatus: 200})
	require.NoError(t, res.Error)
	assert.Equal(t, []string{"expected status 200"}, res.Problems)
}

func TestLoadTargetsRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[]}`), 0o600))

	_, err := loadTargets(path)
	assert.Error(t, err)

	targets, err := loadTargets("targets.json")
	require.NoError(t, err)
	assert.NotEmpty(t, targets)
}
