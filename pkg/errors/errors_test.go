package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindInvalidState:    http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindRateLimited:     http.StatusTooManyRequests,
		KindUpstream:        http.StatusBadGateway,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status())
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", ErrAlreadyApplied)
	appErr := FromError(wrapped)
	assert.Equal(t, "ALREADY_APPLIED", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status())
}

func TestIsMatchesByCode(t *testing.T) {
	cloned := Clone(ErrNotFound, "course not found or unauthorized")
	assert.True(t, stdErrors.Is(cloned, ErrNotFound))
	assert.False(t, stdErrors.Is(cloned, ErrForbidden))
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromValidationCollectsFields(t *testing.T) {
	type payload struct {
		Title string `validate:"required"`
		Limit int    `validate:"min=1"`
	}
	err := validator.New().Struct(payload{})
	appErr := FromValidation(err, "invalid job payload")
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	details, ok := appErr.Details.(map[string]interface{})
	require.True(t, ok)
	fields := details["fields"].([]FieldError)
	require.Len(t, fields, 2)
	assert.Equal(t, "title", fields[0].Field)
	assert.Equal(t, "required", fields[0].Rule)
	assert.Equal(t, "1", fields[1].Param)
}
