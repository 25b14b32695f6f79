package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/middleware/requestid"
)

// Envelope represents the common response contract.
type Envelope struct {
	Success    bool                   `json:"success"`
	Data       interface{}            `json:"data,omitempty"`
	Error      *ErrorBody             `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

var now = time.Now

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Success: true, Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, nil)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
// Internal errors are reported with a generic message; the cause is attached to the gin context for logging.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		appErr = appErrors.ErrInternal
	}
	_ = c.Error(err)

	body := &ErrorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		Timestamp: now().UTC(),
		RequestID: requestid.Value(c),
	}
	if appErr.Kind == appErrors.KindInternal {
		body.Code = appErrors.ErrInternal.Code
		body.Message = appErrors.ErrInternal.Message
		body.Details = nil
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.AbortWithStatusJSON(appErr.Status(), Envelope{Success: false, Error: body})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
