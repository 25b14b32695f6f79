package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

const maxLocalUploadBytes = 500 << 20

type uploadService interface {
	PresignUpload(ctx context.Context, actor models.Actor, req models.PresignUploadRequest) (*models.PresignedUpload, error)
	PresignDownload(ctx context.Context, actor models.Actor, req models.PresignDownloadRequest) (*models.PresignedDownload, error)
	UploadCourseContent(ctx context.Context, actor models.Actor, courseID string, category models.UploadCategory, file models.FileInfo, body io.Reader) (*models.StoredFile, error)
}

// LocalObjects is the development object store that serves presigned tokens itself.
type LocalObjects interface {
	Resolve(token string, op storage.Operation) (*storage.Grant, error)
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	Open(key string) (*os.File, error)
}

// UploadHandler exposes the file delegate endpoints.
type UploadHandler struct {
	service uploadService
	local   LocalObjects
}

// NewUploadHandler constructs the handler. local may be nil when a cloud bucket is configured.
func NewUploadHandler(service uploadService, local LocalObjects) *UploadHandler {
	return &UploadHandler{service: service, local: local}
}

// PresignUpload godoc
// @Summary Presigned upload URL
// @Description Validates type and size for the category, then returns a time-limited PUT URL.
// @Tags Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.PresignUploadRequest true "File"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /upload/presigned-url [post]
func (h *UploadHandler) PresignUpload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.PresignUploadRequest
	if !bindJSON(c, &req, "invalid upload payload") {
		return
	}
	res, err := h.service.PresignUpload(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// PresignDownload godoc
// @Summary Presigned download URL
// @Tags Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.PresignDownloadRequest true "Object key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /upload/presigned-download [post]
func (h *UploadHandler) PresignDownload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.PresignDownloadRequest
	if !bindJSON(c, &req, "invalid download payload") {
		return
	}
	res, err := h.service.PresignDownload(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// CourseContent godoc
// @Summary Upload course content through the API
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param courseId formData string true "Course ID"
// @Param category formData string true "Course upload category"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Router /upload/course-content [post]
func (h *UploadHandler) CourseContent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courseID := strings.TrimSpace(c.PostForm("courseId"))
	category := models.UploadCategory(strings.TrimSpace(c.PostForm("category")))
	if courseID == "" || category == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseId and category are required"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to open file"))
		return
	}
	defer src.Close()

	info := models.FileInfo{Name: fileHeader.Filename, ContentType: fileHeader.Header.Get("Content-Type"), Size: fileHeader.Size}
	stored, err := h.service.UploadCourseContent(c.Request.Context(), actor, courseID, category, info, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stored)
}

// LocalPut receives the body of a presigned upload when objects are stored on local disk.
func (h *UploadHandler) LocalPut(c *gin.Context) {
	if h.local == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "local storage disabled"))
		return
	}
	grant, err := h.local.Resolve(c.Param("token"), storage.OperationUpload)
	if err != nil {
		response.Error(c, appErrors.Rewrap(appErrors.ErrForbidden, err, "upload link invalid or expired"))
		return
	}
	if grant.ContentType != "" && !strings.EqualFold(c.ContentType(), grant.ContentType) {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidFileType, "content type does not match the upload link"))
		return
	}
	limit := int64(maxLocalUploadBytes)
	if grant.MaxSize > 0 && grant.MaxSize < limit {
		limit = grant.MaxSize
	}
	if c.Request.ContentLength > limit {
		response.Error(c, appErrors.ErrFileTooLarge)
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := h.local.Put(c.Request.Context(), grant.Key, grant.ContentType, body); err != nil {
		_ = h.local.Delete(c.Request.Context(), grant.Key)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrFileTooLarge)
			return
		}
		response.Error(c, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to store object"))
		return
	}
	response.NoContent(c)
}

// LocalGet serves a presigned download when objects are stored on local disk.
func (h *UploadHandler) LocalGet(c *gin.Context) {
	if h.local == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "local storage disabled"))
		return
	}
	grant, err := h.local.Resolve(c.Param("token"), storage.OperationDownload)
	if err != nil {
		response.Error(c, appErrors.Rewrap(appErrors.ErrForbidden, err, "download link invalid or expired"))
		return
	}
	key := grant.Key
	file, err := h.local.Open(key)
	if err != nil {
		response.Error(c, appErrors.Rewrap(appErrors.ErrNotFound, err, "object not found"))
		return
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to read object"))
		return
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, no-store")
	http.ServeContent(c.Writer, c.Request, path.Base(key), stat.ModTime(), file)
}
