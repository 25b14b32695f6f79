package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type resourceService interface {
	List(ctx context.Context, courseID string, actor models.Actor) ([]models.Resource, error)
	Create(ctx context.Context, courseID string, actor models.Actor, req models.CreateResourceRequest) (*models.Resource, error)
	Delete(ctx context.Context, courseID, resourceID string) error
	Download(ctx context.Context, courseID, resourceID string, actor models.Actor) (*models.ResourceDownload, error)
}

// ResourceHandler serves downloadable course resources.
type ResourceHandler struct {
	service resourceService
}

// NewResourceHandler constructs the handler.
func NewResourceHandler(service resourceService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// List godoc
// @Summary List course resources
// @Tags Resources
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/resources [get]
func (h *ResourceHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Param("id"), optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Create godoc
// @Summary Attach a resource
// @Description Registers an object previously uploaded through a presigned URL.
// @Tags Resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.CreateResourceRequest true "Resource"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/resources [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateResourceRequest
	if !bindJSON(c, &req, "invalid resource payload") {
		return
	}
	resource, err := h.service.Create(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resource)
}

// Delete godoc
// @Summary Delete a resource
// @Tags Resources
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param resourceId path string true "Resource ID"
// @Success 204
// @Router /courses/{id}/resources/{resourceId} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("resourceId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Resource download link
// @Tags Resources
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param resourceId path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/resources/{resourceId}/download [get]
func (h *ResourceHandler) Download(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.service.Download(c.Request.Context(), c.Param("id"), c.Param("resourceId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}
