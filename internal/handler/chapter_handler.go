package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type chapterService interface {
	List(ctx context.Context, courseID string, actor models.Actor) ([]models.Chapter, error)
	Create(ctx context.Context, courseID string, req models.CreateChapterRequest) (*models.Chapter, error)
	Update(ctx context.Context, courseID, chapterID string, req models.UpdateChapterRequest) (*models.Chapter, error)
	Delete(ctx context.Context, courseID, chapterID string) error
	Reorder(ctx context.Context, courseID string, req models.ReorderChaptersRequest) ([]models.Chapter, error)
}

type contentService interface {
	List(ctx context.Context, courseID, chapterID string, actor models.Actor) ([]models.Content, error)
	Create(ctx context.Context, courseID, chapterID string, req models.CreateContentRequest) (*models.Content, error)
	Update(ctx context.Context, courseID, chapterID, contentID string, req models.UpdateContentRequest) (*models.Content, error)
	Delete(ctx context.Context, courseID, chapterID, contentID string) error
}

// ChapterHandler serves chapters and their lesson content. Write routes sit behind the course
// ownership guard.
type ChapterHandler struct {
	chapters chapterService
	contents contentService
}

// NewChapterHandler constructs the handler.
func NewChapterHandler(chapters chapterService, contents contentService) *ChapterHandler {
	return &ChapterHandler{chapters: chapters, contents: contents}
}

// List godoc
// @Summary List chapters
// @Tags Chapters
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/chapters [get]
func (h *ChapterHandler) List(c *gin.Context) {
	items, err := h.chapters.List(c.Request.Context(), c.Param("id"), optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Create godoc
// @Summary Create chapter
// @Tags Chapters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.CreateChapterRequest true "Chapter"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/chapters [post]
func (h *ChapterHandler) Create(c *gin.Context) {
	var req models.CreateChapterRequest
	if !bindJSON(c, &req, "invalid chapter payload") {
		return
	}
	chapter, err := h.chapters.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, chapter)
}

// Update godoc
// @Summary Update chapter
// @Tags Chapters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param chapterId path string true "Chapter ID"
// @Param payload body models.UpdateChapterRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/chapters/{chapterId} [put]
func (h *ChapterHandler) Update(c *gin.Context) {
	var req models.UpdateChapterRequest
	if !bindJSON(c, &req, "invalid chapter payload") {
		return
	}
	chapter, err := h.chapters.Update(c.Request.Context(), c.Param("id"), c.Param("chapterId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, chapter)
}

// Delete godoc
// @Summary Delete chapter
// @Tags Chapters
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param chapterId path string true "Chapter ID"
// @Success 204
// @Router /courses/{id}/chapters/{chapterId} [delete]
func (h *ChapterHandler) Delete(c *gin.Context) {
	if err := h.chapters.Delete(c.Request.Context(), c.Param("id"), c.Param("chapterId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reorder godoc
// @Summary Reorder chapters
// @Tags Chapters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.ReorderChaptersRequest true "Chapter ids in the new order"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/chapters/reorder [put]
func (h *ChapterHandler) Reorder(c *gin.Context) {
	var req models.ReorderChaptersRequest
	if !bindJSON(c, &req, "invalid reorder payload") {
		return
	}
	items, err := h.chapters.Reorder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// ListContent godoc
// @Summary List chapter content
// @Tags Content
// @Produce json
// @Param id path string true "Course ID"
// @Param chapterId path string true "Chapter ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/chapters/{chapterId}/content [get]
func (h *ChapterHandler) ListContent(c *gin.Context) {
	items, err := h.contents.List(c.Request.Context(), c.Param("id"), c.Param("chapterId"), optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// CreateContent godoc
// @Summary Create lesson content
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param chapterId path string true "Chapter ID"
// @Param payload body models.CreateContentRequest true "Content"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/chapters/{chapterId}/content [post]
func (h *ChapterHandler) CreateContent(c *gin.Context) {
	var req models.CreateContentRequest
	if !bindJSON(c, &req, "invalid content payload") {
		return
	}
	content, err := h.contents.Create(c.Request.Context(), c.Param("id"), c.Param("chapterId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, content)
}

// UpdateContent godoc
// @Summary Update lesson content
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param chapterId path string true "Chapter ID"
// @Param contentId path string true "Content ID"
// @Param payload body models.UpdateContentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/chapters/{chapterId}/content/{contentId} [put]
func (h *ChapterHandler) UpdateContent(c *gin.Context) {
	var req models.UpdateContentRequest
	if !bindJSON(c, &req, "invalid content payload") {
		return
	}
	content, err := h.contents.Update(c.Request.Context(), c.Param("id"), c.Param("chapterId"), c.Param("contentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, content)
}

// DeleteContent godoc
// @Summary Delete lesson content
// @Tags Content
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param chapterId path string true "Chapter ID"
// @Param contentId path string true "Content ID"
// @Success 204
// @Router /courses/{id}/chapters/{chapterId}/content/{contentId} [delete]
func (h *ChapterHandler) DeleteContent(c *gin.Context) {
	if err := h.contents.Delete(c.Request.Context(), c.Param("id"), c.Param("chapterId"), c.Param("contentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
