package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, userID string) (*models.StudentProfile, error)
	Upsert(ctx context.Context, actor models.Actor, req models.UpsertProfileRequest) (*models.StudentProfile, error)
}

type notificationService interface {
	List(ctx context.Context, actor models.Actor, unreadOnly bool, page, size int) ([]models.Notification, *models.Pagination, error)
	MarkRead(ctx context.Context, id string, actor models.Actor) error
	MarkAllRead(ctx context.Context, actor models.Actor) (int64, error)
}

// ProfileHandler serves career profiles and the caller's notification inbox.
type ProfileHandler struct {
	profiles      profileService
	notifications notificationService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(profiles profileService, notifications notificationService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, notifications: notifications}
}

// Mine godoc
// @Summary My career profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /profile/career [get]
func (h *ProfileHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// Upsert godoc
// @Summary Save my career profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpsertProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Router /profile/career [put]
func (h *ProfileHandler) Upsert(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpsertProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	profile, err := h.profiles.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// Student godoc
// @Summary A student's career profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/profile [get]
func (h *ProfileHandler) Student(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// Notifications godoc
// @Summary My notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *ProfileHandler) Notifications(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	page, size := pageParams(c)
	items, pagination, err := h.notifications.List(c.Request.Context(), actor, unread, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [put]
func (h *ProfileHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [put]
func (h *ProfileHandler) MarkAllRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"updatedCount": n})
}
