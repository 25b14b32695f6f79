package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.LiveSession, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.LiveSession, error)
	Create(ctx context.Context, actor models.Actor, req models.CreateSessionRequest) (*models.LiveSession, error)
	Update(ctx context.Context, id string, req models.UpdateSessionRequest) (*models.LiveSession, error)
	UpdateStatus(ctx context.Context, id string, req models.UpdateSessionStatusRequest) (*models.LiveSession, error)
	Delete(ctx context.Context, id string) error
	State(ctx context.Context, id string) (*models.SessionState, error)
}

type sessionRelay interface {
	Authorize(ctx context.Context, sessionID string, actor models.Actor) error
	Serve(w http.ResponseWriter, req *http.Request, sessionID string, actor models.Actor) error
}

// SessionHandler serves live-session scheduling and the realtime socket.
type SessionHandler struct {
	service sessionService
	relay   sessionRelay
	logger  *zap.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService, relay sessionRelay, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{service: service, relay: relay, logger: logger}
}

// List godoc
// @Summary Upcoming sessions
// @Tags Sessions
// @Produce json
// @Param courseId query string false "Course filter"
// @Param mentorId query string false "Mentor filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.SessionFilter{
		CourseID: strings.TrimSpace(c.Query("courseId")),
		MentorID: strings.TrimSpace(c.Query("mentorId")),
		Status:   models.SessionStatus(strings.TrimSpace(c.Query("status"))),
		Page:     page,
		PageSize: size,
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// Get godoc
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Create godoc
// @Summary Schedule a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	session, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body models.UpdateSessionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req models.UpdateSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	session, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// UpdateStatus godoc
// @Summary Start, end or cancel a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body models.UpdateSessionStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/status [put]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateSessionStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	session, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// State godoc
// @Summary Durable session state
// @Description Questions with answers and polls, for clients that reconnect.
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/state [get]
func (h *SessionHandler) State(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.relay.Authorize(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.service.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// Connect godoc
// @Summary Join the realtime relay
// @Description Upgrades to a websocket. Pass the access token as access_token when headers cannot be set.
// @Tags Sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param access_token query string false "Access token"
// @Success 101
// @Failure 403 {object} response.Envelope
// @Router /sessions/{id}/ws [get]
func (h *SessionHandler) Connect(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	sessionID := c.Param("id")
	if err := h.relay.Authorize(c.Request.Context(), sessionID, actor); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.relay.Serve(c.Writer, c.Request, sessionID, actor); err != nil {
		h.logger.Debug("relay upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
