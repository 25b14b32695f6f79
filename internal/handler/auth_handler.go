package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error)
	Logout(ctx context.Context, refreshToken string, userID string, meta models.LoginRequest) error
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register godoc
// @Summary Create an account
// @Description Register a student, mentor, ambassador or employer. An optional referral code is tracked.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange refresh token for new access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req, "invalid refresh payload") {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.RefreshToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req, "refresh token required") {
		return
	}

	meta := models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if err := h.service.Logout(c.Request.Context(), req.RefreshToken, actor.UserID, meta); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), actor.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	info, err := h.service.Me(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, info)
}
