package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type ambassadorService interface {
	Register(ctx context.Context, actor models.Actor, req models.RegisterAmbassadorRequest) (*models.Ambassador, error)
	Me(ctx context.Context, actor models.Actor) (*models.Ambassador, error)
	Update(ctx context.Context, actor models.Actor, req models.UpdateAmbassadorRequest) (*models.Ambassador, error)
	Referrals(ctx context.Context, actor models.Actor, page, size int) ([]models.ReferralView, *models.Pagination, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	ValidateCode(ctx context.Context, code string) (*models.ReferralCodeCheck, error)
}

type payoutService interface {
	Request(ctx context.Context, actor models.Actor, req models.CreatePayoutRequest) (*models.PayoutRequest, error)
	ListMine(ctx context.Context, actor models.Actor, page, size int) ([]models.PayoutRequest, *models.Pagination, error)
	List(ctx context.Context, filter models.PayoutFilter) ([]models.PayoutRequest, *models.Pagination, error)
	Review(ctx context.Context, id string, actor models.Actor, req models.ReviewPayoutRequest) (*models.PayoutRequest, error)
}

// AmbassadorHandler serves the ambassador programme: profile, referrals and payouts.
type AmbassadorHandler struct {
	ambassadors ambassadorService
	payouts     payoutService
}

// NewAmbassadorHandler constructs the handler.
func NewAmbassadorHandler(ambassadors ambassadorService, payouts payoutService) *AmbassadorHandler {
	return &AmbassadorHandler{ambassadors: ambassadors, payouts: payouts}
}

// Register godoc
// @Summary Become an ambassador
// @Tags Ambassadors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RegisterAmbassadorRequest true "Profile"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /ambassadors [post]
func (h *AmbassadorHandler) Register(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.RegisterAmbassadorRequest
	if !bindJSON(c, &req, "invalid ambassador payload") {
		return
	}
	amb, err := h.ambassadors.Register(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, amb)
}

// Me godoc
// @Summary My ambassador profile
// @Tags Ambassadors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /ambassadors/me [get]
func (h *AmbassadorHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	amb, err := h.ambassadors.Me(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, amb)
}

// Update godoc
// @Summary Update my college
// @Tags Ambassadors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpdateAmbassadorRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /ambassadors/me [put]
func (h *AmbassadorHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateAmbassadorRequest
	if !bindJSON(c, &req, "invalid ambassador payload") {
		return
	}
	amb, err := h.ambassadors.Update(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, amb)
}

// Referrals godoc
// @Summary My referrals
// @Tags Ambassadors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /ambassadors/me/referrals [get]
func (h *AmbassadorHandler) Referrals(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	items, pagination, err := h.ambassadors.Referrals(c.Request.Context(), actor, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// Leaderboard godoc
// @Summary Ambassador leaderboard
// @Tags Ambassadors
// @Produce json
// @Param limit query int false "Entries (default 10)"
// @Success 200 {object} response.Envelope
// @Router /ambassadors/leaderboard [get]
func (h *AmbassadorHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	items, err := h.ambassadors.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// ValidateCode godoc
// @Summary Check a referral code
// @Tags Referrals
// @Produce json
// @Param code path string true "Referral code"
// @Success 200 {object} response.Envelope
// @Router /referrals/{code}/validate [get]
func (h *AmbassadorHandler) ValidateCode(c *gin.Context) {
	check, err := h.ambassadors.ValidateCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, check)
}

// RequestPayout godoc
// @Summary Redeem points
// @Tags Payouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreatePayoutRequest true "Payout"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /ambassadors/me/payouts [post]
func (h *AmbassadorHandler) RequestPayout(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreatePayoutRequest
	if !bindJSON(c, &req, "invalid payout payload") {
		return
	}
	payout, err := h.payouts.Request(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payout)
}

// MyPayouts godoc
// @Summary My payouts
// @Tags Payouts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /ambassadors/me/payouts [get]
func (h *AmbassadorHandler) MyPayouts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	items, pagination, err := h.payouts.ListMine(c.Request.Context(), actor, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// ListPayouts godoc
// @Summary Payout queue
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved, paid or rejected"
// @Success 200 {object} response.Envelope
// @Router /admin/payouts [get]
func (h *AmbassadorHandler) ListPayouts(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.PayoutFilter{Status: models.PayoutStatus(strings.TrimSpace(c.Query("status"))), Page: page, PageSize: size}
	items, pagination, err := h.payouts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// ReviewPayout godoc
// @Summary Approve or reject a payout
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payout ID"
// @Param payload body models.ReviewPayoutRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /admin/payouts/{id} [put]
func (h *AmbassadorHandler) ReviewPayout(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ReviewPayoutRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	payout, err := h.payouts.Review(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payout)
}
