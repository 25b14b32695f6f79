package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
	"github.com/noah-isme/campus-connect-api/pkg/payout"
)

type payoutRepository interface {
	Create(ctx context.Context, payout *models.PayoutRequest) error
	FindByID(ctx context.Context, id string) (*models.PayoutRequest, error)
	List(ctx context.Context, filter models.PayoutFilter) ([]models.PayoutRequest, int, error)
	MarkApproved(ctx context.Context, id, reviewerID string, notes *string) error
	MarkPaid(ctx context.Context, id, reference string, at time.Time) error
	MarkRejected(ctx context.Context, id, reviewerID string, notes *string) error
}

type ambassadorFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.Ambassador, error)
}

// PayoutConfig controls point conversion.
type PayoutConfig struct {
	PointValue int64
	MinPoints  int
	Currency   string
}

// PayoutService turns ambassador points into money transfers.
type PayoutService struct {
	repo        payoutRepository
	ambassadors ambassadorFinder
	gateway     payout.Gateway
	metrics     *MetricsService
	cfg         PayoutConfig
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewPayoutService constructs a PayoutService.
func NewPayoutService(repo payoutRepository, ambassadors ambassadorFinder, gateway payout.Gateway, metrics *MetricsService, cfg PayoutConfig, validate *validator.Validate, logger *zap.Logger) *PayoutService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if gateway == nil {
		gateway = payout.ManualGateway{}
	}
	if cfg.PointValue <= 0 {
		cfg.PointValue = 100
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = 500
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &PayoutService{repo: repo, ambassadors: ambassadors, gateway: gateway, metrics: metrics, cfg: cfg, validator: validate, logger: logger, now: time.Now}
}

// Request reserves points from the caller's balance and opens a pending payout.
func (s *PayoutService) Request(ctx context.Context, actor models.Actor, req models.CreatePayoutRequest) (*models.PayoutRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid payout payload")
	}
	if req.Points < s.cfg.MinPoints {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("minimum payout is %d points", s.cfg.MinPoints))
	}
	amb, err := s.ambassador(ctx, actor)
	if err != nil {
		return nil, err
	}
	if amb.Status != models.AmbassadorStatusActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "ambassador account is suspended")
	}
	if req.Points > amb.AvailablePoints() {
		return nil, appErrors.Clone(appErrors.ErrInsufficientPoints, "")
	}
	request := &models.PayoutRequest{
		AmbassadorID:   amb.ID,
		PointsRedeemed: req.Points,
		Amount:         int64(req.Points) * s.cfg.PointValue,
		Currency:       s.cfg.Currency,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, appErrors.Clone(appErrors.ErrInsufficientPoints, "")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to create payout request")
	}
	return request, nil
}

// ListMine returns the caller's payout requests.
func (s *PayoutService) ListMine(ctx context.Context, actor models.Actor, page, size int) ([]models.PayoutRequest, *models.Pagination, error) {
	amb, err := s.ambassador(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	return s.List(ctx, models.PayoutFilter{AmbassadorID: amb.ID, Page: page, PageSize: size})
}

// List returns payouts for the admin queue.
func (s *PayoutService) List(ctx context.Context, filter models.PayoutFilter) ([]models.PayoutRequest, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list payouts")
	}
	if items == nil {
		items = []models.PayoutRequest{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Review approves or rejects a payout. Approval calls the gateway once; a failed transfer leaves the
// payout approved so an admin can either approve it again or reject it, which refunds the points.
func (s *PayoutService) Review(ctx context.Context, id string, actor models.Actor, req models.ReviewPayoutRequest) (*models.PayoutRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid review payload")
	}
	request, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "reject":
		if request.Status != models.PayoutStatusPending && request.Status != models.PayoutStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot reject a %s payout", request.Status))
		}
		if err := s.repo.MarkRejected(ctx, request.ID, actor.UserID, req.Notes); err != nil {
			return nil, payoutWriteError(err)
		}
		return s.find(ctx, request.ID)
	case "approve":
		switch request.Status {
		case models.PayoutStatusPending:
			if err := s.repo.MarkApproved(ctx, request.ID, actor.UserID, req.Notes); err != nil {
				return nil, payoutWriteError(err)
			}
			request.Status = models.PayoutStatusApproved
		case models.PayoutStatusApproved:
		default:
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot approve a %s payout", request.Status))
		}
		return s.transfer(ctx, request)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject")
	}
}

func (s *PayoutService) transfer(ctx context.Context, request *models.PayoutRequest) (*models.PayoutRequest, error) {
	result, err := s.gateway.Transfer(ctx, payout.TransferRequest{
		Reference:      request.ID,
		Amount:         request.Amount,
		Currency:       request.Currency,
		Method:         request.PaymentMethod,
		Beneficiary:    map[string]string{"details": request.PaymentDetails},
		Narration:      "Campus ambassador payout",
		IdempotencyKey: request.ID,
	})
	if err != nil {
		s.metrics.PayoutTransfer("failed")
		logger.For(ctx, s.logger).Error("payout transfer failed", zap.String("payout_id", request.ID), zap.Error(err))
		return nil, appErrors.Rewrap(appErrors.ErrPayoutTransferFailed, err, "")
	}
	s.metrics.PayoutTransfer("paid")
	if err := s.repo.MarkPaid(ctx, request.ID, result.TransferID, s.now().UTC()); err != nil {
		return nil, payoutWriteError(err)
	}
	return s.find(ctx, request.ID)
}

func (s *PayoutService) ambassador(ctx context.Context, actor models.Actor) (*models.Ambassador, error) {
	amb, err := s.ambassadors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ambassador profile not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load ambassador")
	}
	return amb, nil
}

func (s *PayoutService) find(ctx context.Context, id string) (*models.PayoutRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payout request not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load payout request")
	}
	return request, nil
}

func payoutWriteError(err error) error {
	if errors.Is(err, repository.ErrStaleStatus) {
		return appErrors.Clone(appErrors.ErrConflict, "payout status changed, reload and retry")
	}
	return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update payout request")
}
