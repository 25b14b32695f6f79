package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type ambassadorRepository interface {
	Create(ctx context.Context, amb *models.Ambassador) error
	FindByUserID(ctx context.Context, userID string) (*models.Ambassador, error)
	FindByCode(ctx context.Context, code string) (*models.Ambassador, error)
	UpdateCollege(ctx context.Context, userID, college string) error
	OwnerName(ctx context.Context, ambassadorID string) (string, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	ListReferrals(ctx context.Context, ambassadorID string, page, size int) ([]models.ReferralView, int, error)
	CreateReferral(ctx context.Context, ref *models.Referral) error
	ConvertReferral(ctx context.Context, referredUserID string, points int) (bool, error)
}

const (
	maxCodeAttempts  = 5
	codeStemLength   = 6
	codeSuffixLength = 4
	codeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	defaultCodeStem  = "AMB"
)

// AmbassadorService manages ambassador profiles and referral accounting.
type AmbassadorService struct {
	repo              ambassadorRepository
	pointsPerReferral int
	validator         *validator.Validate
	logger            *zap.Logger
	randomSuffix      func(n int) (string, error)
}

// NewAmbassadorService constructs an AmbassadorService.
func NewAmbassadorService(repo ambassadorRepository, pointsPerReferral int, validate *validator.Validate, logger *zap.Logger) *AmbassadorService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pointsPerReferral <= 0 {
		pointsPerReferral = 100
	}
	return &AmbassadorService{repo: repo, pointsPerReferral: pointsPerReferral, validator: validate, logger: logger, randomSuffix: randomCode}
}

// Register creates the caller's ambassador profile with a generated referral code.
func (s *AmbassadorService) Register(ctx context.Context, actor models.Actor, req models.RegisterAmbassadorRequest) (*models.Ambassador, error) {
	req.College = strings.TrimSpace(req.College)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid ambassador payload")
	}
	stem := codeStem(actor.FullName)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		suffix, err := s.randomSuffix(codeSuffixLength)
		if err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to generate referral code")
		}
		amb := &models.Ambassador{
			UserID:       actor.UserID,
			ReferralCode: stem + suffix,
			College:      req.College,
			Status:       models.AmbassadorStatusActive,
		}
		err = s.repo.Create(ctx, amb)
		if err == nil {
			return amb, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to register ambassador")
		}
		if repository.ConstraintOf(err) != repository.ConstraintAmbassadorCode {
			return nil, appErrors.Clone(appErrors.ErrAmbassadorExists, "")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique referral code")
}

// Me returns the caller's ambassador profile.
func (s *AmbassadorService) Me(ctx context.Context, actor models.Actor) (*models.Ambassador, error) {
	amb, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ambassador profile not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load ambassador")
	}
	return amb, nil
}

// Update changes the caller's college. The referral code never changes.
func (s *AmbassadorService) Update(ctx context.Context, actor models.Actor, req models.UpdateAmbassadorRequest) (*models.Ambassador, error) {
	req.College = strings.TrimSpace(req.College)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid ambassador payload")
	}
	if err := s.repo.UpdateCollege(ctx, actor.UserID, req.College); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ambassador profile not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update ambassador")
	}
	return s.Me(ctx, actor)
}

// Referrals lists the referrals credited to the caller.
func (s *AmbassadorService) Referrals(ctx context.Context, actor models.Actor, page, size int) ([]models.ReferralView, *models.Pagination, error) {
	amb, err := s.Me(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	page, size = models.NormalizePage(page, size)
	items, total, err := s.repo.ListReferrals(ctx, amb.ID, page, size)
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list referrals")
	}
	if items == nil {
		items = []models.ReferralView{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Leaderboard ranks active ambassadors by successful referrals.
func (s *AmbassadorService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	items, err := s.repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load leaderboard")
	}
	if items == nil {
		items = []models.LeaderboardEntry{}
	}
	return items, nil
}

// ValidateCode reports whether a code belongs to an active ambassador.
func (s *AmbassadorService) ValidateCode(ctx context.Context, code string) (*models.ReferralCodeCheck, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	check := &models.ReferralCodeCheck{Code: code}
	if code == "" {
		return check, nil
	}
	amb, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return check, nil
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to validate referral code")
	}
	if amb.Status != models.AmbassadorStatusActive {
		return check, nil
	}
	check.Valid = true
	if name, err := s.repo.OwnerName(ctx, amb.ID); err == nil {
		check.AmbassadorName = name
	}
	return check, nil
}

// TrackReferral records that referredUserID signed up with code.
func (s *AmbassadorService) TrackReferral(ctx context.Context, code, referredUserID string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return appErrors.Clone(appErrors.ErrInvalidReferralCode, "")
	}
	amb, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidReferralCode, "")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load referral code")
	}
	if amb.Status != models.AmbassadorStatusActive {
		return appErrors.Clone(appErrors.ErrInvalidReferralCode, "")
	}
	if amb.UserID == referredUserID {
		return appErrors.Clone(appErrors.ErrSelfReferral, "")
	}
	ref := &models.Referral{AmbassadorID: amb.ID, ReferredUserID: referredUserID, ReferralCode: amb.ReferralCode}
	if err := s.repo.CreateReferral(ctx, ref); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrAlreadyReferred, "")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to record referral")
	}
	return nil
}

// ConvertOnEnrollment credits the referring ambassador the first time a referred student enrols.
func (s *AmbassadorService) ConvertOnEnrollment(ctx context.Context, studentID string) error {
	converted, err := s.repo.ConvertReferral(ctx, studentID, s.pointsPerReferral)
	if err != nil {
		return err
	}
	if converted {
		s.logger.Info("referral converted", zap.String("referred_user_id", studentID), zap.Int("points", s.pointsPerReferral))
	}
	return nil
}

// codeStem derives an upper-case alphanumeric prefix of at most six characters from a name.
func codeStem(name string) string {
	stem := strings.ToUpper(strings.ReplaceAll(slug.Make(name), "-", ""))
	if len(stem) > codeStemLength {
		stem = stem[:codeStemLength]
	}
	if stem == "" {
		return defaultCodeStem
	}
	return stem
}

func randomCode(n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[idx.Int64()]
	}
	return string(out), nil
}
