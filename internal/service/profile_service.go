package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

const maxProfileSkills = 30

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	Upsert(ctx context.Context, profile *models.StudentProfile) error
}

// ProfileService manages student career profiles.
type ProfileService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger}
}

// Get returns a user's profile. A student without a stored profile gets an empty one.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.StudentProfile{UserID: userID, Skills: []string{}}, nil
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load profile")
	}
	if profile.Skills == nil {
		profile.Skills = []string{}
	}
	return profile, nil
}

// Upsert replaces the caller's profile.
func (s *ProfileService) Upsert(ctx context.Context, actor models.Actor, req models.UpsertProfileRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid profile payload")
	}
	skills := normalizeSkills(req.Skills)
	if len(skills) > maxProfileSkills {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a profile can list at most 30 skills")
	}
	profile := &models.StudentProfile{
		UserID:         actor.UserID,
		Headline:       strings.TrimSpace(req.Headline),
		Bio:            req.Bio,
		College:        strings.TrimSpace(req.College),
		Degree:         strings.TrimSpace(req.Degree),
		GraduationYear: req.GraduationYear,
		Skills:         skills,
		ResumeURL:      req.ResumeURL,
		PortfolioURL:   req.PortfolioURL,
		LinkedInURL:    req.LinkedInURL,
		GithubURL:      req.GithubURL,
		Location:       strings.TrimSpace(req.Location),
		OpenToWork:     req.OpenToWork,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to save profile")
	}
	return profile, nil
}
