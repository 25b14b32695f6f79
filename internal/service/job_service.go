package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type jobRepository interface {
	List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, int, error)
	FindByID(ctx context.Context, id string) (*models.JobPosting, error)
	Create(ctx context.Context, job *models.JobPosting) error
	Update(ctx context.Context, job *models.JobPosting) error
	UpdateStatus(ctx context.Context, id string, status models.JobStatus, at time.Time) error
	Delete(ctx context.Context, id, employerID string) error
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

const jobListCachePattern = "jobs:list:*"

type cachedJobPage struct {
	Items []models.JobPosting `json:"items"`
	Total int                 `json:"total"`
}

// JobService manages employer job postings and the public job board.
type JobService struct {
	repo      jobRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewJobService constructs a JobService. cache may be nil.
func NewJobService(repo jobRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *JobService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{repo: repo, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// List returns the public job board. The boolean reports whether the page came from cache.
func (s *JobService) List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, *models.Pagination, bool, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	if filter.EmployerID == "" {
		filter.AnyStatus = false
		filter.Status = models.JobStatusPublished
	}

	key := jobListCacheKey(filter)
	if s.cache != nil && filter.EmployerID == "" {
		var cached cachedJobPage
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			s.logger.Warn("job list cache read", zap.Error(err))
		} else if hit {
			return cached.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}, true, nil
		}
	}

	jobs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list jobs")
	}
	if jobs == nil {
		jobs = []models.JobPosting{}
	}
	if s.cache != nil && filter.EmployerID == "" {
		_ = s.cache.Set(ctx, key, cachedJobPage{Items: jobs, Total: total}, 0)
	}
	return jobs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, false, nil
}

// ListMine returns every posting of the acting employer regardless of status.
func (s *JobService) ListMine(ctx context.Context, actor models.Actor, filter models.JobFilter) ([]models.JobPosting, *models.Pagination, error) {
	filter.EmployerID = actor.UserID
	filter.AnyStatus = filter.Status == ""
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	jobs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list jobs")
	}
	if jobs == nil {
		jobs = []models.JobPosting{}
	}
	return jobs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a posting. Drafts and archived postings are visible to their employer and admins only.
func (s *JobService) Get(ctx context.Context, id string, actor models.Actor) (*models.JobPosting, error) {
	job, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusDraft || job.Status == models.JobStatusArchived {
		if job.EmployerID != actor.UserID && !actor.IsAdmin() {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
	}
	return job, nil
}

// Create stores a posting owned by the acting employer.
func (s *JobService) Create(ctx context.Context, actor models.Actor, req models.CreateJobRequest) (*models.JobPosting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid job payload")
	}
	now := s.now().UTC()
	if err := checkStipendRange(req.StipendMin, req.StipendMax); err != nil {
		return nil, err
	}
	if !req.ApplicationDeadline.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application deadline must be in the future")
	}
	status := req.Status
	if status == "" {
		status = models.JobStatusDraft
	}
	openings := req.Openings
	if openings == 0 {
		openings = 1
	}
	job := &models.JobPosting{
		EmployerID:          actor.UserID,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		CompanyName:         strings.TrimSpace(req.CompanyName),
		Location:            strings.TrimSpace(req.Location),
		JobType:             req.JobType,
		WorkMode:            req.WorkMode,
		StipendMin:          req.StipendMin,
		StipendMax:          req.StipendMax,
		Skills:              normalizeSkills(req.Skills),
		Requirements:        req.Requirements,
		Openings:            openings,
		ApplicationDeadline: req.ApplicationDeadline.UTC(),
		Status:              status,
	}
	if status == models.JobStatusPublished {
		job.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to create job")
	}
	s.invalidate(ctx)
	return job, nil
}

// Update merges the request into a posting owned by the actor.
func (s *JobService) Update(ctx context.Context, id string, actor models.Actor, req models.UpdateJobRequest) (*models.JobPosting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid job payload")
	}
	job, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.CompanyName != nil {
		job.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.Location != nil {
		job.Location = strings.TrimSpace(*req.Location)
	}
	if req.JobType != nil {
		job.JobType = *req.JobType
	}
	if req.WorkMode != nil {
		job.WorkMode = *req.WorkMode
	}
	if req.StipendMin != nil {
		job.StipendMin = req.StipendMin
	}
	if req.StipendMax != nil {
		job.StipendMax = req.StipendMax
	}
	if req.Skills != nil {
		job.Skills = normalizeSkills(req.Skills)
	}
	if req.Requirements != nil {
		job.Requirements = *req.Requirements
	}
	if req.Openings != nil {
		job.Openings = *req.Openings
	}
	if req.ApplicationDeadline != nil {
		if !req.ApplicationDeadline.After(s.now()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "application deadline must be in the future")
		}
		job.ApplicationDeadline = req.ApplicationDeadline.UTC()
	}
	if err := checkStipendRange(job.StipendMin, job.StipendMax); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, job); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update job")
	}
	s.invalidate(ctx)
	return job, nil
}

// UpdateStatus moves a posting through draft, published, closed and archived.
func (s *JobService) UpdateStatus(ctx context.Context, id string, actor models.Actor, req models.UpdateJobStatusRequest) (*models.JobPosting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid job status")
	}
	job, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Status == models.JobStatusPublished && !job.ApplicationDeadline.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot publish a job whose deadline has passed")
	}
	now := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, job.ID, req.Status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update job status")
	}
	if req.Status == models.JobStatusPublished && job.PublishedAt == nil {
		job.PublishedAt = &now
	}
	job.Status = req.Status
	job.UpdatedAt = now
	s.invalidate(ctx)
	return job, nil
}

// Delete removes a posting owned by the actor. Applications cascade.
func (s *JobService) Delete(ctx context.Context, id string, actor models.Actor) error {
	job, err := s.owned(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, job.ID, job.EmployerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to delete job")
	}
	s.invalidate(ctx)
	return nil
}

// Authorize returns the posting when the actor owns it: 404 when it does not exist, 403 otherwise.
func (s *JobService) Authorize(ctx context.Context, id string, actor models.Actor) (*models.JobPosting, error) {
	return s.owned(ctx, id, actor)
}

// CloseExpired closes published postings whose deadline has passed. Used by the scheduler.
func (s *JobService) CloseExpired(ctx context.Context) error {
	closed, err := s.repo.CloseExpired(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	if closed > 0 {
		s.logger.Info("closed expired jobs", zap.Int64("count", closed))
		s.invalidate(ctx)
	}
	return nil
}

func (s *JobService) find(ctx context.Context, id string) (*models.JobPosting, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load job")
	}
	return job, nil
}

func (s *JobService) owned(ctx context.Context, id string, actor models.Actor) (*models.JobPosting, error) {
	job, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedJob, "")
	}
	return job, nil
}

func (s *JobService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, jobListCachePattern)
}

func checkStipendRange(lower, upper *int64) error {
	if lower != nil && upper != nil && *upper < *lower {
		return appErrors.Clone(appErrors.ErrValidation, "stipendMax must be greater than or equal to stipendMin")
	}
	return nil
}

func jobListCacheKey(filter models.JobFilter) string {
	var builder strings.Builder
	builder.WriteString("jobs:list")
	parts := []string{
		string(filter.Status),
		strings.ToLower(strings.TrimSpace(filter.Location)),
		string(filter.JobType),
		string(filter.WorkMode),
		optionalInt(filter.StipendMin),
		optionalInt(filter.StipendMax),
		strings.ToLower(strings.TrimSpace(filter.Search)),
		filter.SortBy,
		filter.SortOrder,
		strconv.Itoa(filter.Page),
		strconv.Itoa(filter.PageSize),
	}
	for _, part := range parts {
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// normalizeSkills trims, drops empties and removes case-insensitive duplicates keeping the first spelling.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		trimmed := strings.TrimSpace(skill)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
