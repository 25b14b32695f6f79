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
	"github.com/noah-isme/campus-connect-api/pkg/calendar"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.JobApplication) error
	FindByID(ctx context.Context, id string) (*models.JobApplication, error)
	FindForJob(ctx context.Context, id, jobID string) (*models.JobApplication, error)
	ListByJob(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicantView, int, error)
	ListByApplicant(ctx context.Context, filter models.ApplicationFilter) ([]models.MyApplicationView, int, error)
	ListHistory(ctx context.Context, applicationID string) ([]models.ApplicationStatusHistory, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus, changedBy string, notes *string) error
	ScheduleInterview(ctx context.Context, id string, from models.ApplicationStatus, req models.ScheduleInterviewRequest, changedBy string) error
	BulkUpdateStatus(ctx context.Context, jobID, employerID string, ids []string, status models.ApplicationStatus, notes *string) (int, error)
}

type jobReader interface {
	FindByID(ctx context.Context, id string) (*models.JobPosting, error)
}

type resumeLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// ApplicationService runs the hiring pipeline between students and employers.
type ApplicationService struct {
	repo      applicationRepository
	jobs      jobReader
	profiles  resumeLookup
	users     userLookup
	notifier  notifier
	calendar  calendar.Provider
	metrics   *MetricsService
	jobCache  *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// ApplicationDeps groups the optional collaborators of ApplicationService.
type ApplicationDeps struct {
	Profiles resumeLookup
	Users    userLookup
	Notifier notifier
	Calendar calendar.Provider
	Metrics  *MetricsService
	// JobCache is the job board cache; Apply clears it because the listing carries applicationsCount.
	JobCache *CacheService
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(repo applicationRepository, jobs jobReader, deps ApplicationDeps, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cal := deps.Calendar
	if cal == nil {
		cal = calendar.Noop{}
	}
	return &ApplicationService{
		repo:      repo,
		jobs:      jobs,
		profiles:  deps.Profiles,
		users:     deps.Users,
		notifier:  deps.Notifier,
		calendar:  cal,
		metrics:   deps.Metrics,
		jobCache:  deps.JobCache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Apply submits the acting student's application to a published posting before its deadline.
func (s *ApplicationService) Apply(ctx context.Context, jobID string, actor models.Actor, req models.ApplyRequest) (*models.JobApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid application payload")
	}
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrJobNotOpen, "")
	}
	if !s.now().Before(job.ApplicationDeadline) {
		return nil, appErrors.Clone(appErrors.ErrDeadlinePassed, "")
	}
	if job.EmployerID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employers cannot apply to their own postings")
	}

	resume := req.ResumeURL
	if resume == nil && s.profiles != nil {
		profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
		switch {
		case err == nil:
			resume = profile.ResumeURL
		case !errors.Is(err, sql.ErrNoRows):
			logger.For(ctx, s.logger).Warn("load career profile", zap.String("user_id", actor.UserID), zap.Error(err))
		}
	}

	app := &models.JobApplication{
		JobPostingID: job.ID,
		ApplicantID:  actor.UserID,
		CoverLetter:  req.CoverLetter,
		ResumeURL:    resume,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyApplied, "")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to submit application")
	}
	s.metrics.ApplicationSubmitted()
	_ = s.jobCache.Invalidate(ctx, jobListCachePattern)

	applicant := actor.FullName
	if applicant == "" {
		applicant = "A candidate"
	}
	s.notify(ctx, Notice{
		UserID:  job.EmployerID,
		Type:    models.NotificationApplicationReceived,
		Title:   "New application received",
		Message: fmt.Sprintf("%s applied to %s", applicant, job.Title),
		Data:    map[string]interface{}{"jobId": job.ID, "applicationId": app.ID},
		Email:   true,
	})
	return app, nil
}

// ListForJob returns a posting's applications for its employer.
func (s *ApplicationService) ListForJob(ctx context.Context, jobID string, actor models.Actor, filter models.ApplicationFilter) ([]models.ApplicantView, *models.Pagination, error) {
	if _, err := s.ownedJob(ctx, jobID, actor); err != nil {
		return nil, nil, err
	}
	filter.JobPostingID = jobID
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	items, total, err := s.repo.ListByJob(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list applications")
	}
	if items == nil {
		items = []models.ApplicantView{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListMine returns the acting student's applications with their postings.
func (s *ApplicationService) ListMine(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.MyApplicationView, *models.Pagination, error) {
	filter.ApplicantID = actor.UserID
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	items, total, err := s.repo.ListByApplicant(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list applications")
	}
	if items == nil {
		items = []models.MyApplicationView{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateStatus applies an employer decision to one application of an owned posting.
func (s *ApplicationService) UpdateStatus(ctx context.Context, jobID, applicationID string, actor models.Actor, req models.UpdateApplicationStatusRequest) (*models.JobApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid status payload")
	}
	job, err := s.ownedJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	app, err := s.findForJob(ctx, applicationID, job.ID)
	if err != nil {
		return nil, err
	}
	if err := employerTransitionAllowed(app.Status, req.Status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, app.ID, app.Status, req.Status, actor.UserID, req.Notes); err != nil {
		return nil, transitionWriteError(err)
	}
	app.Status = req.Status
	if req.Notes != nil {
		app.Notes = req.Notes
	}
	app.UpdatedAt = s.now().UTC()
	s.notifyApplicant(ctx, job, app, models.NotificationApplicationStatus)
	return app, nil
}

// BulkUpdateStatus applies one status to many applications. Only applications of postings the actor owns are counted.
func (s *ApplicationService) BulkUpdateStatus(ctx context.Context, jobID string, actor models.Actor, req models.BulkUpdateApplicationsRequest) (*models.BulkUpdateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid bulk update payload")
	}
	job, err := s.ownedJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	ids := dedupeStrings(req.ApplicationIDs)
	updated, err := s.repo.BulkUpdateStatus(ctx, job.ID, job.EmployerID, ids, req.Status, req.Notes)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update applications")
	}
	return &models.BulkUpdateResult{UpdatedCount: updated}, nil
}

// ScheduleInterview records interview details, moves the application to interview_scheduled and adds a calendar event.
func (s *ApplicationService) ScheduleInterview(ctx context.Context, jobID, applicationID string, actor models.Actor, req models.ScheduleInterviewRequest) (*models.JobApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid interview payload")
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "interview must be scheduled in the future")
	}
	if req.Mode == models.InterviewModeOnline && req.MeetingLink == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "meetingLink is required for online interviews")
	}
	job, err := s.ownedJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	app, err := s.findForJob(ctx, applicationID, job.ID)
	if err != nil {
		return nil, err
	}
	if app.Status == models.ApplicationStatusWithdrawn {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "application has been withdrawn")
	}
	if err := s.repo.ScheduleInterview(ctx, app.ID, app.Status, req, actor.UserID); err != nil {
		return nil, transitionWriteError(err)
	}

	scheduled := req.ScheduledAt.UTC()
	duration := req.DurationMinutes
	mode := req.Mode
	app.Status = models.ApplicationStatusInterviewScheduled
	app.InterviewAt = &scheduled
	app.InterviewDurationMinutes = &duration
	app.InterviewMode = &mode
	app.InterviewLink = req.MeetingLink
	if req.Notes != nil {
		app.Notes = req.Notes
	}
	app.UpdatedAt = s.now().UTC()

	s.addInterviewEvent(ctx, job, app, req)
	s.notifyApplicant(ctx, job, app, models.NotificationInterviewScheduled)
	return app, nil
}

// Withdraw lets the applicant pull a non-final application.
func (s *ApplicationService) Withdraw(ctx context.Context, applicationID string, actor models.Actor) (*models.JobApplication, error) {
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load application")
	}
	if app.ApplicantID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	if app.Status.IsFinal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot withdraw an application that is %s", app.Status))
	}
	if err := s.repo.UpdateStatus(ctx, app.ID, app.Status, models.ApplicationStatusWithdrawn, actor.UserID, nil); err != nil {
		return nil, transitionWriteError(err)
	}
	app.Status = models.ApplicationStatusWithdrawn
	app.UpdatedAt = s.now().UTC()
	return app, nil
}

// History returns the status trail of an application. Visible to the applicant and the posting's employer.
func (s *ApplicationService) History(ctx context.Context, applicationID string, actor models.Actor) ([]models.ApplicationStatusHistory, error) {
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load application")
	}
	if app.ApplicantID != actor.UserID && !actor.IsAdmin() {
		if _, err := s.ownedJob(ctx, app.JobPostingID, actor); err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
	}
	items, err := s.repo.ListHistory(ctx, app.ID)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load application history")
	}
	if items == nil {
		items = []models.ApplicationStatusHistory{}
	}
	return items, nil
}

func (s *ApplicationService) findJob(ctx context.Context, jobID string) (*models.JobPosting, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load job")
	}
	return job, nil
}

func (s *ApplicationService) ownedJob(ctx context.Context, jobID string, actor models.Actor) (*models.JobPosting, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedJob, "")
	}
	return job, nil
}

func (s *ApplicationService) findForJob(ctx context.Context, applicationID, jobID string) (*models.JobApplication, error) {
	app, err := s.repo.FindForJob(ctx, applicationID, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load application")
	}
	return app, nil
}

func (s *ApplicationService) addInterviewEvent(ctx context.Context, job *models.JobPosting, app *models.JobApplication, req models.ScheduleInterviewRequest) {
	ev := calendar.Event{
		Title:       fmt.Sprintf("Interview: %s", job.Title),
		Description: fmt.Sprintf("%s interview for %s at %s", req.Mode, job.Title, job.CompanyName),
		Start:       req.ScheduledAt,
		Duration:    time.Duration(req.DurationMinutes) * time.Minute,
	}
	if req.MeetingLink != nil {
		ev.Location = *req.MeetingLink
	}
	if s.users != nil {
		if user, err := s.users.FindByID(ctx, app.ApplicantID); err == nil {
			ev.Attendees = append(ev.Attendees, user.Email)
		}
	}
	if _, err := s.calendar.CreateEvent(ctx, ev); err != nil {
		logger.For(ctx, s.logger).Warn("create interview calendar event", zap.String("application_id", app.ID), zap.Error(err))
	}
}

func (s *ApplicationService) notifyApplicant(ctx context.Context, job *models.JobPosting, app *models.JobApplication, kind models.NotificationType) {
	title := "Application updated"
	message := fmt.Sprintf("Your application to %s is now %s", job.Title, app.Status)
	if kind == models.NotificationInterviewScheduled && app.InterviewAt != nil {
		title = "Interview scheduled"
		message = fmt.Sprintf("Your interview for %s is scheduled at %s", job.Title, app.InterviewAt.Format(time.RFC1123))
	}
	s.notify(ctx, Notice{
		UserID:  app.ApplicantID,
		Type:    kind,
		Title:   title,
		Message: message,
		Data:    map[string]interface{}{"jobId": job.ID, "applicationId": app.ID, "status": app.Status},
		Email:   true,
	})
}

func (s *ApplicationService) notify(ctx context.Context, notice Notice) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notice); err != nil {
		logger.For(ctx, s.logger).Warn("notify", zap.String("user_id", notice.UserID), zap.Error(err))
	}
}

// employerTransitionAllowed permits any employer status on applications that are not withdrawn.
func employerTransitionAllowed(from, to models.ApplicationStatus) error {
	if from == models.ApplicationStatusWithdrawn {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "application has been withdrawn")
	}
	if from == to {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application is already %s", to))
	}
	switch to {
	case models.ApplicationStatusReviewed,
		models.ApplicationStatusShortlisted,
		models.ApplicationStatusInterviewScheduled,
		models.ApplicationStatusSelected,
		models.ApplicationStatusRejected:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("employers cannot set status %s", to))
	}
}

func transitionWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrStaleStatus):
		return appErrors.Clone(appErrors.ErrConflict, "application status changed, reload and retry")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "application not found")
	default:
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update application")
	}
}

func dedupeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
