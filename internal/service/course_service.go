package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id, mentorID string) error
}

type structureChapterReader interface {
	ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Chapter, error)
}

type structureContentReader interface {
	ListByChapters(ctx context.Context, chapterIDs []string, publishedOnly bool) ([]models.Content, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

const maxSlugAttempts = 5

// CourseService implements course CRUD and the nested structure view.
type CourseService struct {
	repo        courseRepository
	chapters    structureChapterReader
	contents    structureContentReader
	enrollments enrollmentChecker
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, chapters structureChapterReader, contents structureContentReader, enrollments enrollmentChecker, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, chapters: chapters, contents: contents, enrollments: enrollments, audit: audit, validator: validate, logger: logger}
}

// List returns courses. Listings default to published courses unless a mentor lists their own.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Status == "" && filter.MentorID == "" {
		filter.Status = models.CourseStatusPublished
	}
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a course. Unpublished courses are only visible to their mentor and admins.
func (s *CourseService) Get(ctx context.Context, id string, actor models.Actor) (*models.Course, error) {
	return visibleCourse(ctx, s.repo, id, actor)
}

// Create stores a new course owned by the acting mentor.
func (s *CourseService) Create(ctx context.Context, actor models.Actor, req models.CreateCourseRequest) (*models.Course, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid course payload")
	}
	status := req.Status
	if status == "" {
		status = models.CourseStatusDraft
	}
	course := &models.Course{
		MentorID:     actor.UserID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     strings.TrimSpace(req.Category),
		Level:        req.Level,
		Price:        req.Price,
		Status:       status,
		ThumbnailURL: req.ThumbnailURL,
	}
	if status == models.CourseStatusPublished {
		now := time.Now().UTC()
		course.PublishedAt = &now
	}

	base := slug.Make(course.Title)
	if base == "" {
		base = "course"
	}
	candidate := base
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to check slug")
		}
		if !exists {
			course.Slug = candidate
			err = s.repo.Create(ctx, course)
			if err == nil {
				return course, nil
			}
			if !errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to create course")
			}
		}
		candidate = base + "-" + uuid.NewString()[:6]
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique course slug")
}

// Update merges a partial update into the course. Ownership is enforced by the route guard.
func (s *CourseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load course")
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = strings.TrimSpace(*req.Category)
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = req.ThumbnailURL
	}
	if req.Status != nil {
		course.Status = *req.Status
		if course.Status == models.CourseStatusPublished && course.PublishedAt == nil {
			now := time.Now().UTC()
			course.PublishedAt = &now
		}
	}

	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update course")
	}
	return course, nil
}

// Delete removes a course and everything under it.
func (s *CourseService) Delete(ctx context.Context, id string, actor models.Actor) error {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load course")
	}
	if err := s.repo.Delete(ctx, id, course.MentorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to delete course")
	}
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionCourseDelete,
			Resource:   "courses",
			ResourceID: &id,
		}); err != nil {
			s.logger.Warn("failed to record course delete audit log", zap.Error(err))
		}
	}
	return nil
}

// Structure returns the course outline. Visitors see published chapters and content; content
// bodies are only included for previews unless the visitor is enrolled or manages the course.
func (s *CourseService) Structure(ctx context.Context, id string, actor models.Actor) (*models.CourseStructure, error) {
	course, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	owner := canManageCourse(course, actor)
	enrolled := false
	if !owner && actor.UserID != "" {
		enrolled, err = s.enrollments.IsEnrolled(ctx, course.ID, actor.UserID)
		if err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to check enrollment")
		}
	}

	chapters, err := s.chapters.ListByCourse(ctx, course.ID, !owner)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load chapters")
	}
	ids := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		ids = append(ids, ch.ID)
	}
	items, err := s.contents.ListByChapters(ctx, ids, !owner)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load content")
	}
	byChapter := make(map[string][]models.Content, len(chapters))
	for _, item := range items {
		if !owner && !enrolled && !item.IsPreview {
			item.ContentData = nil
		}
		byChapter[item.ChapterID] = append(byChapter[item.ChapterID], item)
	}

	structure := &models.CourseStructure{Course: *course, Enrolled: enrolled, IsOwner: owner, Chapters: make([]models.ChapterStructure, 0, len(chapters))}
	for _, ch := range chapters {
		content := byChapter[ch.ID]
		if content == nil {
			content = []models.Content{}
		}
		structure.Chapters = append(structure.Chapters, models.ChapterStructure{Chapter: ch, Content: content})
	}
	return structure, nil
}

func canManageCourse(course *models.Course, actor models.Actor) bool {
	return actor.IsAdmin() || (actor.UserID != "" && course.MentorID == actor.UserID)
}
