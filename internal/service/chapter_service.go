package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type chapterRepository interface {
	FindInCourse(ctx context.Context, id, courseID string) (*models.Chapter, error)
	ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Chapter, error)
	NextOrderIndex(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, chapter *models.Chapter) error
	Update(ctx context.Context, chapter *models.Chapter) error
	Delete(ctx context.Context, id, courseID string) error
	Reorder(ctx context.Context, courseID string, ids []string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// ChapterService manages the ordered chapters of a course. Write operations assume the route
// guard has verified course ownership.
type ChapterService struct {
	repo      chapterRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChapterService constructs a ChapterService.
func NewChapterService(repo chapterRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *ChapterService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChapterService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// List returns a course's chapters. Only the mentor and admins see unpublished chapters.
func (s *ChapterService) List(ctx context.Context, courseID string, actor models.Actor) ([]models.Chapter, error) {
	course, err := visibleCourse(ctx, s.courses, courseID, actor)
	if err != nil {
		return nil, err
	}
	chapters, err := s.repo.ListByCourse(ctx, courseID, !canManageCourse(course, actor))
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list chapters")
	}
	if chapters == nil {
		chapters = []models.Chapter{}
	}
	return chapters, nil
}

// Create appends or inserts a chapter. Omitting orderIndex appends after the last chapter.
func (s *ChapterService) Create(ctx context.Context, courseID string, req models.CreateChapterRequest) (*models.Chapter, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid chapter payload")
	}
	chapter := &models.Chapter{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		IsPublished: req.IsPublished,
	}
	if req.OrderIndex != nil {
		chapter.OrderIndex = *req.OrderIndex
	} else {
		next, err := s.repo.NextOrderIndex(ctx, courseID)
		if err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to compute chapter order")
		}
		chapter.OrderIndex = next
	}
	if err := s.repo.Create(ctx, chapter); err != nil {
		return nil, chapterWriteError(err, "failed to create chapter")
	}
	return chapter, nil
}

// Update merges a partial chapter update.
func (s *ChapterService) Update(ctx context.Context, courseID, chapterID string, req models.UpdateChapterRequest) (*models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid chapter payload")
	}
	chapter, err := s.repo.FindInCourse(ctx, chapterID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load chapter")
	}
	if req.Title != nil {
		chapter.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		chapter.Description = *req.Description
	}
	if req.OrderIndex != nil {
		chapter.OrderIndex = *req.OrderIndex
	}
	if req.IsPublished != nil {
		chapter.IsPublished = *req.IsPublished
	}
	if err := s.repo.Update(ctx, chapter); err != nil {
		return nil, chapterWriteError(err, "failed to update chapter")
	}
	return chapter, nil
}

// Delete removes a chapter and its content.
func (s *ChapterService) Delete(ctx context.Context, courseID, chapterID string) error {
	if err := s.repo.Delete(ctx, chapterID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to delete chapter")
	}
	return nil
}

// Reorder assigns positions from the order of ids. Every id must be a chapter of the course.
func (s *ChapterService) Reorder(ctx context.Context, courseID string, req models.ReorderChaptersRequest) ([]models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid reorder payload")
	}
	seen := make(map[string]struct{}, len(req.ChapterIDs))
	for _, id := range req.ChapterIDs {
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "chapterIds must not repeat")
		}
		seen[id] = struct{}{}
	}
	if err := s.repo.Reorder(ctx, courseID, req.ChapterIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "chapterIds must all belong to the course")
		}
		return nil, chapterWriteError(err, "failed to reorder chapters")
	}
	chapters, err := s.repo.ListByCourse(ctx, courseID, false)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list chapters")
	}
	return chapters, nil
}

func chapterWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "chapter order index already in use")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
	default:
		return appErrors.Rewrap(appErrors.ErrInternal, err, msg)
	}
}

// visibleCourse loads a course and hides unpublished ones from everybody but their managers.
func visibleCourse(ctx context.Context, courses courseReader, courseID string, actor models.Actor) (*models.Course, error) {
	course, err := courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load course")
	}
	if course.Status != models.CourseStatusPublished && !canManageCourse(course, actor) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}
