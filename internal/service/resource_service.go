package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

type resourceRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Resource, error)
	FindInCourse(ctx context.Context, id, courseID string) (*models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, id, courseID string) error
	IncrementDownloads(ctx context.Context, id string) error
}

// ResourceService manages downloadable course files and gates downloads on enrollment.
type ResourceService struct {
	repo        resourceRepository
	courses     courseReader
	chapters    chapterReader
	enrollments enrollmentChecker
	store       storage.ObjectStore
	expiry      time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewResourceService constructs a ResourceService.
func NewResourceService(repo resourceRepository, courses courseReader, chapters chapterReader, enrollments enrollmentChecker, store storage.ObjectStore, expiry time.Duration, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &ResourceService{repo: repo, courses: courses, chapters: chapters, enrollments: enrollments, store: store, expiry: expiry, validator: validate, logger: logger}
}

// List returns the resources of a visible course.
func (s *ResourceService) List(ctx context.Context, courseID string, actor models.Actor) ([]models.Resource, error) {
	if _, err := visibleCourse(ctx, s.courses, courseID, actor); err != nil {
		return nil, err
	}
	resources, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list resources")
	}
	if resources == nil {
		resources = []models.Resource{}
	}
	return resources, nil
}

// Create registers an uploaded object as a resource. The key must have been issued for this course.
func (s *ResourceService) Create(ctx context.Context, courseID string, actor models.Actor, req models.CreateResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid resource payload")
	}
	key, err := storage.CleanKey(req.FileKey)
	if err != nil || !keyBelongsTo(key, courseID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fileKey was not issued for this course")
	}
	if req.ChapterID != nil {
		if _, err := s.chapters.FindInCourse(ctx, *req.ChapterID, courseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
			}
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load chapter")
		}
	}
	resource := &models.Resource{
		CourseID:    courseID,
		ChapterID:   req.ChapterID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		FileKey:     key,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
		IsFree:      req.IsFree,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, resource); err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to create resource")
	}
	return resource, nil
}

// Delete removes the resource row and then its object. Object removal failures are logged.
func (s *ResourceService) Delete(ctx context.Context, courseID, resourceID string) error {
	resource, err := s.repo.FindInCourse(ctx, resourceID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load resource")
	}
	if err := s.repo.Delete(ctx, resourceID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to delete resource")
	}
	if err := s.store.Delete(ctx, resource.FileKey); err != nil {
		logger.For(ctx, s.logger).Warn("failed to delete resource object", zap.String("key", resource.FileKey), zap.Error(err))
	}
	return nil
}

// Download returns a presigned download link. Free resources are open to everyone who can see
// the course; otherwise the caller must own the course, be enrolled or be an admin.
func (s *ResourceService) Download(ctx context.Context, courseID, resourceID string, actor models.Actor) (*models.ResourceDownload, error) {
	course, err := visibleCourse(ctx, s.courses, courseID, actor)
	if err != nil {
		return nil, err
	}
	resource, err := s.repo.FindInCourse(ctx, resourceID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load resource")
	}

	if !resource.IsFree && !canManageCourse(course, actor) {
		enrolled, err := s.enrollments.IsEnrolled(ctx, courseID, actor.UserID)
		if err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrEnrollmentRequired, "")
		}
	}

	signed, err := s.store.PresignDownload(ctx, resource.FileKey, s.expiry)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to sign download url")
	}
	if err := s.repo.IncrementDownloads(ctx, resource.ID); err != nil {
		logger.For(ctx, s.logger).Warn("failed to count resource download", zap.String("resource_id", resource.ID), zap.Error(err))
	}
	return &models.ResourceDownload{
		ResourceID:  resource.ID,
		FileName:    resource.FileName,
		DownloadURL: signed.URL,
		ExpiresAt:   signed.ExpiresAt,
	}, nil
}

// keyBelongsTo reports whether an object key was issued under the course scope.
func keyBelongsTo(key, scopeID string) bool {
	parts := strings.Split(key, "/")
	return len(parts) >= 3 && parts[1] == scopeID
}
