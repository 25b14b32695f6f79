package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type contentRepository interface {
	FindInChapter(ctx context.Context, id, chapterID string) (*models.Content, error)
	ListByChapter(ctx context.Context, chapterID string, publishedOnly bool) ([]models.Content, error)
	NextOrderIndex(ctx context.Context, chapterID string) (int, error)
	Create(ctx context.Context, content *models.Content) error
	Update(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, id, chapterID string) error
}

type chapterReader interface {
	FindInCourse(ctx context.Context, id, courseID string) (*models.Chapter, error)
}

// ContentService manages lesson items inside chapters and validates their type-specific payloads.
type ContentService struct {
	repo        contentRepository
	chapters    chapterReader
	courses     courseReader
	enrollments enrollmentChecker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewContentService constructs a ContentService.
func NewContentService(repo contentRepository, chapters chapterReader, courses courseReader, enrollments enrollmentChecker, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{repo: repo, chapters: chapters, courses: courses, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns the content of a chapter. Visitors only see published items, and only preview
// bodies unless enrolled.
func (s *ContentService) List(ctx context.Context, courseID, chapterID string, actor models.Actor) ([]models.Content, error) {
	course, err := visibleCourse(ctx, s.courses, courseID, actor)
	if err != nil {
		return nil, err
	}
	chapter, err := s.chapter(ctx, chapterID, courseID)
	if err != nil {
		return nil, err
	}
	owner := canManageCourse(course, actor)
	if !owner && !chapter.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
	}
	items, err := s.repo.ListByChapter(ctx, chapterID, !owner)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list content")
	}
	if items == nil {
		items = []models.Content{}
	}
	if owner {
		return items, nil
	}
	enrolled := false
	if actor.UserID != "" {
		if enrolled, err = s.enrollments.IsEnrolled(ctx, courseID, actor.UserID); err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to check enrollment")
		}
	}
	if !enrolled {
		for i := range items {
			if !items[i].IsPreview {
				items[i].ContentData = nil
			}
		}
	}
	return items, nil
}

// Create adds content to a chapter of the course.
func (s *ContentService) Create(ctx context.Context, courseID, chapterID string, req models.CreateContentRequest) (*models.Content, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid content payload")
	}
	if _, err := s.chapter(ctx, chapterID, courseID); err != nil {
		return nil, err
	}
	data, err := s.validateContentData(req.Type, req.ContentData)
	if err != nil {
		return nil, err
	}
	content := &models.Content{
		ChapterID:       chapterID,
		Title:           req.Title,
		Type:            req.Type,
		ContentData:     data,
		DurationMinutes: req.DurationMinutes,
		IsPreview:       req.IsPreview,
		IsPublished:     req.IsPublished,
	}
	if req.OrderIndex != nil {
		content.OrderIndex = *req.OrderIndex
	} else {
		next, err := s.repo.NextOrderIndex(ctx, chapterID)
		if err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to compute content order")
		}
		content.OrderIndex = next
	}
	if err := s.repo.Create(ctx, content); err != nil {
		return nil, contentWriteError(err, "failed to create content")
	}
	return content, nil
}

// Update merges a partial update. A new contentData is validated against the stored type.
func (s *ContentService) Update(ctx context.Context, courseID, chapterID, contentID string, req models.UpdateContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid content payload")
	}
	if _, err := s.chapter(ctx, chapterID, courseID); err != nil {
		return nil, err
	}
	content, err := s.repo.FindInChapter(ctx, contentID, chapterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load content")
	}
	if req.Title != nil {
		content.Title = strings.TrimSpace(*req.Title)
	}
	if req.ContentData != nil {
		data, err := s.validateContentData(content.Type, *req.ContentData)
		if err != nil {
			return nil, err
		}
		content.ContentData = data
	}
	if req.OrderIndex != nil {
		content.OrderIndex = *req.OrderIndex
	}
	if req.DurationMinutes != nil {
		content.DurationMinutes = *req.DurationMinutes
	}
	if req.IsPreview != nil {
		content.IsPreview = *req.IsPreview
	}
	if req.IsPublished != nil {
		content.IsPublished = *req.IsPublished
	}
	if err := s.repo.Update(ctx, content); err != nil {
		return nil, contentWriteError(err, "failed to update content")
	}
	return content, nil
}

func contentWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "content order index already in use")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "content not found")
	default:
		return appErrors.Rewrap(appErrors.ErrInternal, err, msg)
	}
}

// Delete removes a content item.
func (s *ContentService) Delete(ctx context.Context, courseID, chapterID, contentID string) error {
	if _, err := s.chapter(ctx, chapterID, courseID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, contentID, chapterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to delete content")
	}
	return nil
}

func (s *ContentService) chapter(ctx context.Context, chapterID, courseID string) (*models.Chapter, error) {
	chapter, err := s.chapters.FindInCourse(ctx, chapterID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load chapter")
	}
	return chapter, nil
}

// validateContentData decodes raw into the schema for contentType, rejecting unknown fields,
// and returns the canonical re-encoded JSON.
func (s *ContentService) validateContentData(contentType models.ContentType, raw types.JSONText) (types.JSONText, error) {
	var target interface{}
	switch contentType {
	case models.ContentTypeVideo:
		target = &models.VideoContent{}
	case models.ContentTypeDocument:
		target = &models.DocumentContent{}
	case models.ContentTypeQuiz:
		target = &models.QuizContent{}
	case models.ContentTypeAssignment:
		target = &models.AssignmentContent{}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported content type %q", contentType))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrValidation, err, fmt.Sprintf("contentData is not a valid %s payload", contentType))
	}
	if err := s.validator.Struct(target); err != nil {
		return nil, appErrors.FromValidation(err, fmt.Sprintf("invalid %s contentData", contentType))
	}
	if quiz, ok := target.(*models.QuizContent); ok {
		for i, q := range quiz.Questions {
			if q.CorrectOption >= len(q.Options) {
				return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "correctOption must reference an option"),
					map[string]interface{}{"question": i})
			}
		}
	}
	canonical, err := json.Marshal(target)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to encode contentData")
	}
	return types.JSONText(canonical), nil
}
