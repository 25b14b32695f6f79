package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type courseOwnerLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindOwned(ctx context.Context, id, mentorID string) (*models.Course, error)
}

type chapterOwnerLookup interface {
	FindInCourse(ctx context.Context, id, courseID string) (*models.Chapter, error)
	FindOwned(ctx context.Context, id, courseID, mentorID string) (*models.Chapter, error)
}

type sessionOwnerLookup interface {
	FindByID(ctx context.Context, id string) (*models.LiveSession, error)
	FindOwned(ctx context.Context, id, mentorID string) (*models.LiveSession, error)
}

var (
	errCourseNotOwned  = appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
	errChapterNotOwned = appErrors.Clone(appErrors.ErrNotFound, "chapter not found or unauthorized")
	errSessionNotOwned = appErrors.Clone(appErrors.ErrNotFound, "session not found or unauthorized")
)

// OwnershipService answers "does this actor own that resource" with a single scoped query.
// Missing and foreign resources are indistinguishable to the caller. Admins see everything.
type OwnershipService struct {
	courses  courseOwnerLookup
	chapters chapterOwnerLookup
	sessions sessionOwnerLookup
}

// NewOwnershipService constructs an OwnershipService.
func NewOwnershipService(courses courseOwnerLookup, chapters chapterOwnerLookup, sessions sessionOwnerLookup) *OwnershipService {
	return &OwnershipService{courses: courses, chapters: chapters, sessions: sessions}
}

// EnsureCourseOwner returns the course when actor owns it.
func (s *OwnershipService) EnsureCourseOwner(ctx context.Context, courseID string, actor models.Actor) (*models.Course, error) {
	var (
		course *models.Course
		err    error
	)
	if actor.IsAdmin() {
		course, err = s.courses.FindByID(ctx, courseID)
	} else {
		course, err = s.courses.FindOwned(ctx, courseID, actor.UserID)
	}
	if err != nil {
		return nil, notOwned(err, errCourseNotOwned, "failed to verify course ownership")
	}
	return course, nil
}

// EnsureChapterInCourse returns the chapter when it belongs to courseID and actor owns the course.
func (s *OwnershipService) EnsureChapterInCourse(ctx context.Context, chapterID, courseID string, actor models.Actor) (*models.Chapter, error) {
	var (
		chapter *models.Chapter
		err     error
	)
	if actor.IsAdmin() {
		chapter, err = s.chapters.FindInCourse(ctx, chapterID, courseID)
	} else {
		chapter, err = s.chapters.FindOwned(ctx, chapterID, courseID, actor.UserID)
	}
	if err != nil {
		return nil, notOwned(err, errChapterNotOwned, "failed to verify chapter ownership")
	}
	return chapter, nil
}

// EnsureSessionOwner returns the live session when actor hosts it.
func (s *OwnershipService) EnsureSessionOwner(ctx context.Context, sessionID string, actor models.Actor) (*models.LiveSession, error) {
	var (
		session *models.LiveSession
		err     error
	)
	if actor.IsAdmin() {
		session, err = s.sessions.FindByID(ctx, sessionID)
	} else {
		session, err = s.sessions.FindOwned(ctx, sessionID, actor.UserID)
	}
	if err != nil {
		return nil, notOwned(err, errSessionNotOwned, "failed to verify session ownership")
	}
	return session, nil
}

// CourseCheck adapts EnsureCourseOwner to the route guard predicate shape.
func (s *OwnershipService) CourseCheck(ctx context.Context, courseID string, actor models.Actor) error {
	_, err := s.EnsureCourseOwner(ctx, courseID, actor)
	return err
}

// SessionCheck adapts EnsureSessionOwner to the route guard predicate shape.
func (s *OwnershipService) SessionCheck(ctx context.Context, sessionID string, actor models.Actor) error {
	_, err := s.EnsureSessionOwner(ctx, sessionID, actor)
	return err
}

func notOwned(err error, notFound *appErrors.Error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return appErrors.Rewrap(appErrors.ErrInternal, err, msg)
}
