package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type referralConverter interface {
	ConvertOnEnrollment(ctx context.Context, studentID string) error
}

// EnrollmentService enrols students into published courses.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	referrals referralConverter
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService. referrals may be nil.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, referrals referralConverter, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, referrals: referrals, logger: logger}
}

// Enroll enrols the acting student. A pending referral for the student converts on success.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID string, actor models.Actor) (*models.Enrollment, error) {
	course, err := visibleCourse(ctx, s.courses, courseID, models.Actor{})
	if err != nil {
		return nil, err
	}
	if course.MentorID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mentors cannot enrol in their own course")
	}
	enrollment := &models.Enrollment{CourseID: course.ID, StudentID: actor.UserID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to enrol")
	}
	if s.referrals != nil {
		if err := s.referrals.ConvertOnEnrollment(ctx, actor.UserID); err != nil {
			s.logger.Warn("referral conversion failed", zap.String("student_id", actor.UserID), zap.Error(err))
		}
	}
	return enrollment, nil
}

// ListMine returns the acting student's enrollments.
func (s *EnrollmentService) ListMine(ctx context.Context, actor models.Actor) ([]models.EnrollmentDetail, error) {
	items, err := s.repo.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list enrollments")
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, nil
}
