package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// EnrollmentRepository handles persistence of course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// IsEnrolled reports whether the student holds a non-cancelled enrollment in the course.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status <> $3)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, courseID, studentID, models.EnrollmentStatusCancelled); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return ok, nil
}

// CountByStudent returns how many enrollments a student has ever made.
func (r *EnrollmentRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// Create inserts an enrollment. A repeat enrollment yields ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, course_id, student_id, status, progress, enrolled_at, completed_at)
        VALUES (:id, :course_id, :student_id, :status, :progress, :enrolled_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", mapUniqueViolation(err))
	}
	return nil
}

// ListByStudent returns a student's enrollments with course summaries.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.course_id, e.student_id, e.status, e.progress, e.enrolled_at, e.completed_at,
        c.title AS course_title, c.slug AS course_slug, c.mentor_id
        FROM enrollments e JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 ORDER BY e.enrolled_at DESC`
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return items, nil
}
