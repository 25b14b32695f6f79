package models

import "time"

// EnrollmentStatus tracks a student's participation in a course.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Enrollment links a student to a course.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	CourseID    string           `db:"course_id" json:"courseId"`
	StudentID   string           `db:"student_id" json:"studentId"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	Progress    int              `db:"progress" json:"progress"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolledAt"`
	CompletedAt *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
}

// EnrollmentDetail is an enrollment joined with its course summary.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle string `db:"course_title" json:"courseTitle"`
	CourseSlug  string `db:"course_slug" json:"courseSlug"`
	MentorID    string `db:"mentor_id" json:"mentorId"`
}
