package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

func TestEnrollmentRepositoryIsEnrolled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status <> $3)`)).
		WithArgs("course-1", "student-1", models.EnrollmentStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsEnrolled(context.Background(), "course-1", "student-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "enrollments_course_student_key"})

	enrollment := &models.Enrollment{CourseID: "course-1", StudentID: "student-1"}
	err := repo.Create(context.Background(), enrollment)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
