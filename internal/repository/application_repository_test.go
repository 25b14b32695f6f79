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

func TestApplicationRepositoryCreateWritesHistoryAndCounter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO job_applications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO job_application_status_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), nil, models.ApplicationStatusPending, "student-1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE jobs SET applications_count = applications_count + 1 WHERE id = $1`)).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app := &models.JobApplication{JobPostingID: "job-1", ApplicantID: "student-1", CoverLetter: "I would love to join the team."}
	require.NoError(t, repo.Create(context.Background(), app))
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCreateDuplicateRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO job_applications").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "job_applications_job_applicant_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.JobApplication{JobPostingID: "job-1", ApplicantID: "student-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE job_applications SET status").
		WithArgs("app-1", models.ApplicationStatusPending, models.ApplicationStatusReviewed, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusPending, models.ApplicationStatusReviewed, "emp-1", nil)
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryBulkUpdateScopesToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	ids := []string{"a1", "a2", "a3"}
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE a.id = ANY($1) AND a.job_posting_id = $2 AND j.employer_id = $3 AND a.status <> 'withdrawn'`)).
		WithArgs(pq.Array(ids), "job-1", "emp-1", models.ApplicationStatusShortlisted, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.BulkUpdateStatus(context.Background(), "job-1", "emp-1", ids, models.ApplicationStatusShortlisted, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
