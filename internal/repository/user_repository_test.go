package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "user@example.com", "hash", "User", string(models.RoleMentor), true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, models.RoleMentor, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &models.User{Email: "a@b.c", Role: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, "users_email_key", ConstraintOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLogAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionJobCreate, Resource: "jobs"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
