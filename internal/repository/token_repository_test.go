package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const spendRefreshToken = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "u1", Token: "token", ExpiresAt: time.Now()}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	assert.NotEmpty(t, token.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(spendRefreshToken)).
		WithArgs("rt-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	next := &models.RefreshToken{UserID: "u1", Token: "next", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.RotateRefreshToken(context.Background(), "rt-1", next))
	assert.NotEmpty(t, next.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshTokenDetectsReuse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(spendRefreshToken)).
		WithArgs("rt-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RotateRefreshToken(context.Background(), "rt-1", &models.RefreshToken{UserID: "u1", Token: "next"})
	assert.True(t, errors.Is(err, ErrTokenReused))
	assert.NoError(t, mock.ExpectationsWereMet())
}
