package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

func TestProfileRepositoryUpsertUsesOnConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &models.StudentProfile{UserID: "u1", Skills: []string{"go", "sql"}}
	require.NoError(t, repo.Upsert(context.Background(), profile))
	assert.False(t, profile.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListUnreadOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM notifications WHERE user_id = $1 AND read = FALSE ORDER BY created_at DESC LIMIT 20 OFFSET 0`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "data", "read", "created_at"}).
			AddRow("n1", "u1", "application_status", "Update", "You were shortlisted", []byte(`{}`), false, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.NotificationFilter{UserID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationApplicationStatus, items[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadOtherUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET read = TRUE").
		WithArgs("n1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "n1", "u2")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMarkReminderSentOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE live_sessions SET reminder_sent = TRUE WHERE id = $1 AND reminder_sent = FALSE`)).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	marked, err := repo.MarkReminderSent(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
