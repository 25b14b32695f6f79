package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

func TestContentRepositoryCreateMapsOrderCollision(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec("INSERT INTO course_content").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "course_content_chapter_order_key"})

	err := repo.Create(context.Background(), &models.Content{
		ChapterID:   "chapter-1",
		Title:       "Intro",
		Type:        models.ContentTypeVideo,
		ContentData: types.JSONText(`{}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, "course_content_chapter_order_key", ConstraintOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUpdateMapsOrderCollision(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_content SET")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "course_content_chapter_order_key"})

	err := repo.Update(context.Background(), &models.Content{ID: "content-1", ChapterID: "chapter-1", OrderIndex: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryNextOrderIndex(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(order_index) + 1, 0) FROM course_content WHERE chapter_id = $1`)).
		WithArgs("chapter-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	next, err := repo.NextOrderIndex(context.Background(), "chapter-1")
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}
