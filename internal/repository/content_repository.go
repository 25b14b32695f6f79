package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const contentColumns = `id, chapter_id, title, type, content_data, order_index, duration_minutes, is_preview, is_published, created_at, updated_at`

// ContentRepository manages chapter content items.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs a ContentRepository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// FindInChapter returns a content item that belongs to chapterID.
func (r *ContentRepository) FindInChapter(ctx context.Context, id, chapterID string) (*models.Content, error) {
	var content models.Content
	if err := r.db.GetContext(ctx, &content, `SELECT `+contentColumns+` FROM course_content WHERE id = $1 AND chapter_id = $2`, id, chapterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find content: %w", err)
	}
	return &content, nil
}

// ListByChapter returns a chapter's content ordered by order_index.
func (r *ContentRepository) ListByChapter(ctx context.Context, chapterID string, publishedOnly bool) ([]models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM course_content WHERE chapter_id = $1`
	if publishedOnly {
		query += ` AND is_published = TRUE`
	}
	query += ` ORDER BY order_index ASC, created_at ASC`
	var items []models.Content
	if err := r.db.SelectContext(ctx, &items, query, chapterID); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}

// ListByChapters returns content for several chapters in one round trip.
func (r *ContentRepository) ListByChapters(ctx context.Context, chapterIDs []string, publishedOnly bool) ([]models.Content, error) {
	if len(chapterIDs) == 0 {
		return []models.Content{}, nil
	}
	query := `SELECT ` + contentColumns + ` FROM course_content WHERE chapter_id = ANY($1)`
	if publishedOnly {
		query += ` AND is_published = TRUE`
	}
	query += ` ORDER BY chapter_id, order_index ASC, created_at ASC`
	var items []models.Content
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(chapterIDs)); err != nil {
		return nil, fmt.Errorf("list content by chapters: %w", err)
	}
	return items, nil
}

// NextOrderIndex returns MAX(order_index)+1 inside a chapter.
func (r *ContentRepository) NextOrderIndex(ctx context.Context, chapterID string) (int, error) {
	var next int
	if err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(order_index) + 1, 0) FROM course_content WHERE chapter_id = $1`, chapterID); err != nil {
		return 0, fmt.Errorf("next content index: %w", err)
	}
	return next, nil
}

// Create inserts a content item.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	content.CreatedAt = now
	content.UpdatedAt = now
	const query = `INSERT INTO course_content (id, chapter_id, title, type, content_data, order_index, duration_minutes, is_preview, is_published, created_at, updated_at)
        VALUES (:id, :chapter_id, :title, :type, :content_data, :order_index, :duration_minutes, :is_preview, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, content); err != nil {
		return fmt.Errorf("create content: %w", mapUniqueViolation(err))
	}
	return nil
}

// Update writes the mutable content fields. The type is immutable.
func (r *ContentRepository) Update(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_content SET title = :title, content_data = :content_data, order_index = :order_index,
        duration_minutes = :duration_minutes, is_preview = :is_preview, is_published = :is_published, updated_at = :updated_at
        WHERE id = :id AND chapter_id = :chapter_id`
	res, err := r.db.NamedExecContext(ctx, query, content)
	if err != nil {
		return fmt.Errorf("update content: %w", mapUniqueViolation(err))
	}
	return requireAffected(res, "update content")
}

// Delete removes a content item.
func (r *ContentRepository) Delete(ctx context.Context, id, chapterID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_content WHERE id = $1 AND chapter_id = $2`, id, chapterID)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return requireAffected(res, "delete content")
}
