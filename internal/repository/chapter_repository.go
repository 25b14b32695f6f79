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

const chapterColumns = `ch.id, ch.course_id, ch.title, ch.description, ch.order_index, ch.is_published, ch.created_at, ch.updated_at`

// ChapterRepository manages course chapters.
type ChapterRepository struct {
	db *sqlx.DB
}

// NewChapterRepository constructs a ChapterRepository.
func NewChapterRepository(db *sqlx.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

// FindInCourse returns the chapter when it belongs to courseID.
func (r *ChapterRepository) FindInCourse(ctx context.Context, id, courseID string) (*models.Chapter, error) {
	var chapter models.Chapter
	query := `SELECT ` + chapterColumns + ` FROM course_chapters ch WHERE ch.id = $1 AND ch.course_id = $2`
	if err := r.db.GetContext(ctx, &chapter, query, id, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	return &chapter, nil
}

// FindOwned returns the chapter when it belongs to courseID and the course is owned by mentorID.
func (r *ChapterRepository) FindOwned(ctx context.Context, id, courseID, mentorID string) (*models.Chapter, error) {
	var chapter models.Chapter
	query := `SELECT ` + chapterColumns + ` FROM course_chapters ch
        JOIN courses c ON c.id = ch.course_id
        WHERE ch.id = $1 AND ch.course_id = $2 AND c.mentor_id = $3`
	if err := r.db.GetContext(ctx, &chapter, query, id, courseID, mentorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find owned chapter: %w", err)
	}
	return &chapter, nil
}

// ListByCourse returns chapters ordered by order_index.
func (r *ChapterRepository) ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM course_chapters ch WHERE ch.course_id = $1`
	if publishedOnly {
		query += ` AND ch.is_published = TRUE`
	}
	query += ` ORDER BY ch.order_index ASC`
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, query, courseID); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

// NextOrderIndex returns MAX(order_index)+1 for the course, or 0 when empty.
func (r *ChapterRepository) NextOrderIndex(ctx context.Context, courseID string) (int, error) {
	var next int
	if err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(order_index) + 1, 0) FROM course_chapters WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("next chapter index: %w", err)
	}
	return next, nil
}

// Create inserts a chapter. An order_index collision yields ErrDuplicate.
func (r *ChapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	chapter.CreatedAt = now
	chapter.UpdatedAt = now
	const query = `INSERT INTO course_chapters (id, course_id, title, description, order_index, is_published, created_at, updated_at)
        VALUES (:id, :course_id, :title, :description, :order_index, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, chapter); err != nil {
		return fmt.Errorf("create chapter: %w", mapUniqueViolation(err))
	}
	return nil
}

// Update writes the mutable chapter fields.
func (r *ChapterRepository) Update(ctx context.Context, chapter *models.Chapter) error {
	chapter.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_chapters SET title = :title, description = :description, order_index = :order_index,
        is_published = :is_published, updated_at = :updated_at WHERE id = :id AND course_id = :course_id`
	res, err := r.db.NamedExecContext(ctx, query, chapter)
	if err != nil {
		return fmt.Errorf("update chapter: %w", mapUniqueViolation(err))
	}
	return requireAffected(res, "update chapter")
}

// Delete removes a chapter and, by cascade, its content.
func (r *ChapterRepository) Delete(ctx context.Context, id, courseID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_chapters WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return requireAffected(res, "delete chapter")
}

// Reorder assigns order_index by position in ids. Every id must belong to the course.
func (r *ChapterRepository) Reorder(ctx context.Context, courseID string, ids []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder chapters: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SET CONSTRAINTS course_chapters_course_order_key DEFERRED`); err != nil {
		return fmt.Errorf("defer chapter order constraint: %w", err)
	}

	const query = `UPDATE course_chapters ch SET order_index = o.idx - 1, updated_at = NOW()
        FROM unnest($2::uuid[]) WITH ORDINALITY AS o(id, idx)
        WHERE ch.id = o.id AND ch.course_id = $1`
	res, err := tx.ExecContext(ctx, query, courseID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("reorder chapters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reorder chapters rows: %w", err)
	}
	if int(affected) != len(ids) {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder chapters: %w", mapUniqueViolation(err))
	}
	return nil
}
