package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const courseColumns = `id, mentor_id, title, slug, description, category, level, price, status, thumbnail_url, published_at, created_at, updated_at`

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the filter together with the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.MentorID != "" {
		args = append(args, filter.MentorID)
		conditions = append(conditions, fmt.Sprintf("mentor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("LOWER(category) = LOWER($%d)", len(args)))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}

	where := strings.Join(conditions, " AND ")
	column := sortColumn(filter.SortBy, map[string]string{
		"title":      "title",
		"price":      "price",
		"created_at": "created_at",
		"createdAt":  "created_at",
	}, "created_at")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM courses WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, courseColumns, where, column, sortDirection(filter.SortOrder), limit, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf(`SELECT COUNT(*) FROM courses WHERE %s`, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindOwned returns the course only when mentorID owns it; otherwise sql.ErrNoRows.
func (r *CourseRepository) FindOwned(ctx context.Context, id, mentorID string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, `SELECT `+courseColumns+` FROM courses WHERE id = $1 AND mentor_id = $2`, id, mentorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find owned course: %w", err)
	}
	return &course, nil
}

// SlugExists reports whether a course already uses the slug.
func (r *CourseRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM courses WHERE slug = $1)`, slug); err != nil {
		return false, fmt.Errorf("check course slug: %w", err)
	}
	return exists, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, mentor_id, title, slug, description, category, level, price, status, thumbnail_url, published_at, created_at, updated_at)
        VALUES (:id, :mentor_id, :title, :slug, :description, :category, :level, :price, :status, :thumbnail_url, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", mapUniqueViolation(err))
	}
	return nil
}

// Update writes the mutable course fields scoped to the owning mentor.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, category = :category, level = :level, price = :price,
        status = :status, thumbnail_url = :thumbnail_url, published_at = :published_at, updated_at = :updated_at
        WHERE id = :id AND mentor_id = :mentor_id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return requireAffected(res, "update course")
}

// Delete removes a course owned by mentorID. Chapters, content and resources cascade.
func (r *CourseRepository) Delete(ctx context.Context, id, mentorID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1 AND mentor_id = $2`, id, mentorID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireAffected(res, "delete course")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
