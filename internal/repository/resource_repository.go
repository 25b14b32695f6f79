package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const resourceColumns = `id, course_id, chapter_id, title, description, file_key, file_name, file_size, mime_type, is_free, download_count, created_by, created_at, updated_at`

// ResourceRepository manages downloadable course resources.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs a ResourceRepository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// ListByCourse returns the resources of a course, newest first.
func (r *ResourceRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Resource, error) {
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, `SELECT `+resourceColumns+` FROM course_resources WHERE course_id = $1 ORDER BY created_at DESC`, courseID); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// FindInCourse returns a resource that belongs to courseID.
func (r *ResourceRepository) FindInCourse(ctx context.Context, id, courseID string) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, `SELECT `+resourceColumns+` FROM course_resources WHERE id = $1 AND course_id = $2`, id, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &resource, nil
}

// Create inserts a resource.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	resource.CreatedAt = now
	resource.UpdatedAt = now
	const query = `INSERT INTO course_resources (id, course_id, chapter_id, title, description, file_key, file_name, file_size, mime_type, is_free, download_count, created_by, created_at, updated_at)
        VALUES (:id, :course_id, :chapter_id, :title, :description, :file_key, :file_name, :file_size, :mime_type, :is_free, :download_count, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// Delete removes a resource row. The stored object is removed by the caller.
func (r *ResourceRepository) Delete(ctx context.Context, id, courseID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_resources WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return requireAffected(res, "delete resource")
}

// IncrementDownloads bumps the download counter.
func (r *ResourceRepository) IncrementDownloads(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE course_resources SET download_count = download_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment resource downloads: %w", err)
	}
	return nil
}
