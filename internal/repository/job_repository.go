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

const jobColumns = `id, employer_id, title, description, company_name, location, job_type, work_mode, stipend_min, stipend_max, skills,
        requirements, openings, application_deadline, status, applications_count, published_at, created_at, updated_at`

// JobRepository manages job postings.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// List returns postings matching the filter with the total count. Unless AnyStatus is set the
// status defaults to published.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	add := func(format string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, strings.ReplaceAll(format, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.EmployerID != "" {
		add("employer_id = ?", filter.EmployerID)
	}
	switch {
	case filter.Status != "":
		add("status = ?", filter.Status)
	case !filter.AnyStatus:
		add("status = ?", models.JobStatusPublished)
	}
	if filter.Location != "" {
		add(`location ILIKE ? ESCAPE '\'`, containsPattern(filter.Location))
	}
	if filter.JobType != "" {
		add("job_type = ?", filter.JobType)
	}
	if filter.WorkMode != "" {
		add("work_mode = ?", filter.WorkMode)
	}
	// Stipend bounds contain the whole advertised range; postings without one never match.
	if filter.StipendMin != nil {
		add("stipend_min >= ?", *filter.StipendMin)
	}
	if filter.StipendMax != nil {
		add("stipend_max <= ?", *filter.StipendMax)
	}
	if filter.Search != "" {
		add(`(title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\' OR company_name ILIKE ? ESCAPE '\')`, containsPattern(filter.Search))
	}

	where := strings.Join(conditions, " AND ")
	column := sortColumn(filter.SortBy, map[string]string{
		"createdAt":           "created_at",
		"created_at":          "created_at",
		"deadline":            "application_deadline",
		"applicationDeadline": "application_deadline",
		"stipend":             "stipend_max",
		"title":               "title",
	}, "created_at")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE %s ORDER BY %s %s NULLS LAST, id LIMIT %d OFFSET %d`, jobColumns, where, column, sortDirection(filter.SortOrder), limit, offset)
	var jobs []models.JobPosting
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf(`SELECT COUNT(*) FROM jobs WHERE %s`, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return jobs, total, nil
}

// FindByID returns a posting by id.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := r.db.GetContext(ctx, &job, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find job: %w", err)
	}
	return &job, nil
}

// Create inserts a posting.
func (r *JobRepository) Create(ctx context.Context, job *models.JobPosting) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	const query = `INSERT INTO jobs (id, employer_id, title, description, company_name, location, job_type, work_mode, stipend_min, stipend_max, skills,
        requirements, openings, application_deadline, status, applications_count, published_at, created_at, updated_at)
        VALUES (:id, :employer_id, :title, :description, :company_name, :location, :job_type, :work_mode, :stipend_min, :stipend_max, :skills,
        :requirements, :openings, :application_deadline, :status, :applications_count, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Update writes the mutable posting fields.
func (r *JobRepository) Update(ctx context.Context, job *models.JobPosting) error {
	job.UpdatedAt = time.Now().UTC()
	const query = `UPDATE jobs SET title = :title, description = :description, company_name = :company_name, location = :location,
        job_type = :job_type, work_mode = :work_mode, stipend_min = :stipend_min, stipend_max = :stipend_max, skills = :skills,
        requirements = :requirements, openings = :openings, application_deadline = :application_deadline, updated_at = :updated_at
        WHERE id = :id AND employer_id = :employer_id`
	res, err := r.db.NamedExecContext(ctx, query, job)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return requireAffected(res, "update job")
}

// UpdateStatus sets the posting status, stamping published_at on first publication.
func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status models.JobStatus, at time.Time) error {
	const query = `UPDATE jobs SET status = $2, updated_at = $3,
        published_at = CASE WHEN $2 = 'published' AND published_at IS NULL THEN $3 ELSE published_at END
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, at)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return requireAffected(res, "update job status")
}

// Delete removes a posting; applications cascade.
func (r *JobRepository) Delete(ctx context.Context, id, employerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1 AND employer_id = $2`, id, employerID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return requireAffected(res, "delete job")
}

// CloseExpired closes published postings whose deadline has passed and returns how many changed.
func (r *JobRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE jobs SET status = $1, updated_at = $2 WHERE status = $3 AND application_deadline < $2`,
		models.JobStatusClosed, now, models.JobStatusPublished)
	if err != nil {
		return 0, fmt.Errorf("close expired jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close expired jobs rows: %w", err)
	}
	return affected, nil
}
