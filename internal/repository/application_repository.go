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

const applicationColumns = `a.id, a.job_posting_id, a.applicant_id, a.status, a.cover_letter, a.resume_url, a.notes, a.interview_at,
        a.interview_duration_minutes, a.interview_mode, a.interview_link, a.applied_at, a.updated_at`

// ApplicationRepository manages job applications and their status history.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts an application, its initial history row and bumps the posting counter in one
// transaction. A second application by the same applicant yields ErrDuplicate.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.JobApplication) (err error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.AppliedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApplicationStatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create application: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO job_applications (id, job_posting_id, applicant_id, status, cover_letter, resume_url, notes, applied_at, updated_at)
        VALUES (:id, :job_posting_id, :applicant_id, :status, :cover_letter, :resume_url, :notes, :applied_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, app); err != nil {
		err = mapUniqueViolation(err)
		return fmt.Errorf("create application: %w", err)
	}
	if err = insertHistory(ctx, tx, app.ID, nil, app.Status, app.ApplicantID, nil, now); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE jobs SET applications_count = applications_count + 1 WHERE id = $1`, app.JobPostingID); err != nil {
		return fmt.Errorf("increment applications count: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create application: %w", err)
	}
	return nil
}

// FindByID returns an application by id.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.JobApplication, error) {
	var app models.JobApplication
	if err := r.db.GetContext(ctx, &app, `SELECT `+applicationColumns+` FROM job_applications a WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// FindForJob returns an application that belongs to jobID.
func (r *ApplicationRepository) FindForJob(ctx context.Context, id, jobID string) (*models.JobApplication, error) {
	var app models.JobApplication
	if err := r.db.GetContext(ctx, &app, `SELECT `+applicationColumns+` FROM job_applications a WHERE a.id = $1 AND a.job_posting_id = $2`, id, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find job application: %w", err)
	}
	return &app, nil
}

// ListByJob returns a posting's applications with applicant identity. PageSize 0 with Page 0
// returns every row.
func (r *ApplicationRepository) ListByJob(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicantView, int, error) {
	where := `a.job_posting_id = $1`
	args := []interface{}{filter.JobPostingID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND a.status = $%d`, len(args))
	}
	query := `SELECT ` + applicationColumns + `, u.full_name AS applicant_name, u.email AS applicant_email
        FROM job_applications a JOIN users u ON u.id = a.applicant_id WHERE ` + where + ` ORDER BY a.applied_at DESC`
	if filter.Page > 0 || filter.PageSize > 0 {
		limit, offset := pageWindow(filter.Page, filter.PageSize)
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, limit, offset)
	}
	var items []models.ApplicantView
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list job applications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM job_applications a WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count job applications: %w", err)
	}
	return items, total, nil
}

// ListByApplicant returns an applicant's applications with posting summaries.
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, filter models.ApplicationFilter) ([]models.MyApplicationView, int, error) {
	where := `a.applicant_id = $1`
	args := []interface{}{filter.ApplicantID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND a.status = $%d`, len(args))
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT %s, j.title AS job_title, j.company_name, j.job_type, j.status AS job_status
        FROM job_applications a JOIN jobs j ON j.id = a.job_posting_id WHERE %s ORDER BY a.applied_at DESC LIMIT %d OFFSET %d`,
		applicationColumns, where, limit, offset)
	var items []models.MyApplicationView
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list my applications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM job_applications a WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count my applications: %w", err)
	}
	return items, total, nil
}

// ListHistory returns an application's transitions oldest first.
func (r *ApplicationRepository) ListHistory(ctx context.Context, applicationID string) ([]models.ApplicationStatusHistory, error) {
	const query = `SELECT id, application_id, from_status, to_status, changed_by, notes, created_at
        FROM job_application_status_history WHERE application_id = $1 ORDER BY created_at ASC`
	var items []models.ApplicationStatusHistory
	if err := r.db.SelectContext(ctx, &items, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application history: %w", err)
	}
	return items, nil
}

// UpdateStatus moves an application from one status to another and records the transition.
// ErrStaleStatus is returned when the stored status is no longer from.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus, changedBy string, notes *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update application status: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `UPDATE job_applications SET status = $3, notes = COALESCE($4, notes), updated_at = $5 WHERE id = $1 AND status = $2`
	res, err := tx.ExecContext(ctx, query, id, from, to, notes, now)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if err = staleIfUnaffected(res); err != nil {
		return err
	}
	if err = insertHistory(ctx, tx, id, &from, to, changedBy, notes, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update application status: %w", err)
	}
	return nil
}

// ScheduleInterview stores interview details and moves the application to interview_scheduled.
func (r *ApplicationRepository) ScheduleInterview(ctx context.Context, id string, from models.ApplicationStatus, req models.ScheduleInterviewRequest, changedBy string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule interview: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	to := models.ApplicationStatusInterviewScheduled
	const query = `UPDATE job_applications SET status = $3, interview_at = $4, interview_duration_minutes = $5, interview_mode = $6,
        interview_link = $7, notes = COALESCE($8, notes), updated_at = $9 WHERE id = $1 AND status = $2`
	res, err := tx.ExecContext(ctx, query, id, from, to, req.ScheduledAt.UTC(), req.DurationMinutes, req.Mode, req.MeetingLink, req.Notes, now)
	if err != nil {
		return fmt.Errorf("schedule interview: %w", err)
	}
	if err = staleIfUnaffected(res); err != nil {
		return err
	}
	if err = insertHistory(ctx, tx, id, &from, to, changedBy, req.Notes, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule interview: %w", err)
	}
	return nil
}

// BulkUpdateStatus moves every listed application of jobID to status in a single statement.
// Only applications on a posting owned by employerID and not withdrawn are touched; the
// returned count reflects exactly those rows.
func (r *ApplicationRepository) BulkUpdateStatus(ctx context.Context, jobID, employerID string, ids []string, status models.ApplicationStatus, notes *string) (int, error) {
	const query = `WITH targets AS (
            SELECT a.id, a.status FROM job_applications a
            JOIN jobs j ON j.id = a.job_posting_id
            WHERE a.id = ANY($1) AND a.job_posting_id = $2 AND j.employer_id = $3 AND a.status <> 'withdrawn'
            FOR UPDATE OF a
        ), updated AS (
            UPDATE job_applications a SET status = $4, notes = COALESCE($5, a.notes), updated_at = $6
            FROM targets t WHERE a.id = t.id
            RETURNING a.id, t.status AS from_status
        ), history AS (
            INSERT INTO job_application_status_history (id, application_id, from_status, to_status, changed_by, notes, created_at)
            SELECT gen_random_uuid(), u.id, u.from_status, $4::text, $3, $5::text, $6 FROM updated u
        )
        SELECT COUNT(*) FROM updated`
	var count int
	if err := r.db.GetContext(ctx, &count, query, pq.Array(ids), jobID, employerID, status, notes, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("bulk update applications: %w", err)
	}
	return count, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, applicationID string, from *models.ApplicationStatus, to models.ApplicationStatus, changedBy string, notes *string, at time.Time) error {
	const query = `INSERT INTO job_application_status_history (id, application_id, from_status, to_status, changed_by, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), applicationID, from, to, changedBy, notes, at); err != nil {
		return fmt.Errorf("insert application history: %w", err)
	}
	return nil
}

func staleIfUnaffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("status update rows: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}
