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

const sessionColumns = `s.id, s.mentor_id, s.course_id, s.title, s.description, s.scheduled_at, s.duration_minutes, s.meeting_url,
        s.calendar_event_id, s.status, s.max_participants, s.reminder_sent, s.created_at, s.updated_at`

// SessionRepository manages live sessions plus their questions and polls.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions matching the filter ordered by start time.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.LiveSession, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.MentorID != "" {
		args = append(args, filter.MentorID)
		conditions = append(conditions, fmt.Sprintf("s.mentor_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("s.scheduled_at + (s.duration_minutes * INTERVAL '1 minute') >= $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	var sessions []models.LiveSession
	query := fmt.Sprintf(`SELECT %s FROM live_sessions s WHERE %s ORDER BY s.scheduled_at ASC LIMIT %d OFFSET %d`, sessionColumns, where, limit, offset)
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM live_sessions s WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.LiveSession, error) {
	var session models.LiveSession
	if err := r.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM live_sessions s WHERE s.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// FindOwned returns the session only when mentorID hosts it.
func (r *SessionRepository) FindOwned(ctx context.Context, id, mentorID string) (*models.LiveSession, error) {
	var session models.LiveSession
	if err := r.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM live_sessions s WHERE s.id = $1 AND s.mentor_id = $2`, id, mentorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find owned session: %w", err)
	}
	return &session, nil
}

// Create inserts a session.
func (r *SessionRepository) Create(ctx context.Context, session *models.LiveSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = models.SessionStatusScheduled
	}
	const query = `INSERT INTO live_sessions (id, mentor_id, course_id, title, description, scheduled_at, duration_minutes, meeting_url, calendar_event_id,
        status, max_participants, reminder_sent, created_at, updated_at)
        VALUES (:id, :mentor_id, :course_id, :title, :description, :scheduled_at, :duration_minutes, :meeting_url, :calendar_event_id,
        :status, :max_participants, :reminder_sent, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update writes the mutable session fields. Rescheduling re-arms the reminder.
func (r *SessionRepository) Update(ctx context.Context, session *models.LiveSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE live_sessions SET title = :title, description = :description, scheduled_at = :scheduled_at,
        duration_minutes = :duration_minutes, meeting_url = :meeting_url, max_participants = :max_participants,
        reminder_sent = :reminder_sent, status = :status, updated_at = :updated_at
        WHERE id = :id AND mentor_id = :mentor_id`
	res, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return requireAffected(res, "update session")
}

// SetCalendarEvent stores the external calendar event id.
func (r *SessionRepository) SetCalendarEvent(ctx context.Context, id string, eventID *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE live_sessions SET calendar_event_id = $2 WHERE id = $1`, id, eventID); err != nil {
		return fmt.Errorf("set session calendar event: %w", err)
	}
	return nil
}

// Delete removes a session; questions and polls cascade.
func (r *SessionRepository) Delete(ctx context.Context, id, mentorID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM live_sessions WHERE id = $1 AND mentor_id = $2`, id, mentorID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireAffected(res, "delete session")
}

// DueForReminder returns scheduled sessions starting in [from, until) that have not been reminded.
func (r *SessionRepository) DueForReminder(ctx context.Context, from, until time.Time) ([]models.SessionReminder, error) {
	query := `SELECT ` + sessionColumns + `, u.email AS mentor_email, u.full_name AS mentor_name
        FROM live_sessions s JOIN users u ON u.id = s.mentor_id
        WHERE s.status = $1 AND s.reminder_sent = FALSE AND s.scheduled_at >= $2 AND s.scheduled_at < $3
        ORDER BY s.scheduled_at ASC`
	var items []models.SessionReminder
	if err := r.db.SelectContext(ctx, &items, query, models.SessionStatusScheduled, from, until); err != nil {
		return nil, fmt.Errorf("sessions due for reminder: %w", err)
	}
	return items, nil
}

// MarkReminderSent flags a session as reminded. It reports false when another worker got there first.
func (r *SessionRepository) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE live_sessions SET reminder_sent = TRUE WHERE id = $1 AND reminder_sent = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark reminder sent rows: %w", err)
	}
	return affected > 0, nil
}

// CourseAttendees lists the students enrolled in a course.
func (r *SessionRepository) CourseAttendees(ctx context.Context, courseID string) ([]models.Recipient, error) {
	const query = `SELECT u.id, u.email, u.full_name FROM enrollments e JOIN users u ON u.id = e.student_id
        WHERE e.course_id = $1 AND e.status <> $2 AND u.active = TRUE`
	var items []models.Recipient
	if err := r.db.SelectContext(ctx, &items, query, courseID, models.EnrollmentStatusCancelled); err != nil {
		return nil, fmt.Errorf("course attendees: %w", err)
	}
	return items, nil
}

// CreateQuestion stores a participant question.
func (r *SessionRepository) CreateQuestion(ctx context.Context, q *models.SessionQuestion) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO session_questions (id, session_id, asked_by, question, created_at) VALUES (:id, :session_id, :asked_by, :question, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("create session question: %w", err)
	}
	return nil
}

// AnswerQuestion stores the host's answer on a question of the session.
func (r *SessionRepository) AnswerQuestion(ctx context.Context, sessionID, questionID, answeredBy, answer string) (*models.SessionQuestion, error) {
	const query = `UPDATE session_questions SET answer = $4, answered_by = $3, answered_at = $5
        WHERE id = $2 AND session_id = $1
        RETURNING id, session_id, asked_by, question, answer, answered_by, answered_at, created_at`
	var q models.SessionQuestion
	if err := r.db.GetContext(ctx, &q, query, sessionID, questionID, answeredBy, answer, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("answer session question: %w", err)
	}
	return &q, nil
}

// ListQuestions returns a session's questions oldest first.
func (r *SessionRepository) ListQuestions(ctx context.Context, sessionID string) ([]models.SessionQuestion, error) {
	const query = `SELECT id, session_id, asked_by, question, answer, answered_by, answered_at, created_at
        FROM session_questions WHERE session_id = $1 ORDER BY created_at ASC`
	var items []models.SessionQuestion
	if err := r.db.SelectContext(ctx, &items, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}
	return items, nil
}

// CreatePoll stores a host poll.
func (r *SessionRepository) CreatePoll(ctx context.Context, poll *models.SessionPoll) error {
	if poll.ID == "" {
		poll.ID = uuid.NewString()
	}
	poll.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO session_polls (id, session_id, created_by, question, options, created_at) VALUES (:id, :session_id, :created_by, :question, :options, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, poll); err != nil {
		return fmt.Errorf("create session poll: %w", err)
	}
	return nil
}

// ListPolls returns a session's polls oldest first.
func (r *SessionRepository) ListPolls(ctx context.Context, sessionID string) ([]models.SessionPoll, error) {
	var items []models.SessionPoll
	if err := r.db.SelectContext(ctx, &items, `SELECT id, session_id, created_by, question, options, created_at FROM session_polls WHERE session_id = $1 ORDER BY created_at ASC`, sessionID); err != nil {
		return nil, fmt.Errorf("list session polls: %w", err)
	}
	return items, nil
}
