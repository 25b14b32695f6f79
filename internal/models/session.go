package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionStatus tracks a live session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusEnded     SessionStatus = "ended"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// LiveSession is a mentor-hosted realtime session.
type LiveSession struct {
	ID              string        `db:"id" json:"id"`
	MentorID        string        `db:"mentor_id" json:"mentorId"`
	CourseID        *string       `db:"course_id" json:"courseId,omitempty"`
	Title           string        `db:"title" json:"title"`
	Description     string        `db:"description" json:"description"`
	ScheduledAt     time.Time     `db:"scheduled_at" json:"scheduledAt"`
	DurationMinutes int           `db:"duration_minutes" json:"durationMinutes"`
	MeetingURL      *string       `db:"meeting_url" json:"meetingUrl,omitempty"`
	CalendarEventID *string       `db:"calendar_event_id" json:"calendarEventId,omitempty"`
	Status          SessionStatus `db:"status" json:"status"`
	MaxParticipants int           `db:"max_participants" json:"maxParticipants"`
	ReminderSent    bool          `db:"reminder_sent" json:"-"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	MentorID string
	CourseID string
	Status   SessionStatus
	From     *time.Time
	Page     int
	PageSize int
}

// CreateSessionRequest schedules a session.
type CreateSessionRequest struct {
	CourseID        *string   `json:"courseId" validate:"omitempty,uuid"`
	Title           string    `json:"title" validate:"required,min=3,max=200"`
	Description     string    `json:"description" validate:"max=5000"`
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"required,gte=15,lte=480"`
	MeetingURL      *string   `json:"meetingUrl" validate:"omitempty,url"`
	MaxParticipants int       `json:"maxParticipants" validate:"omitempty,gte=1,lte=10000"`
}

// UpdateSessionRequest partially updates a session.
type UpdateSessionRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=3,max=200"`
	Description     *string    `json:"description" validate:"omitempty,max=5000"`
	ScheduledAt     *time.Time `json:"scheduledAt"`
	DurationMinutes *int       `json:"durationMinutes" validate:"omitempty,gte=15,lte=480"`
	MeetingURL      *string    `json:"meetingUrl" validate:"omitempty,url"`
	MaxParticipants *int       `json:"maxParticipants" validate:"omitempty,gte=1,lte=10000"`
}

// UpdateSessionStatusRequest moves a session through its lifecycle.
type UpdateSessionStatusRequest struct {
	Status SessionStatus `json:"status" validate:"required,oneof=scheduled live ended cancelled"`
}

// SessionQuestion is a participant question and the mentor's answer.
type SessionQuestion struct {
	ID         string     `db:"id" json:"id"`
	SessionID  string     `db:"session_id" json:"sessionId"`
	AskedBy    string     `db:"asked_by" json:"askedBy"`
	Question   string     `db:"question" json:"question"`
	Answer     *string    `db:"answer" json:"answer,omitempty"`
	AnsweredBy *string    `db:"answered_by" json:"answeredBy,omitempty"`
	AnsweredAt *time.Time `db:"answered_at" json:"answeredAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// SessionPoll is a mentor-created poll.
type SessionPoll struct {
	ID        string         `db:"id" json:"id"`
	SessionID string         `db:"session_id" json:"sessionId"`
	CreatedBy string         `db:"created_by" json:"createdBy"`
	Question  string         `db:"question" json:"question"`
	Options   pq.StringArray `db:"options" json:"options"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// SessionState is the durable state a reconnecting client fetches.
type SessionState struct {
	Session   LiveSession       `json:"session"`
	Questions []SessionQuestion `json:"questions"`
	Polls     []SessionPoll     `json:"polls"`
}

// SessionReminder is a session due for a reminder, joined with its mentor contact.
type SessionReminder struct {
	LiveSession
	MentorEmail string `db:"mentor_email"`
	MentorName  string `db:"mentor_name"`
}

// AskQuestionPayload is the body of a relay "question" message.
type AskQuestionPayload struct {
	Question string `json:"question" validate:"required,min=3,max=1000"`
}

// AnswerQuestionPayload is the body of a relay "answer" message.
type AnswerQuestionPayload struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
	Answer     string `json:"answer" validate:"required,min=1,max=5000"`
}

// CreatePollPayload is the body of a relay "poll" message.
type CreatePollPayload struct {
	Question string   `json:"question" validate:"required,min=3,max=500"`
	Options  []string `json:"options" validate:"required,min=2,max=10,dive,required,max=200"`
}
