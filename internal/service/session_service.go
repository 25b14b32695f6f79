package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/realtime"
	"github.com/noah-isme/campus-connect-api/pkg/calendar"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.LiveSession, int, error)
	FindByID(ctx context.Context, id string) (*models.LiveSession, error)
	Create(ctx context.Context, session *models.LiveSession) error
	Update(ctx context.Context, session *models.LiveSession) error
	SetCalendarEvent(ctx context.Context, id string, eventID *string) error
	Delete(ctx context.Context, id, mentorID string) error
	DueForReminder(ctx context.Context, from, until time.Time) ([]models.SessionReminder, error)
	MarkReminderSent(ctx context.Context, id string) (bool, error)
	CourseAttendees(ctx context.Context, courseID string) ([]models.Recipient, error)
	CreateQuestion(ctx context.Context, q *models.SessionQuestion) error
	AnswerQuestion(ctx context.Context, sessionID, questionID, answeredBy, answer string) (*models.SessionQuestion, error)
	ListQuestions(ctx context.Context, sessionID string) ([]models.SessionQuestion, error)
	CreatePoll(ctx context.Context, poll *models.SessionPoll) error
	ListPolls(ctx context.Context, sessionID string) ([]models.SessionPoll, error)
}

type recipientNotifier interface {
	Notify(ctx context.Context, notice Notice) error
	NotifyRecipient(recipient models.Recipient, subject, text, category string) error
}

const reminderWindow = time.Hour

var sessionTransitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionStatusScheduled: {models.SessionStatusLive, models.SessionStatusCancelled},
	models.SessionStatusLive:      {models.SessionStatusEnded},
}

// SessionService schedules live sessions and backs the realtime relay.
type SessionService struct {
	repo        sessionRepository
	courses     courseOwnerCheck
	enrollments enrollmentChecker
	calendar    calendar.Provider
	notifier    recipientNotifier
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionService constructs a SessionService. cal and notifier may be nil.
func NewSessionService(repo sessionRepository, courses courseOwnerCheck, enrollments enrollmentChecker, cal calendar.Provider, notifier recipientNotifier, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cal == nil {
		cal = calendar.Noop{}
	}
	return &SessionService{repo: repo, courses: courses, enrollments: enrollments, calendar: cal, notifier: notifier, validator: validate, logger: logger, now: time.Now}
}

// List returns sessions. Without an explicit status only upcoming and running sessions are listed.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.LiveSession, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	if filter.Status == "" && filter.From == nil {
		now := s.now().UTC()
		filter.From = &now
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list sessions")
	}
	if items == nil {
		items = []models.LiveSession{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.LiveSession, error) {
	return s.find(ctx, id)
}

// Create schedules a session for the acting mentor, optionally attached to a course they own.
func (s *SessionService) Create(ctx context.Context, actor models.Actor, req models.CreateSessionRequest) (*models.LiveSession, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid session payload")
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session must be scheduled in the future")
	}
	if req.CourseID != nil {
		if err := s.courses.CourseCheck(ctx, *req.CourseID, actor); err != nil {
			return nil, err
		}
	}
	maxParticipants := req.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = 100
	}
	session := &models.LiveSession{
		MentorID:        actor.UserID,
		CourseID:        req.CourseID,
		Title:           req.Title,
		Description:     req.Description,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		MeetingURL:      req.MeetingURL,
		Status:          models.SessionStatusScheduled,
		MaxParticipants: maxParticipants,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to create session")
	}
	s.syncCalendar(ctx, session)
	return session, nil
}

// Update merges changes into a session. The caller has already passed the ownership guard.
func (s *SessionService) Update(ctx context.Context, id string, req models.UpdateSessionRequest) (*models.LiveSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid session payload")
	}
	session, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusEnded || session.Status == models.SessionStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot edit a %s session", session.Status))
	}
	if req.Title != nil {
		session.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		session.Description = *req.Description
	}
	if req.ScheduledAt != nil {
		if !req.ScheduledAt.After(s.now()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "session must be scheduled in the future")
		}
		session.ScheduledAt = req.ScheduledAt.UTC()
		session.ReminderSent = false
	}
	if req.DurationMinutes != nil {
		session.DurationMinutes = *req.DurationMinutes
	}
	if req.MeetingURL != nil {
		session.MeetingURL = req.MeetingURL
	}
	if req.MaxParticipants != nil {
		session.MaxParticipants = *req.MaxParticipants
	}
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, sessionWriteError(err)
	}
	s.syncCalendar(ctx, session)
	return session, nil
}

// UpdateStatus moves a session along scheduled, live, ended and cancelled.
func (s *SessionService) UpdateStatus(ctx context.Context, id string, req models.UpdateSessionStatusRequest) (*models.LiveSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid session status")
	}
	session, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sessionTransitionAllowed(session.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move session from %s to %s", session.Status, req.Status))
	}
	session.Status = req.Status
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, sessionWriteError(err)
	}
	if req.Status == models.SessionStatusCancelled {
		s.dropCalendarEvent(ctx, session)
	}
	return session, nil
}

// Delete removes a session and its calendar event.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	session, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, session.ID, session.MentorID); err != nil {
		return sessionWriteError(err)
	}
	s.dropCalendarEvent(ctx, session)
	return nil
}

// State returns the durable questions and polls of a session for reconnecting clients.
func (s *SessionService) State(ctx context.Context, id string) (*models.SessionState, error) {
	session, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.ListQuestions(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load questions")
	}
	polls, err := s.repo.ListPolls(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load polls")
	}
	if questions == nil {
		questions = []models.SessionQuestion{}
	}
	if polls == nil {
		polls = []models.SessionPoll{}
	}
	return &models.SessionState{Session: *session, Questions: questions, Polls: polls}, nil
}

// Authorize lets a participant join an open session. Course sessions are limited to the mentor,
// admins and enrolled students.
func (s *SessionService) Authorize(ctx context.Context, sessionID string, actor models.Actor) error {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == models.SessionStatusEnded || session.Status == models.SessionStatusCancelled {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("session is %s", session.Status))
	}
	if session.CourseID == nil || session.MentorID == actor.UserID || actor.IsAdmin() {
		return nil
	}
	enrolled, err := s.enrollments.IsEnrolled(ctx, *session.CourseID, actor.UserID)
	if err != nil {
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to verify enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrEnrollmentRequired, "")
	}
	return nil
}

// Process persists an inbound relay message and returns the event to publish.
func (s *SessionService) Process(ctx context.Context, sessionID string, actor models.Actor, in realtime.Inbound) (*realtime.Event, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusEnded || session.Status == models.SessionStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("session is %s", session.Status))
	}
	host := session.MentorID == actor.UserID || actor.IsAdmin()

	var payload interface{}
	switch in.Type {
	case realtime.EventQuestion:
		var body models.AskQuestionPayload
		if err := s.decodePayload(in.Payload, &body); err != nil {
			return nil, err
		}
		q := &models.SessionQuestion{SessionID: session.ID, AskedBy: actor.UserID, Question: strings.TrimSpace(body.Question)}
		if err := s.repo.CreateQuestion(ctx, q); err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to save question")
		}
		payload = q
	case realtime.EventAnswer:
		if !host {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the host can answer questions")
		}
		var body models.AnswerQuestionPayload
		if err := s.decodePayload(in.Payload, &body); err != nil {
			return nil, err
		}
		q, err := s.repo.AnswerQuestion(ctx, session.ID, body.QuestionID, actor.UserID, strings.TrimSpace(body.Answer))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
			}
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to save answer")
		}
		payload = q
	case realtime.EventPoll:
		if !host {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the host can create polls")
		}
		var body models.CreatePollPayload
		if err := s.decodePayload(in.Payload, &body); err != nil {
			return nil, err
		}
		poll := &models.SessionPoll{SessionID: session.ID, CreatedBy: actor.UserID, Question: strings.TrimSpace(body.Question), Options: body.Options}
		if err := s.repo.CreatePoll(ctx, poll); err != nil {
			return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to save poll")
		}
		payload = poll
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported message type %q", in.Type))
	}

	evt, err := realtime.NewEvent(in.Type, session.ID, actor.UserID, actor.FullName, payload)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to encode event")
	}
	return &evt, nil
}

// SendReminders emails the host and attendees of sessions starting within the next hour. Each session is reminded once.
func (s *SessionService) SendReminders(ctx context.Context) error {
	now := s.now().UTC()
	due, err := s.repo.DueForReminder(ctx, now, now.Add(reminderWindow))
	if err != nil {
		return err
	}
	for _, item := range due {
		claimed, err := s.repo.MarkReminderSent(ctx, item.ID)
		if err != nil {
			s.logger.Warn("claim session reminder", zap.String("session_id", item.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		recipients := []models.Recipient{{UserID: item.MentorID, Email: item.MentorEmail, FullName: item.MentorName}}
		if item.CourseID != nil {
			attendees, err := s.repo.CourseAttendees(ctx, *item.CourseID)
			if err != nil {
				s.logger.Warn("load session attendees", zap.String("session_id", item.ID), zap.Error(err))
			}
			recipients = append(recipients, attendees...)
		}
		s.remind(ctx, item.LiveSession, recipients)
	}
	return nil
}

func (s *SessionService) remind(ctx context.Context, session models.LiveSession, recipients []models.Recipient) {
	if s.notifier == nil {
		return
	}
	subject := fmt.Sprintf("Starting soon: %s", session.Title)
	text := fmt.Sprintf("%s starts at %s.", session.Title, session.ScheduledAt.Format(time.RFC1123))
	if session.MeetingURL != nil {
		text += " Join: " + *session.MeetingURL
	}
	for _, r := range recipients {
		if err := s.notifier.NotifyRecipient(r, subject, text, string(models.NotificationSessionReminder)); err != nil {
			s.logger.Warn("queue session reminder", zap.String("session_id", session.ID), zap.String("user_id", r.UserID), zap.Error(err))
		}
		_ = s.notifier.Notify(ctx, Notice{
			UserID:  r.UserID,
			Type:    models.NotificationSessionReminder,
			Title:   subject,
			Message: text,
			Data:    map[string]interface{}{"sessionId": session.ID},
		})
	}
}

func (s *SessionService) decodePayload(raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "payload is required")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "payload is malformed")
	}
	if err := s.validator.Struct(dest); err != nil {
		return appErrors.FromValidation(err, "invalid payload")
	}
	return nil
}

func (s *SessionService) find(ctx context.Context, id string) (*models.LiveSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load session")
	}
	return session, nil
}

func (s *SessionService) syncCalendar(ctx context.Context, session *models.LiveSession) {
	ev := calendar.Event{
		Title:       session.Title,
		Description: session.Description,
		Start:       session.ScheduledAt,
		Duration:    time.Duration(session.DurationMinutes) * time.Minute,
	}
	if session.MeetingURL != nil {
		ev.Location = *session.MeetingURL
	}
	if session.CalendarEventID != nil && *session.CalendarEventID != "" {
		if err := s.calendar.UpdateEvent(ctx, *session.CalendarEventID, ev); err != nil {
			s.logger.Warn("update session calendar event", zap.String("session_id", session.ID), zap.Error(err))
		}
		return
	}
	eventID, err := s.calendar.CreateEvent(ctx, ev)
	if err != nil {
		s.logger.Warn("create session calendar event", zap.String("session_id", session.ID), zap.Error(err))
		return
	}
	if eventID == "" {
		return
	}
	if err := s.repo.SetCalendarEvent(ctx, session.ID, &eventID); err != nil {
		s.logger.Warn("store session calendar event", zap.String("session_id", session.ID), zap.Error(err))
		return
	}
	session.CalendarEventID = &eventID
}

func (s *SessionService) dropCalendarEvent(ctx context.Context, session *models.LiveSession) {
	if session.CalendarEventID == nil || *session.CalendarEventID == "" {
		return
	}
	if err := s.calendar.DeleteEvent(ctx, *session.CalendarEventID); err != nil {
		s.logger.Warn("delete session calendar event", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func sessionTransitionAllowed(from, to models.SessionStatus) bool {
	for _, allowed := range sessionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func sessionWriteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to save session")
}
