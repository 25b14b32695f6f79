package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/realtime"
)

const sessionCourseID = "22222222-2222-4222-8222-222222222222"

type mockSessionRepo struct {
	sessions  map[string]*models.LiveSession
	questions []models.SessionQuestion
	polls     []models.SessionPoll
	attendees []models.Recipient
	mentors   map[string]models.Recipient
	seq       int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*models.LiveSession{}, mentors: map[string]models.Recipient{}}
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.LiveSession, int, error) {
	var out []models.LiveSession
	for _, s := range m.sessions {
		if filter.From != nil && s.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.LiveSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.LiveSession) error {
	m.seq++
	session.ID = fmt.Sprintf("session-%d", m.seq)
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.LiveSession) error {
	existing, ok := m.sessions[session.ID]
	if !ok || existing.MentorID != session.MentorID {
		return sql.ErrNoRows
	}
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *mockSessionRepo) SetCalendarEvent(ctx context.Context, id string, eventID *string) error {
	s, ok := m.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.CalendarEventID = eventID
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id, mentorID string) error {
	s, ok := m.sessions[id]
	if !ok || s.MentorID != mentorID {
		return sql.ErrNoRows
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DueForReminder(ctx context.Context, from, until time.Time) ([]models.SessionReminder, error) {
	var out []models.SessionReminder
	for _, s := range m.sessions {
		if s.Status != models.SessionStatusScheduled || s.ReminderSent {
			continue
		}
		if s.ScheduledAt.Before(from) || s.ScheduledAt.After(until) {
			continue
		}
		mentor := m.mentors[s.MentorID]
		out = append(out, models.SessionReminder{LiveSession: *s, MentorEmail: mentor.Email, MentorName: mentor.FullName})
	}
	return out, nil
}

func (m *mockSessionRepo) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || s.ReminderSent {
		return false, nil
	}
	s.ReminderSent = true
	return true, nil
}

func (m *mockSessionRepo) CourseAttendees(ctx context.Context, courseID string) ([]models.Recipient, error) {
	return m.attendees, nil
}

func (m *mockSessionRepo) CreateQuestion(ctx context.Context, q *models.SessionQuestion) error {
	q.ID = fmt.Sprintf("33333333-3333-4333-8333-%012d", len(m.questions)+1)
	q.CreatedAt = time.Now().UTC()
	m.questions = append(m.questions, *q)
	return nil
}

func (m *mockSessionRepo) AnswerQuestion(ctx context.Context, sessionID, questionID, answeredBy, answer string) (*models.SessionQuestion, error) {
	for i := range m.questions {
		q := &m.questions[i]
		if q.ID == questionID && q.SessionID == sessionID {
			now := time.Now().UTC()
			q.Answer = &answer
			q.AnsweredBy = &answeredBy
			q.AnsweredAt = &now
			cp := *q
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) ListQuestions(ctx context.Context, sessionID string) ([]models.SessionQuestion, error) {
	var out []models.SessionQuestion
	for _, q := range m.questions {
		if q.SessionID == sessionID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) CreatePoll(ctx context.Context, poll *models.SessionPoll) error {
	poll.ID = fmt.Sprintf("poll-%d", len(m.polls)+1)
	m.polls = append(m.polls, *poll)
	return nil
}

func (m *mockSessionRepo) ListPolls(ctx context.Context, sessionID string) ([]models.SessionPoll, error) {
	var out []models.SessionPoll
	for _, p := range m.polls {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

type sessionFixture struct {
	repo     *mockSessionRepo
	calendar *recordingCalendar
	notifier *recordingNotifier
	svc      *SessionService
}

func newSessionFixture() *sessionFixture {
	repo := newMockSessionRepo()
	cal := &recordingCalendar{}
	notifier := &recordingNotifier{}
	courses := ownedCourses{sessionCourseID: mentorActor.UserID}
	enrolled := enrolledSet{sessionCourseID + "/" + studentActor.UserID: true}
	svc := NewSessionService(repo, courses, enrolled, cal, notifier, nil, zap.NewNop())
	return &sessionFixture{repo: repo, calendar: cal, notifier: notifier, svc: svc}
}

func (f *sessionFixture) create(t *testing.T, courseID *string) *models.LiveSession {
	t.Helper()
	session, err := f.svc.Create(context.Background(), mentorActor, models.CreateSessionRequest{
		CourseID:        courseID,
		Title:           "Office hours",
		ScheduledAt:     time.Now().Add(30 * time.Minute),
		DurationMinutes: 60,
		MeetingURL:      strPtr("https://meet.example.com/office"),
	})
	require.NoError(t, err)
	return session
}

func inbound(t *testing.T, typ realtime.EventType, payload interface{}) realtime.Inbound {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return realtime.Inbound{Type: typ, Payload: raw}
}

func TestSessionServiceCreateSyncsCalendar(t *testing.T) {
	f := newSessionFixture()
	courseID := sessionCourseID
	session := f.create(t, &courseID)

	assert.Equal(t, models.SessionStatusScheduled, session.Status)
	assert.Equal(t, 100, session.MaxParticipants)
	require.NotNil(t, session.CalendarEventID)
	assert.Equal(t, "evt-1", *f.repo.sessions[session.ID].CalendarEventID)

	other := models.Actor{UserID: "mentor-2", Role: models.RoleMentor}
	_, err := f.svc.Create(context.Background(), other, models.CreateSessionRequest{
		CourseID: &courseID, Title: "Not mine", ScheduledAt: time.Now().Add(time.Hour), DurationMinutes: 30,
	})
	assert.Equal(t, "NOT_FOUND", errCode(err))
}

func TestSessionServiceUpdateAndStatus(t *testing.T) {
	f := newSessionFixture()
	session := f.create(t, nil)
	ctx := context.Background()
	f.repo.sessions[session.ID].ReminderSent = true

	later := time.Now().Add(3 * time.Hour)
	updated, err := f.svc.Update(ctx, session.ID, models.UpdateSessionRequest{ScheduledAt: &later})
	require.NoError(t, err)
	assert.False(t, updated.ReminderSent)
	assert.Equal(t, []string{"evt-1"}, f.calendar.updated)

	_, err = f.svc.UpdateStatus(ctx, session.ID, models.UpdateSessionStatusRequest{Status: models.SessionStatusEnded})
	assert.Equal(t, "INVALID_STATUS_TRANSITION", errCode(err))

	_, err = f.svc.UpdateStatus(ctx, session.ID, models.UpdateSessionStatusRequest{Status: models.SessionStatusLive})
	require.NoError(t, err)
	ended, err := f.svc.UpdateStatus(ctx, session.ID, models.UpdateSessionStatusRequest{Status: models.SessionStatusEnded})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, ended.Status)

	_, err = f.svc.Update(ctx, session.ID, models.UpdateSessionRequest{Title: strPtr("Too late")})
	assert.Equal(t, "INVALID_STATUS_TRANSITION", errCode(err))
}

func TestSessionServiceCancelAndDeleteDropCalendarEvent(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	first := f.create(t, nil)
	second := f.create(t, nil)

	_, err := f.svc.UpdateStatus(ctx, first.ID, models.UpdateSessionStatusRequest{Status: models.SessionStatusCancelled})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, second.ID))

	assert.Equal(t, []string{"evt-1", "evt-2"}, f.calendar.deleted)
	assert.Equal(t, "NOT_FOUND", errCode(f.svc.Delete(ctx, second.ID)))
}

func TestSessionServiceAuthorize(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	courseID := sessionCourseID
	courseSession := f.create(t, &courseID)
	openSession := f.create(t, nil)
	outsider := models.Actor{UserID: "student-9", Role: models.RoleStudent}

	assert.NoError(t, f.svc.Authorize(ctx, courseSession.ID, studentActor))
	assert.NoError(t, f.svc.Authorize(ctx, courseSession.ID, mentorActor))
	assert.NoError(t, f.svc.Authorize(ctx, courseSession.ID, adminActor))
	assert.Equal(t, "ENROLLMENT_REQUIRED", errCode(f.svc.Authorize(ctx, courseSession.ID, outsider)))
	assert.NoError(t, f.svc.Authorize(ctx, openSession.ID, outsider))
	assert.Equal(t, "NOT_FOUND", errCode(f.svc.Authorize(ctx, "missing", outsider)))

	f.repo.sessions[openSession.ID].Status = models.SessionStatusEnded
	assert.Equal(t, "INVALID_STATUS_TRANSITION", errCode(f.svc.Authorize(ctx, openSession.ID, outsider)))
}

func TestSessionServiceProcessPersistsBeforeEvent(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	session := f.create(t, nil)

	evt, err := f.svc.Process(ctx, session.ID, studentActor, inbound(t, realtime.EventQuestion, models.AskQuestionPayload{Question: "How do channels work?"}))
	require.NoError(t, err)
	require.Len(t, f.repo.questions, 1)
	assert.Equal(t, realtime.EventQuestion, evt.Type)
	assert.Equal(t, studentActor.FullName, evt.UserName)
	questionID := f.repo.questions[0].ID

	_, err = f.svc.Process(ctx, session.ID, studentActor, inbound(t, realtime.EventAnswer, models.AnswerQuestionPayload{QuestionID: questionID, Answer: "self answer"}))
	assert.Equal(t, "FORBIDDEN", errCode(err))

	evt, err = f.svc.Process(ctx, session.ID, mentorActor, inbound(t, realtime.EventAnswer, models.AnswerQuestionPayload{QuestionID: questionID, Answer: "They synchronise goroutines."}))
	require.NoError(t, err)
	var answered models.SessionQuestion
	require.NoError(t, json.Unmarshal(evt.Payload, &answered))
	require.NotNil(t, answered.Answer)
	assert.Equal(t, "They synchronise goroutines.", *answered.Answer)

	_, err = f.svc.Process(ctx, session.ID, mentorActor, inbound(t, realtime.EventAnswer, models.AnswerQuestionPayload{QuestionID: "44444444-4444-4444-8444-444444444444", Answer: "?"}))
	assert.Equal(t, "NOT_FOUND", errCode(err))

	_, err = f.svc.Process(ctx, session.ID, studentActor, inbound(t, realtime.EventPoll, models.CreatePollPayload{Question: "Pace?", Options: []string{"slow", "fast"}}))
	assert.Equal(t, "FORBIDDEN", errCode(err))

	_, err = f.svc.Process(ctx, session.ID, mentorActor, inbound(t, realtime.EventPoll, models.CreatePollPayload{Question: "Pace?", Options: []string{"only"}}))
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))
	assert.Empty(t, f.repo.polls)

	_, err = f.svc.Process(ctx, session.ID, mentorActor, inbound(t, realtime.EventPoll, models.CreatePollPayload{Question: "Pace?", Options: []string{"slow", "fast"}}))
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, session.ID, studentActor, realtime.Inbound{Type: "shout"})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	state, err := f.svc.State(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, state.Questions, 1)
	assert.Len(t, state.Polls, 1)
}

func TestSessionServiceSendRemindersOnce(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	courseID := sessionCourseID
	f.repo.mentors[mentorActor.UserID] = models.Recipient{UserID: mentorActor.UserID, Email: "mira@example.com", FullName: mentorActor.FullName}
	f.repo.attendees = []models.Recipient{{UserID: studentActor.UserID, Email: studentActor.Email, FullName: studentActor.FullName}}
	f.create(t, &courseID)

	require.NoError(t, f.svc.SendReminders(ctx))
	require.Len(t, f.notifier.recipients, 2)
	assert.Equal(t, "mira@example.com", f.notifier.recipients[0].Email)
	assert.Len(t, f.notifier.notices, 2)

	require.NoError(t, f.svc.SendReminders(ctx))
	assert.Len(t, f.notifier.recipients, 2)
}
