package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/jobs"
	"github.com/noah-isme/campus-connect-api/pkg/mail"
)

type mockProfileRepo struct {
	profiles map[string]*models.StudentProfile
}

func (m *mockProfileRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) Upsert(ctx context.Context, profile *models.StudentProfile) error {
	if m.profiles == nil {
		m.profiles = map[string]*models.StudentProfile{}
	}
	cp := *profile
	m.profiles[profile.UserID] = &cp
	return nil
}

func TestProfileServiceGetMissingReturnsEmpty(t *testing.T) {
	svc := NewProfileService(&mockProfileRepo{}, nil, zap.NewNop())

	profile, err := svc.Get(context.Background(), "student-9")
	require.NoError(t, err)
	assert.Equal(t, "student-9", profile.UserID)
	assert.NotNil(t, profile.Skills)
}

func TestProfileServiceUpsertNormalisesSkills(t *testing.T) {
	repo := &mockProfileRepo{}
	svc := NewProfileService(repo, nil, zap.NewNop())

	profile, err := svc.Upsert(context.Background(), studentActor, models.UpsertProfileRequest{
		Headline:  "  Backend developer ",
		Skills:    []string{"Go", " go ", "SQL", "  "},
		ResumeURL: strPtr("https://cdn.test/cv.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Backend developer", profile.Headline)
	assert.Equal(t, []string{"Go", "SQL"}, []string(repo.profiles[studentActor.UserID].Skills))

	var many []string
	for i := 0; i < 31; i++ {
		many = append(many, string(rune('a'+i%26))+string(rune('A'+i/26)))
	}
	_, err = svc.Upsert(context.Background(), studentActor, models.UpsertProfileRequest{Skills: many})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	_, err = svc.Upsert(context.Background(), studentActor, models.UpsertProfileRequest{ResumeURL: strPtr("not a url")})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))
}

type mockNotificationRepo struct {
	rows []models.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	n.ID = "n-" + string(rune('0'+len(m.rows)))
	m.rows = append(m.rows, *n)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var out []models.Notification
	for _, row := range m.rows {
		if row.UserID != filter.UserID || (filter.UnreadOnly && row.Read) {
			continue
		}
		out = append(out, row)
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows[i].Read = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var n int64
	for i := range m.rows {
		if m.rows[i].UserID == userID && !m.rows[i].Read {
			m.rows[i].Read = true
			n++
		}
	}
	return n, nil
}

type userDirectory map[string]*models.User

func (u userDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) TryEnqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotificationServiceNotifyQueuesEmail(t *testing.T) {
	repo := &mockNotificationRepo{}
	queue := &recordingQueue{}
	mailer := &recordingMailer{}
	users := userDirectory{studentActor.UserID: {ID: studentActor.UserID, Email: studentActor.Email, FullName: studentActor.FullName}}
	svc := NewNotificationService(repo, users, queue, mailer, zap.NewNop())
	ctx := context.Background()

	err := svc.Notify(ctx, Notice{
		UserID:  studentActor.UserID,
		Type:    models.NotificationApplicationStatus,
		Title:   "Application updated",
		Message: "You were shortlisted",
		Data:    map[string]interface{}{"jobId": "job-1"},
		Email:   true,
	})
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)
	assert.JSONEq(t, `{"jobId":"job-1"}`, string(repo.rows[0].Data))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, EmailJobType, queue.jobs[0].Type)

	require.NoError(t, svc.HandleJob(ctx, queue.jobs[0]))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, studentActor.Email, mailer.sent[0].ToEmail)
	assert.Equal(t, "Application updated", mailer.sent[0].Subject)

	assert.Error(t, svc.HandleJob(ctx, jobs.Job{Type: "other"}))
}

func TestNotificationServiceQueueFullDoesNotFailNotify(t *testing.T) {
	repo := &mockNotificationRepo{}
	queue := &recordingQueue{err: errors.New("queue full")}
	users := userDirectory{studentActor.UserID: {ID: studentActor.UserID, Email: studentActor.Email}}
	svc := NewNotificationService(repo, users, queue, nil, nil)

	require.NoError(t, svc.Notify(context.Background(), Notice{UserID: studentActor.UserID, Title: "t", Message: "m", Email: true}))
	assert.Len(t, repo.rows, 1)
}

func TestNotificationServiceReadFlow(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil, nil, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, Notice{UserID: studentActor.UserID, Title: "t", Message: "m"}))
	}

	items, page, err := svc.List(ctx, studentActor, true, 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, page.TotalCount)

	require.NoError(t, svc.MarkRead(ctx, items[0].ID, studentActor))
	assert.Equal(t, "NOT_FOUND", errCode(svc.MarkRead(ctx, items[0].ID, employerActor)))

	n, err := svc.MarkAllRead(ctx, studentActor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, _, err = svc.List(ctx, studentActor, true, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, items)
}
