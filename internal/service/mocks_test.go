package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	"github.com/noah-isme/campus-connect-api/pkg/calendar"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/payout"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

var (
	studentActor  = models.Actor{UserID: "student-1", Role: models.RoleStudent, FullName: "Asha Student", Email: "asha@example.com"}
	employerActor = models.Actor{UserID: "employer-1", Role: models.RoleEmployer, FullName: "Acme HR", Email: "hr@acme.test"}
	otherEmployer = models.Actor{UserID: "employer-2", Role: models.RoleEmployer, FullName: "Other HR"}
	mentorActor   = models.Actor{UserID: "mentor-1", Role: models.RoleMentor, FullName: "Mira Mentor"}
	adminActor    = models.Actor{UserID: "admin-1", Role: models.RoleAdmin, FullName: "Root"}
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

type mockJobRepo struct {
	mu      sync.Mutex
	jobs    map[string]*models.JobPosting
	seq     int
	lists   int
	listErr error
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: map[string]*models.JobPosting{}}
}

func (m *mockJobRepo) List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []models.JobPosting
	for _, job := range m.jobs {
		if filter.EmployerID != "" && job.EmployerID != filter.EmployerID {
			continue
		}
		if !filter.AnyStatus && filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && job.JobType != filter.JobType {
			continue
		}
		if filter.StipendMin != nil && (job.StipendMin == nil || *job.StipendMin < *filter.StipendMin) {
			continue
		}
		if filter.StipendMax != nil && (job.StipendMax == nil || *job.StipendMax > *filter.StipendMax) {
			continue
		}
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockJobRepo) FindByID(ctx context.Context, id string) (*models.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *job
	return &cp, nil
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.JobPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	job.ID = fmt.Sprintf("job-%d", m.seq)
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockJobRepo) Update(ctx context.Context, job *models.JobPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.jobs[job.ID]
	if !ok || existing.EmployerID != job.EmployerID {
		return sql.ErrNoRows
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, id string, status models.JobStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = status
	job.UpdatedAt = at
	return nil
}

func (m *mockJobRepo) Delete(ctx context.Context, id, employerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.EmployerID != employerID {
		return sql.ErrNoRows
	}
	delete(m.jobs, id)
	return nil
}

func (m *mockJobRepo) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, job := range m.jobs {
		if job.Status == models.JobStatusPublished && !job.ApplicationDeadline.After(now) {
			job.Status = models.JobStatusClosed
			n++
		}
	}
	return n, nil
}

func (m *mockJobRepo) put(job models.JobPosting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := job
	m.jobs[job.ID] = &cp
}

type mockApplicationRepo struct {
	mu      sync.Mutex
	apps    map[string]*models.JobApplication
	history map[string][]models.ApplicationStatusHistory
	jobs    *mockJobRepo
	seq     int
}

func newMockApplicationRepo(jobs *mockJobRepo) *mockApplicationRepo {
	return &mockApplicationRepo{apps: map[string]*models.JobApplication{}, history: map[string][]models.ApplicationStatusHistory{}, jobs: jobs}
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *models.JobApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.apps {
		if existing.JobPostingID == app.JobPostingID && existing.ApplicantID == app.ApplicantID {
			return &repository.DuplicateError{Constraint: "job_applications_job_posting_id_applicant_id_key"}
		}
	}
	m.seq++
	app.ID = fmt.Sprintf("00000000-0000-4000-8000-%012d", m.seq)
	app.Status = models.ApplicationStatusPending
	app.AppliedAt = time.Now().UTC()
	app.UpdatedAt = app.AppliedAt
	cp := *app
	m.apps[app.ID] = &cp
	m.record(app.ID, nil, models.ApplicationStatusPending, app.ApplicantID, nil)
	return nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.JobApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *app
	return &cp, nil
}

func (m *mockApplicationRepo) FindForJob(ctx context.Context, id, jobID string) (*models.JobApplication, error) {
	app, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.JobPostingID != jobID {
		return nil, sql.ErrNoRows
	}
	return app, nil
}

func (m *mockApplicationRepo) ListByJob(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicantView, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ApplicantView
	for _, app := range m.apps {
		if app.JobPostingID != filter.JobPostingID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, models.ApplicantView{JobApplication: *app, ApplicantName: app.ApplicantID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockApplicationRepo) ListByApplicant(ctx context.Context, filter models.ApplicationFilter) ([]models.MyApplicationView, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MyApplicationView
	for _, app := range m.apps {
		if app.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		view := models.MyApplicationView{JobApplication: *app}
		if job, ok := m.jobs.jobs[app.JobPostingID]; ok {
			view.JobTitle = job.Title
			view.CompanyName = job.CompanyName
		}
		out = append(out, view)
	}
	return out, len(out), nil
}

func (m *mockApplicationRepo) ListHistory(ctx context.Context, applicationID string) ([]models.ApplicationStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ApplicationStatusHistory(nil), m.history[applicationID]...), nil
}

func (m *mockApplicationRepo) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus, changedBy string, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return sql.ErrNoRows
	}
	if app.Status != from {
		return repository.ErrStaleStatus
	}
	app.Status = to
	if notes != nil {
		app.Notes = notes
	}
	m.record(id, &from, to, changedBy, notes)
	return nil
}

func (m *mockApplicationRepo) ScheduleInterview(ctx context.Context, id string, from models.ApplicationStatus, req models.ScheduleInterviewRequest, changedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return sql.ErrNoRows
	}
	if app.Status != from {
		return repository.ErrStaleStatus
	}
	at := req.ScheduledAt
	mode := req.Mode
	duration := req.DurationMinutes
	app.Status = models.ApplicationStatusInterviewScheduled
	app.InterviewAt = &at
	app.InterviewMode = &mode
	app.InterviewDurationMinutes = &duration
	app.InterviewLink = req.MeetingLink
	m.record(id, &from, app.Status, changedBy, req.Notes)
	return nil
}

func (m *mockApplicationRepo) BulkUpdateStatus(ctx context.Context, jobID, employerID string, ids []string, status models.ApplicationStatus, notes *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs.jobs[jobID]
	if !ok || job.EmployerID != employerID {
		return 0, nil
	}
	updated := 0
	for _, id := range ids {
		app, ok := m.apps[id]
		if !ok || app.JobPostingID != jobID || app.Status == models.ApplicationStatusWithdrawn {
			continue
		}
		from := app.Status
		app.Status = status
		m.record(id, &from, status, employerID, notes)
		updated++
	}
	return updated, nil
}

func (m *mockApplicationRepo) record(id string, from *models.ApplicationStatus, to models.ApplicationStatus, by string, notes *string) {
	m.history[id] = append(m.history[id], models.ApplicationStatusHistory{
		ID:            fmt.Sprintf("h-%s-%d", id, len(m.history[id])+1),
		ApplicationID: id,
		FromStatus:    from,
		ToStatus:      to,
		ChangedBy:     by,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
	})
}

type recordingNotifier struct {
	mu         sync.Mutex
	notices    []Notice
	recipients []models.Recipient
}

func (r *recordingNotifier) Notify(ctx context.Context, notice Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
	return nil
}

func (r *recordingNotifier) NotifyRecipient(recipient models.Recipient, subject, text, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipients = append(r.recipients, recipient)
	return nil
}

type recordingCalendar struct {
	created []calendar.Event
	updated []string
	deleted []string
	err     error
}

func (c *recordingCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.created = append(c.created, ev)
	return fmt.Sprintf("evt-%d", len(c.created)), nil
}

func (c *recordingCalendar) UpdateEvent(ctx context.Context, eventID string, ev calendar.Event) error {
	c.updated = append(c.updated, eventID)
	return c.err
}

func (c *recordingCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	c.deleted = append(c.deleted, eventID)
	return c.err
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

type mockAmbassadorRepo struct {
	byUser     map[string]*models.Ambassador
	referrals  []models.Referral
	createErrs []error
	attempts   []string
	converted  map[string]bool
}

func newMockAmbassadorRepo() *mockAmbassadorRepo {
	return &mockAmbassadorRepo{byUser: map[string]*models.Ambassador{}, converted: map[string]bool{}}
}

func (m *mockAmbassadorRepo) Create(ctx context.Context, amb *models.Ambassador) error {
	m.attempts = append(m.attempts, amb.ReferralCode)
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := m.byUser[amb.UserID]; ok {
		return &repository.DuplicateError{Constraint: repository.ConstraintAmbassadorUser}
	}
	amb.ID = "amb-" + amb.UserID
	cp := *amb
	m.byUser[amb.UserID] = &cp
	return nil
}

func (m *mockAmbassadorRepo) FindByUserID(ctx context.Context, userID string) (*models.Ambassador, error) {
	amb, ok := m.byUser[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *amb
	return &cp, nil
}

func (m *mockAmbassadorRepo) FindByCode(ctx context.Context, code string) (*models.Ambassador, error) {
	for _, amb := range m.byUser {
		if amb.ReferralCode == code {
			cp := *amb
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAmbassadorRepo) UpdateCollege(ctx context.Context, userID, college string) error {
	amb, ok := m.byUser[userID]
	if !ok {
		return sql.ErrNoRows
	}
	amb.College = college
	return nil
}

func (m *mockAmbassadorRepo) OwnerName(ctx context.Context, ambassadorID string) (string, error) {
	return "Owner " + strings.TrimPrefix(ambassadorID, "amb-"), nil
}

func (m *mockAmbassadorRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return nil, nil
}

func (m *mockAmbassadorRepo) ListReferrals(ctx context.Context, ambassadorID string, page, size int) ([]models.ReferralView, int, error) {
	var out []models.ReferralView
	for _, ref := range m.referrals {
		if ref.AmbassadorID == ambassadorID {
			out = append(out, models.ReferralView{Referral: ref})
		}
	}
	return out, len(out), nil
}

func (m *mockAmbassadorRepo) CreateReferral(ctx context.Context, ref *models.Referral) error {
	for _, existing := range m.referrals {
		if existing.ReferredUserID == ref.ReferredUserID {
			return &repository.DuplicateError{Constraint: "referrals_referred_user_id_key"}
		}
	}
	ref.ID = fmt.Sprintf("ref-%d", len(m.referrals)+1)
	ref.Status = models.ReferralStatusRegistered
	m.referrals = append(m.referrals, *ref)
	if amb, ok := m.byUser[strings.TrimPrefix(ref.AmbassadorID, "amb-")]; ok {
		amb.TotalReferrals++
	}
	return nil
}

func (m *mockAmbassadorRepo) ConvertReferral(ctx context.Context, referredUserID string, points int) (bool, error) {
	for i, ref := range m.referrals {
		if ref.ReferredUserID != referredUserID || ref.Status != models.ReferralStatusRegistered {
			continue
		}
		m.referrals[i].Status = models.ReferralStatusConverted
		m.referrals[i].PointsAwarded = points
		if amb, ok := m.byUser[strings.TrimPrefix(ref.AmbassadorID, "amb-")]; ok {
			amb.SuccessfulReferrals++
			amb.TotalPoints += points
		}
		m.converted[referredUserID] = true
		return true, nil
	}
	return false, nil
}

type mockPayoutRepo struct {
	payouts   map[string]*models.PayoutRequest
	refunded  map[string]int
	createErr error
	seq       int
}

func newMockPayoutRepo() *mockPayoutRepo {
	return &mockPayoutRepo{payouts: map[string]*models.PayoutRequest{}, refunded: map[string]int{}}
}

func (m *mockPayoutRepo) Create(ctx context.Context, p *models.PayoutRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	p.ID = fmt.Sprintf("payout-%d", m.seq)
	p.Status = models.PayoutStatusPending
	cp := *p
	m.payouts[p.ID] = &cp
	return nil
}

func (m *mockPayoutRepo) FindByID(ctx context.Context, id string) (*models.PayoutRequest, error) {
	p, ok := m.payouts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockPayoutRepo) List(ctx context.Context, filter models.PayoutFilter) ([]models.PayoutRequest, int, error) {
	var out []models.PayoutRequest
	for _, p := range m.payouts {
		if filter.AmbassadorID != "" && p.AmbassadorID != filter.AmbassadorID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockPayoutRepo) transition(id string, from, to models.PayoutStatus) (*models.PayoutRequest, error) {
	p, ok := m.payouts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if p.Status != from {
		return nil, repository.ErrStaleStatus
	}
	p.Status = to
	return p, nil
}

func (m *mockPayoutRepo) MarkApproved(ctx context.Context, id, reviewerID string, notes *string) error {
	p, err := m.transition(id, models.PayoutStatusPending, models.PayoutStatusApproved)
	if err != nil {
		return err
	}
	p.ReviewedBy = &reviewerID
	p.ReviewNotes = notes
	return nil
}

func (m *mockPayoutRepo) MarkPaid(ctx context.Context, id, reference string, at time.Time) error {
	p, err := m.transition(id, models.PayoutStatusApproved, models.PayoutStatusPaid)
	if err != nil {
		return err
	}
	p.ExternalReference = &reference
	p.ProcessedAt = &at
	return nil
}

func (m *mockPayoutRepo) MarkRejected(ctx context.Context, id, reviewerID string, notes *string) error {
	p, err := m.transition(id, models.PayoutStatusPending, models.PayoutStatusRejected)
	if errors.Is(err, repository.ErrStaleStatus) {
		p, err = m.transition(id, models.PayoutStatusApproved, models.PayoutStatusRejected)
	}
	if err != nil {
		return err
	}
	m.refunded[p.AmbassadorID] += p.PointsRedeemed
	p.ReviewedBy = &reviewerID
	p.ReviewNotes = notes
	return nil
}

type stubGateway struct {
	requests []payout.TransferRequest
	err      error
}

func (g *stubGateway) Transfer(ctx context.Context, req payout.TransferRequest) (*payout.TransferResult, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &payout.TransferResult{TransferID: "trf-" + req.Reference, Status: "processed"}, nil
}

type memoryObjectStore struct {
	presigned []string
	limits    []storage.UploadLimits
	objects   map[string][]byte
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}}
}

func (s *memoryObjectStore) PresignUpload(ctx context.Context, key string, limits storage.UploadLimits, expiry time.Duration) (*storage.PresignedURL, error) {
	s.presigned = append(s.presigned, key)
	s.limits = append(s.limits, limits)
	return &storage.PresignedURL{URL: "https://upload.test/" + key, Method: "PUT", Headers: map[string]string{"Content-Type": limits.ContentType}, ExpiresAt: time.Now().Add(expiry)}, nil
}

func (s *memoryObjectStore) PresignDownload(ctx context.Context, key string, expiry time.Duration) (*storage.PresignedURL, error) {
	s.presigned = append(s.presigned, key)
	return &storage.PresignedURL{URL: "https://download.test/" + key, Method: "GET", ExpiresAt: time.Now().Add(expiry)}, nil
}

func (s *memoryObjectStore) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memoryObjectStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *memoryObjectStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (s *memoryObjectStore) calls() int {
	return len(s.presigned) + len(s.objects)
}

// ownedCourses implements CourseCheck over a course to mentor map.
type ownedCourses map[string]string

func (o ownedCourses) CourseCheck(ctx context.Context, courseID string, actor models.Actor) error {
	mentor, ok := o[courseID]
	if !ok || (mentor != actor.UserID && !actor.IsAdmin()) {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found or unauthorized")
	}
	return nil
}

type enrolledSet map[string]bool

func (e enrolledSet) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	return e[courseID+"/"+studentID], nil
}

func errCode(err error) string {
	if err == nil {
		return ""
	}
	return appErrors.FromError(err).Code
}

type mockCourseRepo struct {
	courses    map[string]*models.Course
	slugs      map[string]bool
	createErrs []error
	creates    int
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: map[string]*models.Course{}, slugs: map[string]bool{}}
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range m.courses {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockCourseRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return m.slugs[slug], nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	m.creates++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if course.ID == "" {
		course.ID = fmt.Sprintf("course-%d", len(m.courses)+1)
	}
	m.slugs[course.Slug] = true
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id, mentorID string) error {
	c, ok := m.courses[id]
	if !ok || c.MentorID != mentorID {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

// mockChapterRepo enforces the (course_id, order_index) uniqueness of the real table.
type mockChapterRepo struct {
	chapters []*models.Chapter
}

func (m *mockChapterRepo) FindInCourse(ctx context.Context, id, courseID string) (*models.Chapter, error) {
	for _, ch := range m.chapters {
		if ch.ID == id && ch.CourseID == courseID {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockChapterRepo) ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Chapter, error) {
	var out []models.Chapter
	for _, ch := range m.chapters {
		if ch.CourseID != courseID || (publishedOnly && !ch.IsPublished) {
			continue
		}
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *mockChapterRepo) NextOrderIndex(ctx context.Context, courseID string) (int, error) {
	next := 0
	for _, ch := range m.chapters {
		if ch.CourseID == courseID && ch.OrderIndex >= next {
			next = ch.OrderIndex + 1
		}
	}
	return next, nil
}

func (m *mockChapterRepo) taken(courseID, exceptID string, index int) bool {
	for _, ch := range m.chapters {
		if ch.CourseID == courseID && ch.ID != exceptID && ch.OrderIndex == index {
			return true
		}
	}
	return false
}

func (m *mockChapterRepo) Create(ctx context.Context, chapter *models.Chapter) error {
	if m.taken(chapter.CourseID, "", chapter.OrderIndex) {
		return &repository.DuplicateError{Constraint: "course_chapters_course_order_key"}
	}
	if chapter.ID == "" {
		chapter.ID = fmt.Sprintf("chapter-%d", len(m.chapters)+1)
	}
	cp := *chapter
	m.chapters = append(m.chapters, &cp)
	return nil
}

func (m *mockChapterRepo) Update(ctx context.Context, chapter *models.Chapter) error {
	if m.taken(chapter.CourseID, chapter.ID, chapter.OrderIndex) {
		return &repository.DuplicateError{Constraint: "course_chapters_course_order_key"}
	}
	for i, ch := range m.chapters {
		if ch.ID == chapter.ID && ch.CourseID == chapter.CourseID {
			cp := *chapter
			m.chapters[i] = &cp
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockChapterRepo) Delete(ctx context.Context, id, courseID string) error {
	for i, ch := range m.chapters {
		if ch.ID == id && ch.CourseID == courseID {
			m.chapters = append(m.chapters[:i], m.chapters[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockChapterRepo) Reorder(ctx context.Context, courseID string, ids []string) error {
	for _, id := range ids {
		if _, err := m.FindInCourse(ctx, id, courseID); err != nil {
			return err
		}
	}
	for pos, id := range ids {
		for _, ch := range m.chapters {
			if ch.ID == id {
				ch.OrderIndex = pos
			}
		}
	}
	return nil
}

// mockContentRepo enforces the (chapter_id, order_index) uniqueness of the real table.
type mockContentRepo struct {
	items []*models.Content
}

func (m *mockContentRepo) FindInChapter(ctx context.Context, id, chapterID string) (*models.Content, error) {
	for _, item := range m.items {
		if item.ID == id && item.ChapterID == chapterID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) ListByChapter(ctx context.Context, chapterID string, publishedOnly bool) ([]models.Content, error) {
	return m.ListByChapters(ctx, []string{chapterID}, publishedOnly)
}

func (m *mockContentRepo) ListByChapters(ctx context.Context, chapterIDs []string, publishedOnly bool) ([]models.Content, error) {
	wanted := make(map[string]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		wanted[id] = true
	}
	var out []models.Content
	for _, item := range m.items {
		if !wanted[item.ChapterID] || (publishedOnly && !item.IsPublished) {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChapterID != out[j].ChapterID {
			return out[i].ChapterID < out[j].ChapterID
		}
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out, nil
}

func (m *mockContentRepo) NextOrderIndex(ctx context.Context, chapterID string) (int, error) {
	next := 0
	for _, item := range m.items {
		if item.ChapterID == chapterID && item.OrderIndex >= next {
			next = item.OrderIndex + 1
		}
	}
	return next, nil
}

func (m *mockContentRepo) taken(chapterID, exceptID string, index int) bool {
	for _, item := range m.items {
		if item.ChapterID == chapterID && item.ID != exceptID && item.OrderIndex == index {
			return true
		}
	}
	return false
}

func (m *mockContentRepo) Create(ctx context.Context, content *models.Content) error {
	if m.taken(content.ChapterID, "", content.OrderIndex) {
		return &repository.DuplicateError{Constraint: "course_content_chapter_order_key"}
	}
	if content.ID == "" {
		content.ID = fmt.Sprintf("content-%d", len(m.items)+1)
	}
	cp := *content
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockContentRepo) Update(ctx context.Context, content *models.Content) error {
	if m.taken(content.ChapterID, content.ID, content.OrderIndex) {
		return &repository.DuplicateError{Constraint: "course_content_chapter_order_key"}
	}
	for i, item := range m.items {
		if item.ID == content.ID && item.ChapterID == content.ChapterID {
			cp := *content
			m.items[i] = &cp
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockContentRepo) Delete(ctx context.Context, id, chapterID string) error {
	for i, item := range m.items {
		if item.ID == id && item.ChapterID == chapterID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockResourceRepo struct {
	resources map[string]*models.Resource
	downloads map[string]int
}

func newMockResourceRepo() *mockResourceRepo {
	return &mockResourceRepo{resources: map[string]*models.Resource{}, downloads: map[string]int{}}
}

func (m *mockResourceRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Resource, error) {
	var out []models.Resource
	for _, r := range m.resources {
		if r.CourseID == courseID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockResourceRepo) FindInCourse(ctx context.Context, id, courseID string) (*models.Resource, error) {
	r, ok := m.resources[id]
	if !ok || r.CourseID != courseID {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockResourceRepo) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = fmt.Sprintf("resource-%d", len(m.resources)+1)
	}
	cp := *resource
	m.resources[resource.ID] = &cp
	return nil
}

func (m *mockResourceRepo) Delete(ctx context.Context, id, courseID string) error {
	r, ok := m.resources[id]
	if !ok || r.CourseID != courseID {
		return sql.ErrNoRows
	}
	delete(m.resources, id)
	return nil
}

func (m *mockResourceRepo) IncrementDownloads(ctx context.Context, id string) error {
	m.downloads[id]++
	return nil
}
