package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/jobs"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
	"github.com/noah-isme/campus-connect-api/pkg/mail"
)

// EmailJobType identifies queued transactional email jobs.
const EmailJobType = "email"

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// Notice is one notification to deliver.
type Notice struct {
	UserID  string
	Type    models.NotificationType
	Title   string
	Message string
	Data    map[string]interface{}
	Email   bool
}

// NotificationService stores in-app notifications and queues email copies.
type NotificationService struct {
	repo   notificationRepository
	users  userLookup
	queue  jobEnqueuer
	mailer mail.Mailer
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService. queue and mailer may be nil, which disables email.
func NewNotificationService(repo notificationRepository, users userLookup, queue jobEnqueuer, mailer mail.Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, users: users, queue: queue, mailer: mailer, logger: logger}
}

// SetQueue attaches the email queue once it has been built around HandleJob.
func (s *NotificationService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Notify stores the notice and, when requested, queues an email. Failures are logged and returned for callers that care.
func (s *NotificationService) Notify(ctx context.Context, notice Notice) error {
	if s == nil || notice.UserID == "" {
		return nil
	}
	n := &models.Notification{
		UserID:  notice.UserID,
		Type:    notice.Type,
		Title:   notice.Title,
		Message: notice.Message,
	}
	if len(notice.Data) > 0 {
		raw, err := json.Marshal(notice.Data)
		if err != nil {
			return fmt.Errorf("marshal notification data: %w", err)
		}
		n.Data = types.JSONText(raw)
	}
	if err := s.repo.Create(ctx, n); err != nil {
		logger.For(ctx, s.logger).Warn("store notification", zap.String("user_id", notice.UserID), zap.Error(err))
		return err
	}
	if notice.Email {
		s.queueEmail(ctx, notice)
	}
	return nil
}

// NotifyRecipient sends an email to a known recipient without storing an in-app notification.
func (s *NotificationService) NotifyRecipient(recipient models.Recipient, subject, text, category string) error {
	if s == nil || s.queue == nil || recipient.Email == "" {
		return nil
	}
	return s.queue.TryEnqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: EmailJobType,
		Payload: mail.Message{
			ToEmail:  recipient.Email,
			ToName:   recipient.FullName,
			Subject:  subject,
			Text:     text,
			Category: category,
		},
		Enqueued: time.Now().UTC(),
	})
}

func (s *NotificationService) queueEmail(ctx context.Context, notice Notice) {
	if s.queue == nil || s.users == nil {
		return
	}
	user, err := s.users.FindByID(ctx, notice.UserID)
	if err != nil {
		s.logger.Warn("notification recipient lookup", zap.String("user_id", notice.UserID), zap.Error(err))
		return
	}
	recipient := models.Recipient{UserID: user.ID, Email: user.Email, FullName: user.FullName}
	if err := s.NotifyRecipient(recipient, notice.Title, notice.Message, string(notice.Type)); err != nil {
		s.logger.Warn("queue notification email", zap.String("user_id", notice.UserID), zap.Error(err))
	}
}

// HandleJob delivers a queued email. It is the jobs.Queue handler.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != EmailJobType {
		return jobs.Permanent(fmt.Errorf("unknown job type %q", job.Type))
	}
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		return jobs.Permanent(fmt.Errorf("email job %s: unexpected payload %T", job.ID, job.Payload))
	}
	if s.mailer == nil {
		return nil
	}
	err := s.mailer.Send(ctx, msg)
	if errors.Is(err, mail.ErrRejected) {
		return jobs.Permanent(err)
	}
	return err
}

// List returns the caller's notifications newest first.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool, page, size int) ([]models.Notification, *models.Pagination, error) {
	page, size = models.NormalizePage(page, size)
	items, total, err := s.repo.List(ctx, models.NotificationFilter{UserID: actor.UserID, UnreadOnly: unreadOnly, Page: page, PageSize: size})
	if err != nil {
		return nil, nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor models.Actor) error {
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update notification")
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller as read and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to update notifications")
	}
	return n, nil
}
