package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// NotificationRepository stores in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, type, title, message, data, read, created_at)
        VALUES (:id, :user_id, :type, :title, :message, :data, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns a user's notifications, newest first, and the unread-aware total.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	where := `user_id = $1`
	if filter.UnreadOnly {
		where += ` AND read = FALSE`
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)
	var items []models.Notification
	query := fmt.Sprintf(`SELECT id, user_id, type, title, message, data, read, created_at FROM notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, limit, offset)
	if err := r.db.SelectContext(ctx, &items, query, filter.UserID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE `+where, filter.UserID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead marks one notification of the user as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res, "mark notification read")
}

// MarkAllRead marks every notification of the user as read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read rows: %w", err)
	}
	return affected, nil
}
