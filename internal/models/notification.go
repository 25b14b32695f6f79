package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationApplicationReceived NotificationType = "application_received"
	NotificationApplicationStatus   NotificationType = "application_status"
	NotificationInterviewScheduled  NotificationType = "interview_scheduled"
	NotificationReferralConverted   NotificationType = "referral_converted"
	NotificationPayoutUpdate        NotificationType = "payout_update"
	NotificationSessionReminder     NotificationType = "session_reminder"
	NotificationEnrollment          NotificationType = "enrollment"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Data      types.JSONText   `db:"data" json:"data,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}

// Recipient is the contact detail needed to address a user.
type Recipient struct {
	UserID   string `db:"id" json:"userId"`
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"fullName"`
}
