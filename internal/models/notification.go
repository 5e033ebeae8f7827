package models

import "time"

// NotificationType classifies notification rows.
type NotificationType string

const (
	NotificationPointsReceived   NotificationType = "POINTS_RECEIVED"
	NotificationLevelUp          NotificationType = "LEVEL_UP"
	NotificationMissionCompleted NotificationType = "MISSION_COMPLETED"
	NotificationBadgeUnlocked    NotificationType = "BADGE_UNLOCKED"
)

// Notification is an append-only message for a user account.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"user_id"`
	ClassroomID *string          `db:"classroom_id" json:"classroom_id,omitempty"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
