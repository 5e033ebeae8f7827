package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// NotificationRepository appends notification rows.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatch writes all notifications in one statement.
func (r *NotificationRepository) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	const cols = 8
	args := make([]interface{}, 0, len(notifications)*cols)
	now := time.Now().UTC()
	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		args = append(args, n.ID, n.UserID, n.ClassroomID, n.Type, n.Title, n.Message, n.IsRead, n.CreatedAt)
	}
	query := `INSERT INTO notifications (id, user_id, classroom_id, type, title, message, is_read, created_at) VALUES ` +
		valuesClause(len(notifications), cols)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}
