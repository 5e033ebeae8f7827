package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// NotificationPublisher hands stored notifications to the realtime transport
// by publishing them on a per-user Redis channel.
type NotificationPublisher struct {
	client *redis.Client
	prefix string
}

// NewNotificationPublisher constructs a publisher using channels named
// "<prefix>:<userID>".
func NewNotificationPublisher(client *redis.Client, prefix string) *NotificationPublisher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &NotificationPublisher{client: client, prefix: prefix}
}

// Channel returns the channel a user's notifications are published on.
func (p *NotificationPublisher) Channel(userID string) string {
	return p.prefix + ":" + userID
}

// Publish sends one notification.
func (p *NotificationPublisher) Publish(ctx context.Context, n models.Notification) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	if err := p.client.Publish(ctx, p.Channel(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}
