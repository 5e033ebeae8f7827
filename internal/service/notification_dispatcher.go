package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/pkg/jobs"
)

const jobTypeRealtimeNotification = "realtime_notification"

type notificationPublisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

type jobQueue interface {
	TryEnqueue(job jobs.Job) error
}

// NotificationDispatcher hands stored notifications to the realtime channel
// through a background queue. Delivery is best-effort.
type NotificationDispatcher struct {
	queue   jobQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationDispatcher constructs a dispatcher on top of queue.
func NewNotificationDispatcher(queue jobQueue, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{queue: queue, metrics: metrics, logger: logger}
}

// Dispatch enqueues one publish job per notification without blocking.
func (d *NotificationDispatcher) Dispatch(notifications []models.Notification) {
	for _, n := range notifications {
		if err := d.queue.TryEnqueue(jobs.Job{ID: n.ID, Type: jobTypeRealtimeNotification, Payload: n}); err != nil {
			d.metrics.RecordRealtimeDrop()
			d.logger.Warn("realtime notification not queued", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
}

// RealtimeJobHandler publishes a queued notification.
func RealtimeJobHandler(publisher notificationPublisher) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(models.Notification)
		if !ok {
			return nil
		}
		return publisher.Publish(ctx, n)
	}
}
