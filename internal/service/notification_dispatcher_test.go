package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/pkg/jobs"
)

type fakeQueue struct {
	jobs     []jobs.Job
	capacity int
}

func (q *fakeQueue) TryEnqueue(job jobs.Job) error {
	if len(q.jobs) >= q.capacity {
		return jobs.ErrQueueFull
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakePublisher struct {
	published []models.Notification
}

func (p *fakePublisher) Publish(ctx context.Context, n models.Notification) error {
	p.published = append(p.published, n)
	return nil
}

func TestNotificationDispatcherQueuesAndCountsDrops(t *testing.T) {
	queue := &fakeQueue{capacity: 1}
	metrics := NewMetricsService()
	dispatcher := NewNotificationDispatcher(queue, metrics, nil)

	dispatcher.Dispatch([]models.Notification{{ID: "n-1"}, {ID: "n-2"}})

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "n-1", queue.jobs[0].ID)
	assert.Equal(t, jobTypeRealtimeNotification, queue.jobs[0].Type)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.realtimeDropped))
}

func TestRealtimeJobHandler(t *testing.T) {
	publisher := &fakePublisher{}
	handler := RealtimeJobHandler(publisher)

	require.NoError(t, handler(context.Background(), jobs.Job{Payload: models.Notification{ID: "n-1"}}))
	require.NoError(t, handler(context.Background(), jobs.Job{Payload: "not a notification"}))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "n-1", publisher.published[0].ID)
}
