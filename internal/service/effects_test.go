package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerson3105/juriv2-sub007/internal/dto"
	"github.com/jerson3105/juriv2-sub007/internal/models"
)

type recordingEffect struct {
	name  string
	calls *[]string
	err   error
	panic bool
}

func (e *recordingEffect) Name() string { return e.name }

func (e *recordingEffect) Run(ctx context.Context, in *EffectInput) error {
	*e.calls = append(*e.calls, e.name)
	if e.panic {
		panic("boom")
	}
	return e.err
}

func newEffectInput() *EffectInput {
	return &EffectInput{
		Classroom: &models.Classroom{ID: testClassroomID},
		Student:   &models.StudentProfile{ID: "stu-1"},
		Event:     ProgressEvent{Kind: EventManualPoints},
		Outbox:    NewNotificationOutbox(),
		Outcome:   &dto.StudentOutcome{StudentID: "stu-1"},
	}
}

func TestEffectPipelineRunsInOrderAndIsolatesFailures(t *testing.T) {
	var calls []string
	metrics := NewMetricsService()
	pipeline := NewEffectPipeline(metrics, nil,
		&recordingEffect{name: "clan", calls: &calls, err: errors.New("clan down")},
		&recordingEffect{name: "mission", calls: &calls, panic: true},
		&recordingEffect{name: "badge", calls: &calls},
		&recordingEffect{name: "notification", calls: &calls},
	)
	in := newEffectInput()

	failures := pipeline.Run(context.Background(), in)

	assert.Equal(t, []string{"clan", "mission", "badge", "notification"}, calls)
	require.Len(t, failures, 2)
	assert.Equal(t, "clan", failures[0].Effect)
	assert.Equal(t, "mission", failures[1].Effect)
	assert.Contains(t, failures[1].Err.Error(), "panic: boom")
	assert.Equal(t, []string{"clan", "mission"}, in.Outcome.FailedEffects)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.effectFailures.WithLabelValues("mission")))
}

func TestEffectPipelineNoFailures(t *testing.T) {
	var calls []string
	pipeline := NewEffectPipeline(nil, nil, &recordingEffect{name: "only", calls: &calls})
	in := newEffectInput()

	assert.Empty(t, pipeline.Run(context.Background(), in))
	assert.Empty(t, in.Outcome.FailedEffects)
}

func TestProgressEventBadgeEvent(t *testing.T) {
	student := &models.StudentProfile{ID: "stu-1", ClassroomID: testClassroomID}

	ev := ProgressEvent{Kind: EventBehaviorApplied, Behavior: &models.Behavior{ID: "b1", Category: "teamwork", IsPositive: true}}.BadgeEvent(student)
	assert.Equal(t, models.BadgeEventBehaviorApplied, ev.Type)
	assert.Equal(t, "b1", ev.BehaviorID)
	assert.Equal(t, "teamwork", ev.BehaviorCategory)
	require.NotNil(t, ev.IsPositive)
	assert.True(t, *ev.IsPositive)

	assert.Equal(t, models.BadgeEventLogin, ProgressEvent{Kind: EventDailyLogin}.BadgeEvent(student).Type)
	assert.Equal(t, models.BadgeEventMissionCompleted, ProgressEvent{Kind: EventMissionReward}.BadgeEvent(student).Type)
	assert.Equal(t, models.BadgeEventPointsChanged, ProgressEvent{Kind: EventManualPoints}.BadgeEvent(student).Type)
}
