package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/dto"
	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// EventKind names the gameplay event that started a propagation.
type EventKind string

const (
	EventBehaviorApplied   EventKind = "BEHAVIOR_APPLIED"
	EventManualPoints      EventKind = "MANUAL_POINTS"
	EventActivityCompleted EventKind = "ACTIVITY_COMPLETED"
	EventDailyLogin        EventKind = "DAILY_LOGIN"
	EventMissionReward     EventKind = "MISSION_REWARD"
	EventStreakMilestone   EventKind = "STREAK_MILESTONE"
)

// ProgressEvent carries the context effects need beyond the point delta.
type ProgressEvent struct {
	Kind         EventKind
	Behavior     *models.Behavior
	ActivityType string
}

// BadgeEvent maps the progress event onto the badge evaluator's vocabulary.
func (e ProgressEvent) BadgeEvent(student *models.StudentProfile) models.BadgeEvent {
	ev := models.BadgeEvent{Type: models.BadgeEventPointsChanged, StudentID: student.ID, ClassroomID: student.ClassroomID}
	switch e.Kind {
	case EventBehaviorApplied:
		ev.Type = models.BadgeEventBehaviorApplied
		if e.Behavior != nil {
			positive := e.Behavior.IsPositive
			ev.BehaviorID = e.Behavior.ID
			ev.BehaviorCategory = e.Behavior.Category
			ev.IsPositive = &positive
		}
	case EventDailyLogin:
		ev.Type = models.BadgeEventLogin
	case EventMissionReward:
		ev.Type = models.BadgeEventMissionCompleted
	}
	return ev
}

func syncOutcome(o *dto.StudentOutcome, student *models.StudentProfile) {
	o.XP, o.HP, o.GP, o.Level = student.XP, student.HP, student.GP, student.Level
}

// EffectInput is handed to every effect after the primary writes succeeded.
type EffectInput struct {
	Classroom *models.Classroom
	Student   *models.StudentProfile
	Ledger    *LedgerResult
	Level     LevelChange
	Reason    string
	Event     ProgressEvent
	Outbox    *NotificationOutbox
	Outcome   *dto.StudentOutcome
}

// Effect is one post-commit side effect of a point change.
type Effect interface {
	Name() string
	Run(ctx context.Context, in *EffectInput) error
}

// EffectFailure records a suppressed effect error.
type EffectFailure struct {
	Effect string
	Err    error
}

// EffectPipeline runs effects in a fixed order. A failing or panicking effect
// is logged and counted but never aborts the effects after it, and never
// reaches the caller.
type EffectPipeline struct {
	effects []Effect
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEffectPipeline constructs an EffectPipeline running effects in order.
func NewEffectPipeline(metrics *MetricsService, logger *zap.Logger, effects ...Effect) *EffectPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EffectPipeline{effects: effects, metrics: metrics, logger: logger}
}

// Run executes every effect for one student.
func (p *EffectPipeline) Run(ctx context.Context, in *EffectInput) []EffectFailure {
	var failures []EffectFailure
	for _, effect := range p.effects {
		if err := p.runOne(ctx, effect, in); err != nil {
			p.metrics.RecordEffectFailure(effect.Name())
			p.logger.Error("progression effect failed",
				zap.String("effect", effect.Name()),
				zap.String("student_id", in.Student.ID),
				zap.String("classroom_id", in.Classroom.ID),
				zap.String("event", string(in.Event.Kind)),
				zap.Error(err))
			failures = append(failures, EffectFailure{Effect: effect.Name(), Err: err})
			if in.Outcome != nil {
				in.Outcome.FailedEffects = append(in.Outcome.FailedEffects, effect.Name())
			}
		}
	}
	return failures
}

func (p *EffectPipeline) runOne(ctx context.Context, effect Effect, in *EffectInput) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return effect.Run(ctx, in)
}

type clanEffect struct {
	distributor *ClanDistributor
}

// NewClanEffect wraps a ClanDistributor as a pipeline effect.
func NewClanEffect(d *ClanDistributor) Effect { return &clanEffect{distributor: d} }

func (e *clanEffect) Name() string { return "clan" }

func (e *clanEffect) Run(ctx context.Context, in *EffectInput) error {
	if in.Ledger == nil || in.Ledger.Requested.XP <= 0 {
		return nil
	}
	amount, err := e.distributor.Contribute(ctx, in.Student, in.Classroom, in.Ledger.Requested.XP, in.Reason)
	if err != nil {
		return err
	}
	in.Outcome.ClanContribution = amount
	return nil
}

type missionEffect struct {
	tracker *MissionTracker
	emitter *NotificationEmitter
}

// NewMissionEffect wraps a MissionTracker as a pipeline effect. Completions
// are announced through emitter.
func NewMissionEffect(t *MissionTracker, emitter *NotificationEmitter) Effect {
	return &missionEffect{tracker: t, emitter: emitter}
}

func (e *missionEffect) Name() string { return "mission" }

func (e *missionEffect) Run(ctx context.Context, in *EffectInput) error {
	result, err := e.tracker.TrackEvent(ctx, in.Student, in.Event, in.Ledger)
	if result != nil {
		for _, m := range result.Completed {
			in.Outcome.CompletedMissions = append(in.Outcome.CompletedMissions, m.ID)
			e.emitter.MissionCompleted(in.Outbox, in.Student, in.Classroom, m)
		}
		if result.Streak != nil {
			in.Outcome.Streak = result.Streak
		}
	}
	return err
}

type badgeEffect struct {
	evaluator *BadgeEvaluator
	emitter   *NotificationEmitter
}

// NewBadgeEffect wraps a BadgeEvaluator as a pipeline effect.
func NewBadgeEffect(ev *BadgeEvaluator, emitter *NotificationEmitter) Effect {
	return &badgeEffect{evaluator: ev, emitter: emitter}
}

func (e *badgeEffect) Name() string { return "badge" }

func (e *badgeEffect) Run(ctx context.Context, in *EffectInput) error {
	grants, err := e.evaluator.Evaluate(ctx, in.Event.BadgeEvent(in.Student), in.Student, in.Classroom)
	for _, g := range grants {
		in.Outcome.UnlockedBadges = append(in.Outcome.UnlockedBadges, g.Badge)
		e.emitter.BadgeUnlocked(in.Outbox, in.Student, in.Classroom, g.Badge)
		if g.Level.LeveledUp {
			e.emitter.LevelUp(in.Outbox, in.Student, in.Classroom, g.Level)
			in.Outcome.LeveledUp = true
		}
	}
	syncOutcome(in.Outcome, in.Student)
	return err
}

type notificationEffect struct {
	emitter *NotificationEmitter
}

// NewNotificationEffect announces the primary point change and level-up.
func NewNotificationEffect(emitter *NotificationEmitter) Effect {
	return &notificationEffect{emitter: emitter}
}

func (e *notificationEffect) Name() string { return "notification" }

func (e *notificationEffect) Run(_ context.Context, in *EffectInput) error {
	if in.Ledger != nil {
		e.emitter.PointsReceived(in.Outbox, in.Student, in.Classroom, in.Ledger.Requested, in.Reason)
	}
	if in.Level.LeveledUp {
		e.emitter.LevelUp(in.Outbox, in.Student, in.Classroom, in.Level)
	}
	return nil
}
