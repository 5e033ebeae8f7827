package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/internal/progression"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

type missionStore interface {
	ListActive(ctx context.Context, studentID string, objective models.ObjectiveType, now time.Time) ([]models.StudentMissionDetail, error)
	FindDetail(ctx context.Context, id string) (*models.StudentMissionDetail, error)
	UpdateProgress(ctx context.Context, id string, progress int, completedAt *time.Time) (bool, error)
	MarkClaimed(ctx context.Context, id string, at time.Time) (bool, error)
}

type missionStreakStore interface {
	FindStreak(ctx context.Context, studentID, classroomID string) (*models.StudentStreak, error)
	SaveStreak(ctx context.Context, streak *models.StudentStreak) error
}

// MissionProgress is one objective increment.
type MissionProgress struct {
	Objective models.ObjectiveType
	Amount    int
	Match     models.ObjectiveConfig
}

// TrackResult lists the missions a tracking call completed.
type TrackResult struct {
	Completed []models.StudentMissionDetail
	Streak    *models.StudentStreak
}

// MissionTracker advances progress on a student's active missions.
type MissionTracker struct {
	missions missionStore
	streaks  missionStreakStore
	metrics  *MetricsService
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewMissionTracker constructs a MissionTracker. Streak days are counted in loc.
func NewMissionTracker(missions missionStore, streaks missionStreakStore, loc *time.Location, metrics *MetricsService, logger *zap.Logger) *MissionTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MissionTracker{missions: missions, streaks: streaks, metrics: metrics, logger: logger, loc: loc, now: time.Now}
}

// ProgressFor lists the objective increments implied by a propagation.
func ProgressFor(event ProgressEvent, ledger *LedgerResult) []MissionProgress {
	var out []MissionProgress
	if ledger != nil {
		if ledger.Requested.XP > 0 {
			out = append(out, MissionProgress{Objective: models.ObjectiveEarnXP, Amount: ledger.Requested.XP})
		}
		if ledger.Requested.GP > 0 {
			out = append(out, MissionProgress{Objective: models.ObjectiveEarnGP, Amount: ledger.Requested.GP})
		}
	}
	switch event.Kind {
	case EventBehaviorApplied:
		if event.Behavior != nil {
			out = append(out, MissionProgress{
				Objective: models.ObjectiveReceiveBehavior,
				Amount:    1,
				Match:     models.ObjectiveConfig{BehaviorID: event.Behavior.ID},
			})
			if event.Behavior.IsPositive {
				out = append(out, MissionProgress{Objective: models.ObjectivePositiveBehaviors, Amount: 1})
			}
		}
	case EventActivityCompleted:
		out = append(out, MissionProgress{
			Objective: models.ObjectiveCompleteActivity,
			Amount:    1,
			Match:     models.ObjectiveConfig{ActivityType: event.ActivityType},
		})
	case EventDailyLogin:
		out = append(out, MissionProgress{Objective: models.ObjectiveDailyLogin, Amount: 1})
	}
	return out
}

// TrackEvent applies every objective increment implied by one propagation.
// Increments are independent: a failure on one is reported after the rest ran.
func (t *MissionTracker) TrackEvent(ctx context.Context, student *models.StudentProfile, event ProgressEvent, ledger *LedgerResult) (*TrackResult, error) {
	result := &TrackResult{}
	var errs []error
	for _, p := range ProgressFor(event, ledger) {
		completed, err := t.track(ctx, student, p)
		result.Completed = append(result.Completed, completed...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(result.Completed) > 0 {
		streak, err := t.RecordCompletion(ctx, student.ID, student.ClassroomID)
		if err != nil {
			errs = append(errs, err)
		}
		result.Streak = streak
	}
	return result, errors.Join(errs...)
}

// Track applies a single objective increment.
func (t *MissionTracker) Track(ctx context.Context, student *models.StudentProfile, p MissionProgress) (*TrackResult, error) {
	completed, err := t.track(ctx, student, p)
	result := &TrackResult{Completed: completed}
	if len(completed) > 0 {
		streak, serr := t.RecordCompletion(ctx, student.ID, student.ClassroomID)
		result.Streak = streak
		err = errors.Join(err, serr)
	}
	return result, err
}

func (t *MissionTracker) track(ctx context.Context, student *models.StudentProfile, p MissionProgress) ([]models.StudentMissionDetail, error) {
	if p.Amount <= 0 {
		return nil, nil
	}
	now := t.now().UTC()
	missions, err := t.missions.ListActive(ctx, student.ID, p.Objective, now)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load active missions")
	}

	var (
		completed []models.StudentMissionDetail
		errs      []error
	)
	for _, m := range missions {
		if !m.ObjectiveConfig.Matches(p.Match) {
			continue
		}
		progress := m.CurrentProgress + p.Amount
		if progress > m.ObjectiveTarget {
			progress = m.ObjectiveTarget
		}
		var completedAt *time.Time
		if progress >= m.ObjectiveTarget {
			completedAt = &now
		}
		updated, err := t.missions.UpdateProgress(ctx, m.ID, progress, completedAt)
		if err != nil {
			errs = append(errs, appErrors.Internal(err, "failed to update mission progress"))
			continue
		}
		if !updated || completedAt == nil {
			continue
		}
		m.CurrentProgress = progress
		m.Status = models.MissionStatusCompleted
		m.CompletedAt = completedAt
		completed = append(completed, m)
		t.metrics.RecordMissionCompleted()
		t.logger.Info("mission completed",
			zap.String("student_mission_id", m.ID),
			zap.String("student_id", student.ID),
			zap.String("objective", string(m.ObjectiveType)))
	}
	return completed, errors.Join(errs...)
}

// RecordCompletion extends the student's daily mission streak. Repeated
// completions on the same calendar day leave it unchanged.
func (t *MissionTracker) RecordCompletion(ctx context.Context, studentID, classroomID string) (*models.StudentStreak, error) {
	streak, err := t.streaks.FindStreak(ctx, studentID, classroomID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load mission streak")
		}
		streak = &models.StudentStreak{StudentID: studentID, ClassroomID: classroomID}
	}
	now := t.now().UTC()
	step := progression.AdvanceStreak(streak.CurrentStreak, streak.LongestStreak, streak.LastCompletedAt, now, t.loc)
	if !step.Advanced {
		return streak, nil
	}
	streak.CurrentStreak = step.Current
	streak.LongestStreak = step.Longest
	streak.LastCompletedAt = &now
	if err := t.streaks.SaveStreak(ctx, streak); err != nil {
		return nil, appErrors.Internal(err, "failed to save mission streak")
	}
	return streak, nil
}
