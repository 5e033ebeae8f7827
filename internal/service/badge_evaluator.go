package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

type badgeStore interface {
	FindByID(ctx context.Context, classroomID, id string) (*models.Badge, error)
	ListUnowned(ctx context.Context, classroomID, studentID string) ([]models.Badge, error)
	Unlock(ctx context.Context, sb *models.StudentBadge) (bool, error)
}

type behaviorStatsStore interface {
	Stats(ctx context.Context, studentID string) (*models.BehaviorStats, error)
}

// BadgeGrant is a badge unlocked during evaluation together with the level
// change its reward caused.
type BadgeGrant struct {
	Badge models.Badge
	Level LevelChange
}

// BadgeEvaluator unlocks badges whose condition a student satisfies. Rewards
// go through the ledger and level calculator but do not fan out further.
type BadgeEvaluator struct {
	badges    badgeStore
	behaviors behaviorStatsStore
	ledger    *PointLedger
	levels    *LevelCalculator
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewBadgeEvaluator constructs a BadgeEvaluator.
func NewBadgeEvaluator(badges badgeStore, behaviors behaviorStatsStore, ledger *PointLedger, levels *LevelCalculator, metrics *MetricsService, logger *zap.Logger) *BadgeEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeEvaluator{badges: badges, behaviors: behaviors, ledger: ledger, levels: levels, metrics: metrics, logger: logger, now: time.Now}
}

// Evaluate grants every unowned badge whose condition now holds.
func (e *BadgeEvaluator) Evaluate(ctx context.Context, event models.BadgeEvent, student *models.StudentProfile, classroom *models.Classroom) ([]BadgeGrant, error) {
	candidates, err := e.badges.ListUnowned(ctx, classroom.ID, student.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load badges")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var stats *models.BehaviorStats
	if needsBehaviorStats(candidates) {
		stats, err = e.behaviors.Stats(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load behavior stats")
		}
	}

	var (
		grants []BadgeGrant
		errs   []error
	)
	for _, badge := range candidates {
		if !Satisfies(badge.UnlockCondition, student, stats) {
			continue
		}
		grant, created, err := e.grant(ctx, badge, student, classroom, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created {
			e.logger.Info("badge unlocked",
				zap.String("badge_id", badge.ID),
				zap.String("student_id", student.ID),
				zap.String("event", string(event.Type)))
			grants = append(grants, grant)
		}
	}
	return grants, errors.Join(errs...)
}

// Award grants a badge on a teacher's decision regardless of its condition.
func (e *BadgeEvaluator) Award(ctx context.Context, badge *models.Badge, student *models.StudentProfile, classroom *models.Classroom, awardedBy string) (*BadgeGrant, error) {
	var by *string
	if awardedBy != "" {
		by = &awardedBy
	}
	grant, created, err := e.grant(ctx, *badge, student, classroom, by)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrBadgeAlreadyOwned, "student already owns this badge")
	}
	return &grant, nil
}

func (e *BadgeEvaluator) grant(ctx context.Context, badge models.Badge, student *models.StudentProfile, classroom *models.Classroom, awardedBy *string) (BadgeGrant, bool, error) {
	grant := BadgeGrant{Badge: badge, Level: LevelChange{Previous: student.Level, Current: student.Level}}
	at := e.now().UTC()
	created, err := e.badges.Unlock(ctx, &models.StudentBadge{StudentID: student.ID, BadgeID: badge.ID, AwardedBy: awardedBy, UnlockedAt: at})
	if err != nil {
		return grant, false, appErrors.Internal(err, "failed to unlock badge")
	}
	if !created {
		return grant, false, nil
	}
	e.metrics.RecordBadgeUnlocked()

	reward := models.PointDelta{XP: badge.RewardXP, GP: badge.RewardGP}
	if reward.IsZero() {
		return grant, true, nil
	}
	if _, err := e.ledger.Apply(ctx, student, classroom, reward, "Badge unlocked: "+badge.Name, PointSource{GivenBy: awardedBy}, at); err != nil {
		return grant, true, err
	}
	level, err := e.levels.Advance(ctx, student, classroom, reward.XP)
	if err != nil {
		return grant, true, err
	}
	grant.Level = level
	return grant, true, nil
}

func needsBehaviorStats(badges []models.Badge) bool {
	for _, b := range badges {
		switch b.UnlockCondition.Type {
		case models.UnlockBehaviorCount, models.UnlockBehaviorCategory, models.UnlockAnyBehavior:
			return true
		}
	}
	return false
}

// Satisfies evaluates an unlock condition against a student's current state.
// MANUAL and unknown conditions never unlock automatically.
func Satisfies(cond models.UnlockCondition, student *models.StudentProfile, stats *models.BehaviorStats) bool {
	count := cond.Count
	if count <= 0 {
		count = 1
	}
	switch cond.Type {
	case models.UnlockXPTotal:
		return cond.Threshold > 0 && student.XP >= cond.Threshold
	case models.UnlockLevel:
		return cond.Level > 0 && student.Level >= cond.Level
	case models.UnlockBehaviorCount:
		return stats != nil && cond.BehaviorID != "" && stats.ByBehavior[cond.BehaviorID] >= count
	case models.UnlockBehaviorCategory:
		return stats != nil && cond.Category != "" && stats.ByCategory[cond.Category] >= count
	case models.UnlockAnyBehavior:
		if stats == nil {
			return false
		}
		switch {
		case cond.IsPositive == nil:
			return stats.Positive+stats.Negative >= count
		case *cond.IsPositive:
			return stats.Positive >= count
		default:
			return stats.Negative >= count
		}
	default:
		return false
	}
}
