package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/internal/progression"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

type studentPointStore interface {
	UpdatePoints(ctx context.Context, id string, update models.StudentPointsUpdate) error
}

type pointLogStore interface {
	InsertBatch(ctx context.Context, entries []models.PointLogEntry) error
	List(ctx context.Context, filter models.PointLogFilter) ([]models.PointLogEntry, int, error)
}

// PointSource attributes ledger entries to a behavior and an acting user.
type PointSource struct {
	BehaviorID *string
	GivenBy    *string
}

// LedgerResult is the outcome of applying one delta to one student.
type LedgerResult struct {
	StudentID string
	Requested models.PointDelta
	Before    models.StudentPointsUpdate
	After     models.StudentPointsUpdate
	Entries   []models.PointLogEntry
}

// PointLedger is the only writer of student point balances. Every non-zero
// component of a delta produces exactly one log entry.
type PointLedger struct {
	students studentPointStore
	logs     pointLogStore
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewPointLedger constructs a PointLedger.
func NewPointLedger(students studentPointStore, logs pointLogStore, metrics *MetricsService, logger *zap.Logger) *PointLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointLedger{students: students, logs: logs, metrics: metrics, logger: logger}
}

// Stage writes the new balances of student and returns the log entries for
// the caller to persist with Flush. The profile is updated in place.
//
// HP is clamped to [0, MaxHP], or only to MaxHP when the classroom allows
// negative HP. XP and GP are written unclamped. Logged amounts are the
// requested magnitudes, not the post-clamp change.
func (l *PointLedger) Stage(ctx context.Context, student *models.StudentProfile, classroom *models.Classroom, delta models.PointDelta, reason string, src PointSource, at time.Time) (*LedgerResult, error) {
	before := models.StudentPointsUpdate{XP: student.XP, HP: student.HP, GP: student.GP}
	result := &LedgerResult{StudentID: student.ID, Requested: delta, Before: before, After: before}
	if delta.IsZero() {
		return result, nil
	}

	after := models.StudentPointsUpdate{
		XP: student.XP + delta.XP,
		HP: progression.ApplyHP(student.HP, delta.HP, classroom.MaxHP, classroom.AllowNegativeHP),
		GP: student.GP + delta.GP,
	}
	if err := l.students.UpdatePoints(ctx, student.ID, after); err != nil {
		return nil, appErrors.Internal(err, "failed to update student points")
	}
	student.XP, student.HP, student.GP = after.XP, after.HP, after.GP
	result.After = after

	for _, c := range delta.Components() {
		action := models.PointActionAdd
		amount := c.Amount
		if amount < 0 {
			action = models.PointActionRemove
			amount = -amount
		}
		result.Entries = append(result.Entries, models.PointLogEntry{
			ID:         uuid.NewString(),
			StudentID:  student.ID,
			PointType:  c.Type,
			Action:     action,
			Amount:     amount,
			Reason:     reason,
			BehaviorID: src.BehaviorID,
			GivenBy:    src.GivenBy,
			CreatedAt:  at,
		})
	}
	return result, nil
}

// Flush persists staged log entries in a single batch.
func (l *PointLedger) Flush(ctx context.Context, entries []models.PointLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := l.logs.InsertBatch(ctx, entries); err != nil {
		return appErrors.Internal(err, "failed to write point history")
	}
	for _, e := range entries {
		l.metrics.RecordPoints(e.PointType, e.Action, e.Amount)
	}
	return nil
}

// Apply stages and flushes a single delta.
func (l *PointLedger) Apply(ctx context.Context, student *models.StudentProfile, classroom *models.Classroom, delta models.PointDelta, reason string, src PointSource, at time.Time) (*LedgerResult, error) {
	result, err := l.Stage(ctx, student, classroom, delta, reason, src, at)
	if err != nil {
		return nil, err
	}
	if err := l.Flush(ctx, result.Entries); err != nil {
		return nil, err
	}
	return result, nil
}

// History returns the student's point history with the per-type rows of one
// event merged back into a single item.
func (l *PointLedger) History(ctx context.Context, filter models.PointLogFilter) ([]models.PointHistoryItem, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	entries, total, err := l.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load point history")
	}
	return GroupPointHistory(entries), &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GroupPointHistory merges consecutive entries sharing a timestamp and reason.
// Entries are expected newest first.
func GroupPointHistory(entries []models.PointLogEntry) []models.PointHistoryItem {
	items := make([]models.PointHistoryItem, 0, len(entries))
	for _, e := range entries {
		signed := e.Amount
		if e.Action == models.PointActionRemove {
			signed = -signed
		}
		n := len(items)
		if n > 0 && items[n-1].CreatedAt.Equal(e.CreatedAt) && items[n-1].Reason == e.Reason {
			items[n-1].Delta = items[n-1].Delta.Add(models.PointDelta{}.With(e.PointType, signed))
			continue
		}
		items = append(items, models.PointHistoryItem{
			Reason:     e.Reason,
			BehaviorID: e.BehaviorID,
			Delta:      models.PointDelta{}.With(e.PointType, signed),
			CreatedAt:  e.CreatedAt,
		})
	}
	return items
}

type studentLevelStore interface {
	UpdateLevel(ctx context.Context, id string, level int) error
}

// LevelChange reports the level transition caused by an XP gain.
type LevelChange struct {
	Previous  int  `json:"previous"`
	Current   int  `json:"current"`
	LeveledUp bool `json:"leveled_up"`
}

// LevelCalculator keeps a student's stored level in step with XP. Levels only
// move up, and only on XP gains.
type LevelCalculator struct {
	students          studentLevelStore
	defaultXPPerLevel int
	metrics           *MetricsService
}

// NewLevelCalculator constructs a LevelCalculator.
func NewLevelCalculator(students studentLevelStore, defaultXPPerLevel int, metrics *MetricsService) *LevelCalculator {
	if defaultXPPerLevel <= 0 {
		defaultXPPerLevel = progression.DefaultXPPerLevel
	}
	return &LevelCalculator{students: students, defaultXPPerLevel: defaultXPPerLevel, metrics: metrics}
}

// XPPerLevel resolves the classroom's level step.
func (c *LevelCalculator) XPPerLevel(classroom *models.Classroom) int {
	if classroom != nil && classroom.XPPerLevel > 0 {
		return classroom.XPPerLevel
	}
	return c.defaultXPPerLevel
}

// Advance recomputes the level after xpDelta was applied to student.
func (c *LevelCalculator) Advance(ctx context.Context, student *models.StudentProfile, classroom *models.Classroom, xpDelta int) (LevelChange, error) {
	change := LevelChange{Previous: student.Level, Current: student.Level}
	next, up := progression.NextLevel(student.Level, student.XP, xpDelta, c.XPPerLevel(classroom))
	if !up {
		return change, nil
	}
	if err := c.students.UpdateLevel(ctx, student.ID, next); err != nil {
		return change, appErrors.Internal(err, "failed to update student level")
	}
	student.Level = next
	change.Current = next
	change.LeveledUp = true
	c.metrics.RecordLevelUp()
	return change, nil
}
