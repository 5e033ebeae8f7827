package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/dto"
	"github.com/jerson3105/juriv2-sub007/internal/models"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
	"github.com/jerson3105/juriv2-sub007/pkg/logger"
)

type classroomSource interface {
	Get(ctx context.Context, id string) (*models.Classroom, error)
}

type progressionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindByIDs(ctx context.Context, classroomID string, ids []string) ([]models.StudentProfile, error)
}

type behaviorLookup interface {
	FindByID(ctx context.Context, classroomID, id string) (*models.Behavior, error)
}

type streakStore interface {
	FindStreak(ctx context.Context, studentID, classroomID string) (*models.StudentStreak, error)
	ClaimMilestone(ctx context.Context, streakID string, days int) (bool, error)
	FindLoginStreak(ctx context.Context, studentID, classroomID string) (*models.LoginStreak, error)
	SaveLoginStreak(ctx context.Context, streak *models.LoginStreak) (bool, error)
}

// ApplyBehaviorRequest applies one behavior to several students.
type ApplyBehaviorRequest struct {
	ClassroomID string   `json:"classroom_id" validate:"required"`
	BehaviorID  string   `json:"behavior_id" validate:"required"`
	StudentIDs  []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// ApplyPointsRequest grants an ad-hoc delta to several students.
type ApplyPointsRequest struct {
	ClassroomID string   `json:"classroom_id" validate:"required"`
	StudentIDs  []string `json:"student_ids" validate:"required,min=1,dive,required"`
	XP          int      `json:"xp"`
	HP          int      `json:"hp"`
	GP          int      `json:"gp"`
	Reason      string   `json:"reason" validate:"required,max=255"`
}

// CompleteActivityRequest rewards the participants of a timed activity.
type CompleteActivityRequest struct {
	ClassroomID  string   `json:"classroom_id" validate:"required"`
	ActivityType string   `json:"activity_type" validate:"required,max=64"`
	StudentIDs   []string `json:"student_ids" validate:"required,min=1,dive,required"`
	XP           int      `json:"xp" validate:"gte=0"`
	HP           int      `json:"hp"`
	GP           int      `json:"gp" validate:"gte=0"`
	Reason       string   `json:"reason" validate:"max=255"`
}

// ProgressionDeps wires the collaborators of ProgressionService.
type ProgressionDeps struct {
	Classrooms  classroomSource
	Students    progressionStudentStore
	Behaviors   behaviorLookup
	Missions    missionStore
	Streaks     streakStore
	Badges      badgeStore
	Ledger      *PointLedger
	Levels      *LevelCalculator
	Tracker     *MissionTracker
	Evaluator   *BadgeEvaluator
	Emitter     *NotificationEmitter
	Effects     *EffectPipeline
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Location    *time.Location
	MaxStudents int
}

// ProgressionService hosts the event sources that change student points and
// orchestrates the ledger, level calculator and post-commit effects.
type ProgressionService struct {
	classrooms  classroomSource
	students    progressionStudentStore
	behaviors   behaviorLookup
	missions    missionStore
	streaks     streakStore
	badges      badgeStore
	ledger      *PointLedger
	levels      *LevelCalculator
	tracker     *MissionTracker
	evaluator   *BadgeEvaluator
	emitter     *NotificationEmitter
	effects     *EffectPipeline
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	loc         *time.Location
	maxStudents int
	now         func() time.Time
}

// NewProgressionService constructs a ProgressionService.
func NewProgressionService(deps ProgressionDeps) *ProgressionService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.MaxStudents <= 0 {
		deps.MaxStudents = 200
	}
	return &ProgressionService{
		classrooms:  deps.Classrooms,
		students:    deps.Students,
		behaviors:   deps.Behaviors,
		missions:    deps.Missions,
		streaks:     deps.Streaks,
		badges:      deps.Badges,
		ledger:      deps.Ledger,
		levels:      deps.Levels,
		tracker:     deps.Tracker,
		evaluator:   deps.Evaluator,
		emitter:     deps.Emitter,
		effects:     deps.Effects,
		metrics:     deps.Metrics,
		validator:   deps.Validator,
		logger:      deps.Logger,
		loc:         deps.Location,
		maxStudents: deps.MaxStudents,
		now:         time.Now,
	}
}

// ApplyBehavior applies a behavior's normalized delta to every listed student.
func (s *ProgressionService) ApplyBehavior(ctx context.Context, actor *models.JWTClaims, req ApplyBehaviorRequest) (*dto.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid behavior payload")
	}
	classroom, err := s.teacherClassroom(ctx, actor, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	behavior, err := s.behaviors.FindByID(ctx, classroom.ID, req.BehaviorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "behavior not found")
		}
		return nil, appErrors.Internal(err, "failed to load behavior")
	}
	// applications are counted from point log rows, so a behavior that awards
	// nothing could never be seen by badge conditions
	delta := behavior.Delta()
	if delta.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "behavior awards no points")
	}
	students, err := s.loadStudents(ctx, classroom, req.StudentIDs)
	if err != nil {
		return nil, err
	}

	behaviorID := behavior.ID
	return s.propagate(ctx, classroom, students, delta, behavior.Name,
		PointSource{BehaviorID: &behaviorID, GivenBy: actorID(actor)},
		ProgressEvent{Kind: EventBehaviorApplied, Behavior: behavior})
}

// ApplyPoints grants a manual delta to every listed student.
func (s *ProgressionService) ApplyPoints(ctx context.Context, actor *models.JWTClaims, req ApplyPointsRequest) (*dto.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid points payload")
	}
	delta := models.PointDelta{XP: req.XP, HP: req.HP, GP: req.GP}
	if delta.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one of xp, hp or gp must be non-zero")
	}
	classroom, err := s.teacherClassroom(ctx, actor, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	students, err := s.loadStudents(ctx, classroom, req.StudentIDs)
	if err != nil {
		return nil, err
	}
	return s.propagate(ctx, classroom, students, delta, strings.TrimSpace(req.Reason),
		PointSource{GivenBy: actorID(actor)}, ProgressEvent{Kind: EventManualPoints})
}

// CompleteActivity rewards the participants of a finished classroom activity.
// Missions counting COMPLETE_ACTIVITY advance even when the delta is zero.
func (s *ProgressionService) CompleteActivity(ctx context.Context, actor *models.JWTClaims, req CompleteActivityRequest) (*dto.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	classroom, err := s.teacherClassroom(ctx, actor, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	students, err := s.loadStudents(ctx, classroom, req.StudentIDs)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Activity completed: " + req.ActivityType
	}
	return s.propagate(ctx, classroom, students, models.PointDelta{XP: req.XP, HP: req.HP, GP: req.GP}, reason,
		PointSource{GivenBy: actorID(actor)}, ProgressEvent{Kind: EventActivityCompleted, ActivityType: req.ActivityType})
}

// History returns a student's grouped point history.
func (s *ProgressionService) History(ctx context.Context, actor *models.JWTClaims, studentID string, filter models.PointLogFilter) ([]models.PointHistoryItem, *models.Pagination, error) {
	student, _, err := s.authorizedStudent(ctx, actor, studentID)
	if err != nil {
		return nil, nil, err
	}
	filter.StudentID = student.ID
	return s.ledger.History(ctx, filter)
}

// abortBatch writes the history of students whose balances were already
// updated when a batch fails part way, then returns cause.
func (s *ProgressionService) abortBatch(ctx context.Context, log *zap.Logger, entries []models.PointLogEntry, cause error) error {
	if len(entries) == 0 {
		return cause
	}
	seen := map[string]bool{}
	var ids []string
	for _, e := range entries {
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			ids = append(ids, e.StudentID)
		}
	}
	if err := s.ledger.Flush(ctx, entries); err != nil {
		log.Error("point history missing for partially applied batch", zap.Strings("student_ids", ids), zap.Error(err))
		return cause
	}
	log.Warn("batch aborted after partial apply", zap.Strings("student_ids", ids), zap.Error(cause))
	return cause
}

// propagate runs the full reward sequence for students sharing one delta.
// Ledger, level and point-log writes are the primary path and abort the call
// on failure. Effects and the notification flush never do.
func (s *ProgressionService) propagate(ctx context.Context, classroom *models.Classroom, students []*models.StudentProfile, delta models.PointDelta, reason string, src PointSource, event ProgressEvent) (*dto.BatchResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx, s.logger)
	at := s.now().UTC()

	type staged struct {
		student *models.StudentProfile
		ledger  *LedgerResult
		level   LevelChange
	}
	batch := make([]staged, 0, len(students))
	var entries []models.PointLogEntry
	for _, student := range students {
		res, err := s.ledger.Stage(ctx, student, classroom, delta, reason, src, at)
		if err != nil {
			return nil, s.abortBatch(ctx, log, entries, err)
		}
		entries = append(entries, res.Entries...)
		level, err := s.levels.Advance(ctx, student, classroom, delta.XP)
		if err != nil {
			return nil, s.abortBatch(ctx, log, entries, err)
		}
		batch = append(batch, staged{student: student, ledger: res, level: level})
	}
	if err := s.ledger.Flush(ctx, entries); err != nil {
		return nil, err
	}

	outbox := NewNotificationOutbox()
	result := &dto.BatchResult{ClassroomID: classroom.ID, Reason: reason, Students: make([]dto.StudentOutcome, 0, len(batch))}
	for _, item := range batch {
		outcome := dto.StudentOutcome{StudentID: item.student.ID, Delta: delta, LeveledUp: item.level.LeveledUp}
		syncOutcome(&outcome, item.student)
		s.effects.Run(ctx, &EffectInput{
			Classroom: classroom,
			Student:   item.student,
			Ledger:    item.ledger,
			Level:     item.level,
			Reason:    reason,
			Event:     event,
			Outbox:    outbox,
			Outcome:   &outcome,
		})
		result.Students = append(result.Students, outcome)
	}
	if err := s.emitter.Flush(ctx, outbox); err != nil {
		s.metrics.RecordEffectFailure("notification_flush")
		log.Error("notification flush failed", zap.String("classroom_id", classroom.ID), zap.Int("count", outbox.Len()), zap.Error(err))
	}

	s.metrics.ObservePropagation(event.Kind, time.Since(start))
	log.Info("points propagated",
		zap.String("event", string(event.Kind)),
		zap.String("classroom_id", classroom.ID),
		zap.Int("students", len(batch)),
		zap.Int("log_entries", len(entries)))
	return result, nil
}

func (s *ProgressionService) propagateOne(ctx context.Context, classroom *models.Classroom, student *models.StudentProfile, delta models.PointDelta, reason string, src PointSource, event ProgressEvent) (dto.StudentOutcome, error) {
	res, err := s.propagate(ctx, classroom, []*models.StudentProfile{student}, delta, reason, src, event)
	if err != nil {
		return dto.StudentOutcome{}, err
	}
	return res.Students[0], nil
}

func (s *ProgressionService) loadClassroom(ctx context.Context, id string) (*models.Classroom, error) {
	return s.classrooms.Get(ctx, id)
}

func (s *ProgressionService) teacherClassroom(ctx context.Context, actor *models.JWTClaims, classroomID string) (*models.Classroom, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	classroom, err := s.loadClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, classroom) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this classroom")
	}
	return classroom, nil
}

// loadStudents resolves ids to profiles of classroom, dropping duplicates and
// keeping request order.
func (s *ProgressionService) loadStudents(ctx context.Context, classroom *models.Classroom, ids []string) ([]*models.StudentProfile, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) > s.maxStudents {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d students per request", s.maxStudents))
	}

	found, err := s.students.FindByIDs(ctx, classroom.ID, unique)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	byID := make(map[string]*models.StudentProfile, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	students := make([]*models.StudentProfile, 0, len(unique))
	for _, id := range unique {
		student, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrStudentNotInClassroom, fmt.Sprintf("student %s not found in classroom", id))
		}
		students = append(students, student)
	}
	return students, nil
}

func (s *ProgressionService) loadStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// authorizedStudent loads a student and its classroom and checks that actor
// is the student, the classroom teacher or an administrator.
func (s *ProgressionService) authorizedStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (*models.StudentProfile, *models.Classroom, error) {
	if actor == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	classroom, err := s.loadClassroom(ctx, student.ClassroomID)
	if err != nil {
		return nil, nil, err
	}
	if !canManage(actor, classroom) && !(student.HasAccount() && *student.UserID == actor.UserID) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to act for this student")
	}
	return student, classroom, nil
}

func canManage(actor *models.JWTClaims, classroom *models.Classroom) bool {
	if actor.Role.IsAdministrator() {
		return true
	}
	return actor.Role == models.RoleTeacher && classroom.TeacherID == actor.UserID
}

func actorID(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}
