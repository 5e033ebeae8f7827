package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

type fakeClassrooms struct {
	items map[string]*models.Classroom
}

func (f *fakeClassrooms) Get(ctx context.Context, id string) (*models.Classroom, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
	}
	cp := *c
	return &cp, nil
}

type fakeStudents struct {
	items        map[string]*models.StudentProfile
	updateErr    error
	failFor      string
	pointUpdates int
}

func (f *fakeStudents) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	s, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStudents) FindByIDs(ctx context.Context, classroomID string, ids []string) ([]models.StudentProfile, error) {
	var out []models.StudentProfile
	for _, id := range ids {
		if s, ok := f.items[id]; ok && s.ClassroomID == classroomID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStudents) UpdatePoints(ctx context.Context, id string, update models.StudentPointsUpdate) error {
	if f.updateErr != nil && (f.failFor == "" || f.failFor == id) {
		return f.updateErr
	}
	f.pointUpdates++
	s := f.items[id]
	s.XP, s.HP, s.GP = update.XP, update.HP, update.GP
	return nil
}

func (f *fakeStudents) UpdateLevel(ctx context.Context, id string, level int) error {
	f.items[id].Level = level
	return nil
}

type fakePointLogs struct {
	entries []models.PointLogEntry
	batches int
}

func (f *fakePointLogs) InsertBatch(ctx context.Context, entries []models.PointLogEntry) error {
	f.batches++
	f.entries = append(f.entries, entries...)
	return nil
}

// List pages over events (rows sharing created_at and reason), newest first.
func (f *fakePointLogs) List(ctx context.Context, filter models.PointLogFilter) ([]models.PointLogEntry, int, error) {
	type eventKey struct {
		at     time.Time
		reason string
	}
	var keys []eventKey
	rows := map[eventKey][]models.PointLogEntry{}
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.StudentID != filter.StudentID {
			continue
		}
		k := eventKey{at: e.CreatedAt, reason: e.Reason}
		if _, ok := rows[k]; !ok {
			keys = append(keys, k)
		}
		rows[k] = append(rows[k], e)
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = len(keys)
	}
	var out []models.PointLogEntry
	for i := (page - 1) * size; i < len(keys) && i < page*size; i++ {
		out = append(out, rows[keys[i]]...)
	}
	return out, len(keys), nil
}

func (f *fakePointLogs) forStudent(id string) []models.PointLogEntry {
	var out []models.PointLogEntry
	for _, e := range f.entries {
		if e.StudentID == id {
			out = append(out, e)
		}
	}
	return out
}

type fakeBehaviors struct {
	items map[string]*models.Behavior
	logs  *fakePointLogs
}

func (f *fakeBehaviors) FindByID(ctx context.Context, classroomID, id string) (*models.Behavior, error) {
	b, ok := f.items[id]
	if !ok || b.ClassroomID != classroomID || !b.IsActive {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBehaviors) Stats(ctx context.Context, studentID string) (*models.BehaviorStats, error) {
	stats := &models.BehaviorStats{ByBehavior: map[string]int{}, ByCategory: map[string]int{}}
	seen := map[string]bool{}
	for _, e := range f.logs.entries {
		if e.StudentID != studentID || e.BehaviorID == nil {
			continue
		}
		key := *e.BehaviorID + e.CreatedAt.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		b := f.items[*e.BehaviorID]
		stats.ByBehavior[b.ID]++
		stats.ByCategory[b.Category]++
		if b.IsPositive {
			stats.Positive++
		} else {
			stats.Negative++
		}
	}
	return stats, nil
}

type fakeTeams struct {
	totals map[string]int
	logs   []models.ClanLogEntry
	err    error
}

func (f *fakeTeams) Contribute(ctx context.Context, entry *models.ClanLogEntry) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.totals == nil {
		f.totals = map[string]int{}
	}
	f.totals[entry.TeamID] += entry.XPAmount
	f.logs = append(f.logs, *entry)
	return f.totals[entry.TeamID], nil
}

type fakeMissions struct {
	items map[string]*models.StudentMissionDetail
	err   error
}

func (f *fakeMissions) ListActive(ctx context.Context, studentID string, objective models.ObjectiveType, now time.Time) ([]models.StudentMissionDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.StudentMissionDetail
	for _, m := range f.items {
		if m.StudentID == studentID && m.ObjectiveType == objective && m.Status == models.MissionStatusActive &&
			(m.ExpiresAt == nil || m.ExpiresAt.After(now)) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMissions) FindDetail(ctx context.Context, id string) (*models.StudentMissionDetail, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMissions) UpdateProgress(ctx context.Context, id string, progress int, completedAt *time.Time) (bool, error) {
	m := f.items[id]
	if m.Status != models.MissionStatusActive {
		return false, nil
	}
	m.CurrentProgress = progress
	if completedAt != nil {
		m.Status = models.MissionStatusCompleted
		m.CompletedAt = completedAt
	}
	return true, nil
}

func (f *fakeMissions) MarkClaimed(ctx context.Context, id string, at time.Time) (bool, error) {
	m := f.items[id]
	if m.Status != models.MissionStatusCompleted {
		return false, nil
	}
	m.Status = models.MissionStatusClaimed
	m.ClaimedAt = &at
	return true, nil
}

type fakeStreaks struct {
	missions map[string]*models.StudentStreak
	logins   map[string]*models.LoginStreak
}

func newFakeStreaks() *fakeStreaks {
	return &fakeStreaks{missions: map[string]*models.StudentStreak{}, logins: map[string]*models.LoginStreak{}}
}

func (f *fakeStreaks) FindStreak(ctx context.Context, studentID, classroomID string) (*models.StudentStreak, error) {
	s, ok := f.missions[studentID+"|"+classroomID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	cp.ClaimedMilestones = append([]int64(nil), s.ClaimedMilestones...)
	return &cp, nil
}

func (f *fakeStreaks) SaveStreak(ctx context.Context, streak *models.StudentStreak) error {
	if streak.ID == "" {
		streak.ID = uuid.NewString()
	}
	key := streak.StudentID + "|" + streak.ClassroomID
	cp := *streak
	if existing, ok := f.missions[key]; ok {
		cp.ClaimedMilestones = existing.ClaimedMilestones
	}
	f.missions[key] = &cp
	return nil
}

func (f *fakeStreaks) ClaimMilestone(ctx context.Context, streakID string, days int) (bool, error) {
	for _, s := range f.missions {
		if s.ID != streakID {
			continue
		}
		if s.HasClaimed(days) {
			return false, nil
		}
		s.ClaimedMilestones = append(s.ClaimedMilestones, int64(days))
		return true, nil
	}
	return false, nil
}

func (f *fakeStreaks) FindLoginStreak(ctx context.Context, studentID, classroomID string) (*models.LoginStreak, error) {
	s, ok := f.logins[studentID+"|"+classroomID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStreaks) SaveLoginStreak(ctx context.Context, streak *models.LoginStreak) (bool, error) {
	key := streak.StudentID + "|" + streak.ClassroomID
	if existing, ok := f.logins[key]; ok && existing.LastLoginDate != nil && streak.LastLoginDate != nil &&
		existing.LastLoginDate.Equal(*streak.LastLoginDate) {
		return false, nil
	}
	if streak.ID == "" {
		streak.ID = uuid.NewString()
	}
	cp := *streak
	f.logins[key] = &cp
	return true, nil
}

type fakeBadges struct {
	items []models.Badge
	owned map[string]bool
}

func (f *fakeBadges) FindByID(ctx context.Context, classroomID, id string) (*models.Badge, error) {
	for _, b := range f.items {
		if b.ID == id && b.ClassroomID == classroomID {
			cp := b
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBadges) ListUnowned(ctx context.Context, classroomID, studentID string) ([]models.Badge, error) {
	var out []models.Badge
	for _, b := range f.items {
		if b.ClassroomID == classroomID && b.IsActive && !f.owned[studentID+"|"+b.ID] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBadges) Unlock(ctx context.Context, sb *models.StudentBadge) (bool, error) {
	if f.owned == nil {
		f.owned = map[string]bool{}
	}
	key := sb.StudentID + "|" + sb.BadgeID
	if f.owned[key] {
		return false, nil
	}
	f.owned[key] = true
	return true, nil
}

type fakeNotifications struct {
	items   []models.Notification
	batches int
	err     error
}

func (f *fakeNotifications) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.batches++
	f.items = append(f.items, notifications...)
	return nil
}

func (f *fakeNotifications) ofType(t models.NotificationType) []models.Notification {
	var out []models.Notification
	for _, n := range f.items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fakeDispatcher struct {
	dispatched []models.Notification
}

func (f *fakeDispatcher) Dispatch(notifications []models.Notification) {
	f.dispatched = append(f.dispatched, notifications...)
}

type progressionFixture struct {
	classrooms    *fakeClassrooms
	students      *fakeStudents
	logs          *fakePointLogs
	behaviors     *fakeBehaviors
	teams         *fakeTeams
	missions      *fakeMissions
	streaks       *fakeStreaks
	badges        *fakeBadges
	notifications *fakeNotifications
	dispatcher    *fakeDispatcher

	ledger    *PointLedger
	tracker   *MissionTracker
	evaluator *BadgeEvaluator
	emitter   *NotificationEmitter
	svc       *ProgressionService
	clock     time.Time
}

const (
	testClassroomID = "class-1"
	testTeacherID   = "teacher-1"
)

func strPtr(s string) *string { return &s }

func newProgressionFixture(t *testing.T) *progressionFixture {
	t.Helper()
	f := &progressionFixture{
		classrooms: &fakeClassrooms{items: map[string]*models.Classroom{
			testClassroomID: {
				ID:               testClassroomID,
				TeacherID:        testTeacherID,
				Name:             "5A",
				XPPerLevel:       100,
				MaxHP:            100,
				ClanXPPercentage: 50,
				ClansEnabled:     true,
				NotifyOnPoints:   true,
				LoginRewardXP:    5,
				LoginRewardGP:    2,
			},
		}},
		students: &fakeStudents{items: map[string]*models.StudentProfile{
			"stu-1": {ID: "stu-1", ClassroomID: testClassroomID, UserID: strPtr("user-1"), TeamID: strPtr("team-1"), DisplayName: "Ana", XP: 95, HP: 100, Level: 1},
			"stu-2": {ID: "stu-2", ClassroomID: testClassroomID, DisplayName: "Placeholder", HP: 100, Level: 1},
			"stu-x": {ID: "stu-x", ClassroomID: "class-2", UserID: strPtr("user-x"), HP: 100, Level: 1},
		}},
		logs:          &fakePointLogs{},
		teams:         &fakeTeams{},
		missions:      &fakeMissions{items: map[string]*models.StudentMissionDetail{}},
		streaks:       newFakeStreaks(),
		badges:        &fakeBadges{},
		notifications: &fakeNotifications{},
		dispatcher:    &fakeDispatcher{},
		clock:         time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.behaviors = &fakeBehaviors{logs: f.logs, items: map[string]*models.Behavior{
		"beh-good": {ID: "beh-good", ClassroomID: testClassroomID, Name: "Helped a classmate", Category: "teamwork", IsPositive: true, XPValue: 30, IsActive: true},
		"beh-bad":  {ID: "beh-bad", ClassroomID: testClassroomID, Name: "Late", Category: "punctuality", IsPositive: false, XPValue: 10, HPValue: 20, IsActive: true},
	}}

	now := func() time.Time { return f.clock }
	f.ledger = NewPointLedger(f.students, f.logs, nil, nil)
	levels := NewLevelCalculator(f.students, 100, nil)
	f.tracker = NewMissionTracker(f.missions, f.streaks, time.UTC, nil, nil)
	f.tracker.now = now
	f.evaluator = NewBadgeEvaluator(f.badges, f.behaviors, f.ledger, levels, nil, nil)
	f.evaluator.now = now
	f.emitter = NewNotificationEmitter(f.notifications, f.dispatcher, nil, nil)
	f.emitter.now = now
	pipeline := NewEffectPipeline(nil, nil,
		NewClanEffect(NewClanDistributor(f.teams, nil, nil)),
		NewMissionEffect(f.tracker, f.emitter),
		NewBadgeEffect(f.evaluator, f.emitter),
		NewNotificationEffect(f.emitter),
	)
	f.svc = NewProgressionService(ProgressionDeps{
		Classrooms: f.classrooms,
		Students:   f.students,
		Behaviors:  f.behaviors,
		Missions:   f.missions,
		Streaks:    f.streaks,
		Badges:     f.badges,
		Ledger:     f.ledger,
		Levels:     levels,
		Tracker:    f.tracker,
		Evaluator:  f.evaluator,
		Emitter:    f.emitter,
		Effects:    pipeline,
	})
	f.svc.now = now
	return f
}

func (f *progressionFixture) teacher() *models.JWTClaims {
	return &models.JWTClaims{UserID: testTeacherID, Role: models.RoleTeacher}
}

func (f *progressionFixture) studentActor(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func (f *progressionFixture) addMission(id, studentID string, objective models.ObjectiveType, target int) *models.StudentMissionDetail {
	m := &models.StudentMissionDetail{
		StudentMission: models.StudentMission{ID: id, StudentID: studentID, MissionID: "def-" + id, Status: models.MissionStatusActive},
		ClassroomID:     testClassroomID,
		Title:           "Mission " + id,
		ObjectiveType:   objective,
		ObjectiveTarget: target,
		RewardXP:        40,
		RewardGP:        10,
	}
	f.missions.items[id] = m
	return m
}

var errStore = errors.New("store unavailable")
