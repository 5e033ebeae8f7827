package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

func TestApplyBehaviorLevelsUpAndLogsOnce(t *testing.T) {
	f := newProgressionFixture(t)

	res, err := f.svc.ApplyBehavior(context.Background(), f.teacher(), ApplyBehaviorRequest{
		ClassroomID: testClassroomID,
		BehaviorID:  "beh-good",
		StudentIDs:  []string{"stu-1"},
	})
	require.NoError(t, err)
	require.Len(t, res.Students, 1)

	outcome := res.Students[0]
	assert.Equal(t, 125, outcome.XP)
	assert.Equal(t, 2, outcome.Level)
	assert.True(t, outcome.LeveledUp)
	assert.Empty(t, outcome.FailedEffects)

	stored := f.students.items["stu-1"]
	assert.Equal(t, 125, stored.XP)
	assert.Equal(t, 2, stored.Level)

	logs := f.logs.forStudent("stu-1")
	require.Len(t, logs, 1)
	assert.Equal(t, models.PointTypeXP, logs[0].PointType)
	assert.Equal(t, models.PointActionAdd, logs[0].Action)
	assert.Equal(t, 30, logs[0].Amount)
	assert.Equal(t, "Helped a classmate", logs[0].Reason)
	require.NotNil(t, logs[0].BehaviorID)
	assert.Equal(t, "beh-good", *logs[0].BehaviorID)
	require.NotNil(t, logs[0].GivenBy)
	assert.Equal(t, testTeacherID, *logs[0].GivenBy)

	levelUps := f.notifications.ofType(models.NotificationLevelUp)
	require.Len(t, levelUps, 2)
	recipients := []string{levelUps[0].UserID, levelUps[1].UserID}
	assert.ElementsMatch(t, []string{"user-1", testTeacherID}, recipients)
	assert.Len(t, f.notifications.ofType(models.NotificationPointsReceived), 1)
	assert.Len(t, f.dispatcher.dispatched, len(f.notifications.items))
}

func TestApplyBehaviorNegativeKeepsLevelAndClampsHP(t *testing.T) {
	f := newProgressionFixture(t)
	stu := f.students.items["stu-1"]
	stu.XP, stu.Level, stu.HP = 250, 3, 15

	res, err := f.svc.ApplyBehavior(context.Background(), f.teacher(), ApplyBehaviorRequest{
		ClassroomID: testClassroomID,
		BehaviorID:  "beh-bad",
		StudentIDs:  []string{"stu-1"},
	})
	require.NoError(t, err)

	outcome := res.Students[0]
	assert.Equal(t, 240, outcome.XP)
	assert.Equal(t, 0, outcome.HP)
	assert.Equal(t, 3, outcome.Level)
	assert.False(t, outcome.LeveledUp)
	assert.Zero(t, outcome.ClanContribution)

	logs := f.logs.forStudent("stu-1")
	require.Len(t, logs, 2)
	assert.Equal(t, models.PointTypeXP, logs[0].PointType)
	assert.Equal(t, models.PointActionRemove, logs[0].Action)
	assert.Equal(t, 10, logs[0].Amount)
	assert.Equal(t, models.PointTypeHP, logs[1].PointType)
	assert.Equal(t, 20, logs[1].Amount)
	assert.Equal(t, logs[0].CreatedAt, logs[1].CreatedAt)
	assert.Empty(t, f.teams.logs)
}

func TestApplyBehaviorAllowsNegativeHP(t *testing.T) {
	f := newProgressionFixture(t)
	f.classrooms.items[testClassroomID].AllowNegativeHP = true
	f.students.items["stu-1"].HP = 15

	res, err := f.svc.ApplyBehavior(context.Background(), f.teacher(), ApplyBehaviorRequest{
		ClassroomID: testClassroomID,
		BehaviorID:  "beh-bad",
		StudentIDs:  []string{"stu-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, -5, res.Students[0].HP)
}

func TestApplyPointsClanContribution(t *testing.T) {
	cases := []struct {
		name       string
		percentage int
		xp         int
		want       int
	}{
		{name: "half", percentage: 50, xp: 10, want: 5},
		{name: "below half a point", percentage: 4, xp: 10, want: 0},
		{name: "rounds up to one", percentage: 5, xp: 10, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newProgressionFixture(t)
			f.classrooms.items[testClassroomID].ClanXPPercentage = tc.percentage

			res, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
				ClassroomID: testClassroomID,
				StudentIDs:  []string{"stu-1"},
				XP:          tc.xp,
				Reason:      "Quiz",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Students[0].ClanContribution)
			assert.Equal(t, tc.want, f.teams.totals["team-1"])
			if tc.want == 0 {
				assert.Empty(t, f.teams.logs)
			} else {
				require.Len(t, f.teams.logs, 1)
				assert.Equal(t, models.ClanLogXPContributed, f.teams.logs[0].Action)
				assert.Equal(t, "Quiz", f.teams.logs[0].Reason)
			}
		})
	}
}

func TestApplyPointsClansDisabled(t *testing.T) {
	f := newProgressionFixture(t)
	f.classrooms.items[testClassroomID].ClansEnabled = false

	_, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID,
		StudentIDs:  []string{"stu-1"},
		XP:          40,
		Reason:      "Project",
	})
	require.NoError(t, err)
	assert.Empty(t, f.teams.logs)
}

func TestApplyPointsBatchesWrites(t *testing.T) {
	f := newProgressionFixture(t)

	res, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID,
		StudentIDs:  []string{"stu-1", "stu-2", "stu-1"},
		XP:          10,
		GP:          5,
		Reason:      "Homework",
	})
	require.NoError(t, err)
	require.Len(t, res.Students, 2)
	assert.Equal(t, "stu-1", res.Students[0].StudentID)
	assert.Equal(t, "stu-2", res.Students[1].StudentID)

	assert.Equal(t, 1, f.logs.batches)
	assert.Len(t, f.logs.entries, 4)
	assert.Equal(t, 1, f.notifications.batches)

	// Placeholder students get the reward but no notification.
	assert.Equal(t, 10, f.students.items["stu-2"].XP)
	for _, n := range f.notifications.items {
		assert.NotEmpty(t, n.UserID)
	}
}

func TestApplyPointsSideEffectFailuresAreSuppressed(t *testing.T) {
	f := newProgressionFixture(t)
	f.teams.err = errStore
	f.missions.err = errStore
	f.notifications.err = errStore

	res, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID,
		StudentIDs:  []string{"stu-1"},
		XP:          10,
		Reason:      "Quiz",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"clan", "mission"}, res.Students[0].FailedEffects)
	assert.Equal(t, 105, f.students.items["stu-1"].XP)
	assert.Len(t, f.logs.entries, 1)
}

func TestApplyPointsPrimaryFailureAborts(t *testing.T) {
	f := newProgressionFixture(t)
	f.students.updateErr = errStore

	_, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID,
		StudentIDs:  []string{"stu-1"},
		XP:          10,
		Reason:      "Quiz",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.logs.entries)
	assert.Empty(t, f.teams.logs)
}

func TestApplyPointsPartialFailureKeepsHistory(t *testing.T) {
	f := newProgressionFixture(t)
	f.students.updateErr = errStore
	f.students.failFor = "stu-2"

	_, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID,
		StudentIDs:  []string{"stu-1", "stu-2"},
		XP:          10,
		GP:          2,
		Reason:      "Quiz",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	assert.Equal(t, 105, f.students.items["stu-1"].XP)
	logs := f.logs.forStudent("stu-1")
	require.Len(t, logs, 2)
	assert.Equal(t, 10, logs[0].Amount)
	assert.Equal(t, 2, logs[1].Amount)
	assert.Empty(t, f.logs.forStudent("stu-2"))
	assert.Empty(t, f.teams.logs)
}

func TestApplyBehaviorRejectsZeroDelta(t *testing.T) {
	f := newProgressionFixture(t)
	f.behaviors.items["beh-empty"] = &models.Behavior{ID: "beh-empty", ClassroomID: testClassroomID, Name: "Noted", Category: "teamwork", IsPositive: true, IsActive: true}

	_, err := f.svc.ApplyBehavior(context.Background(), f.teacher(), ApplyBehaviorRequest{
		ClassroomID: testClassroomID,
		BehaviorID:  "beh-empty",
		StudentIDs:  []string{"stu-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.logs.entries)
	assert.Zero(t, f.students.pointUpdates)
	assert.Empty(t, f.notifications.items)
}

func TestApplyBehaviorRejectsInvalidCallers(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyBehavior(ctx, &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}, ApplyBehaviorRequest{
		ClassroomID: testClassroomID, BehaviorID: "beh-good", StudentIDs: []string{"stu-1"},
	})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.ApplyBehavior(ctx, nil, ApplyBehaviorRequest{
		ClassroomID: testClassroomID, BehaviorID: "beh-good", StudentIDs: []string{"stu-1"},
	})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = f.svc.ApplyBehavior(ctx, f.teacher(), ApplyBehaviorRequest{
		ClassroomID: testClassroomID, BehaviorID: "missing", StudentIDs: []string{"stu-1"},
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.ApplyBehavior(ctx, f.teacher(), ApplyBehaviorRequest{
		ClassroomID: testClassroomID, BehaviorID: "beh-good", StudentIDs: []string{"stu-1", "stu-x"},
	})
	assert.ErrorIs(t, err, appErrors.ErrStudentNotInClassroom)

	_, err = f.svc.ApplyBehavior(ctx, f.teacher(), ApplyBehaviorRequest{ClassroomID: testClassroomID, BehaviorID: "beh-good"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, f.logs.entries)
	assert.Equal(t, 0, f.students.pointUpdates)
}

func TestApplyBehaviorAdminBypassesOwnership(t *testing.T) {
	f := newProgressionFixture(t)
	_, err := f.svc.ApplyBehavior(context.Background(), &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, ApplyBehaviorRequest{
		ClassroomID: testClassroomID, BehaviorID: "beh-good", StudentIDs: []string{"stu-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, f.students.items["stu-2"].XP)
}

func TestApplyPointsRejectsZeroDelta(t *testing.T) {
	f := newProgressionFixture(t)
	_, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID, StudentIDs: []string{"stu-1"}, Reason: "nothing",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApplyPointsEnforcesBatchLimit(t *testing.T) {
	f := newProgressionFixture(t)
	f.svc.maxStudents = 1
	_, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID, StudentIDs: []string{"stu-1", "stu-2"}, XP: 5, Reason: "r",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApplyBehaviorAdvancesMissions(t *testing.T) {
	f := newProgressionFixture(t)
	f.addMission("m-xp", "stu-1", models.ObjectiveEarnXP, 50)
	receive := f.addMission("m-receive", "stu-1", models.ObjectiveReceiveBehavior, 1)
	receive.ObjectiveConfig = models.ObjectiveConfig{BehaviorID: "beh-good"}
	other := f.addMission("m-other", "stu-1", models.ObjectiveReceiveBehavior, 1)
	other.ObjectiveConfig = models.ObjectiveConfig{BehaviorID: "beh-bad"}
	f.addMission("m-positive", "stu-1", models.ObjectivePositiveBehaviors, 2)

	res, err := f.svc.ApplyBehavior(context.Background(), f.teacher(), ApplyBehaviorRequest{
		ClassroomID: testClassroomID, BehaviorID: "beh-good", StudentIDs: []string{"stu-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 30, f.missions.items["m-xp"].CurrentProgress)
	assert.Equal(t, models.MissionStatusCompleted, f.missions.items["m-receive"].Status)
	assert.Equal(t, 0, f.missions.items["m-other"].CurrentProgress)
	assert.Equal(t, 1, f.missions.items["m-positive"].CurrentProgress)
	assert.Equal(t, []string{"m-receive"}, res.Students[0].CompletedMissions)
	require.NotNil(t, res.Students[0].Streak)
	assert.Equal(t, 1, res.Students[0].Streak.CurrentStreak)
	assert.Len(t, f.notifications.ofType(models.NotificationMissionCompleted), 1)
}

func TestCompleteActivityMatchesActivityType(t *testing.T) {
	f := newProgressionFixture(t)
	quiz := f.addMission("m-quiz", "stu-1", models.ObjectiveCompleteActivity, 2)
	quiz.ObjectiveConfig = models.ObjectiveConfig{ActivityType: "QUIZ"}
	timer := f.addMission("m-timer", "stu-1", models.ObjectiveCompleteActivity, 2)
	timer.ObjectiveConfig = models.ObjectiveConfig{ActivityType: "TIMER"}

	res, err := f.svc.CompleteActivity(context.Background(), f.teacher(), CompleteActivityRequest{
		ClassroomID: testClassroomID, ActivityType: "QUIZ", StudentIDs: []string{"stu-1"}, XP: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "Activity completed: QUIZ", res.Reason)
	assert.Equal(t, 1, f.missions.items["m-quiz"].CurrentProgress)
	assert.Equal(t, 0, f.missions.items["m-timer"].CurrentProgress)
}

func TestApplyBehaviorUnlocksBehaviorCountBadge(t *testing.T) {
	f := newProgressionFixture(t)
	f.badges.items = []models.Badge{{
		ID: "badge-helper", ClassroomID: testClassroomID, Name: "Helper", IsActive: true, RewardGP: 10,
		UnlockCondition: models.UnlockCondition{Type: models.UnlockBehaviorCount, BehaviorID: "beh-good", Count: 2},
	}}
	req := ApplyBehaviorRequest{ClassroomID: testClassroomID, BehaviorID: "beh-good", StudentIDs: []string{"stu-2"}}

	res, err := f.svc.ApplyBehavior(context.Background(), f.teacher(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Students[0].UnlockedBadges)

	f.clock = f.clock.Add(time.Minute)
	res, err = f.svc.ApplyBehavior(context.Background(), f.teacher(), req)
	require.NoError(t, err)
	require.Len(t, res.Students[0].UnlockedBadges, 1)
	assert.Equal(t, 10, res.Students[0].GP)
	assert.Equal(t, 10, f.students.items["stu-2"].GP)
}

func TestHistoryGroupsEntries(t *testing.T) {
	f := newProgressionFixture(t)
	_, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
		ClassroomID: testClassroomID, StudentIDs: []string{"stu-1"}, XP: 10, HP: -5, GP: 3, Reason: "Combo",
	})
	require.NoError(t, err)

	items, page, err := f.svc.History(context.Background(), f.studentActor("user-1"), "stu-1", models.PointLogFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.PointDelta{XP: 10, HP: -5, GP: 3}, items[0].Delta)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	_, _, err = f.svc.History(context.Background(), f.studentActor("user-x"), "stu-1", models.PointLogFilter{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestHistoryPagesWholeEvents(t *testing.T) {
	f := newProgressionFixture(t)
	for i, reason := range []string{"First", "Second", "Third"} {
		f.clock = f.clock.Add(time.Duration(i+1) * time.Minute)
		_, err := f.svc.ApplyPoints(context.Background(), f.teacher(), ApplyPointsRequest{
			ClassroomID: testClassroomID, StudentIDs: []string{"stu-1"}, XP: 10, HP: -1, GP: 2, Reason: reason,
		})
		require.NoError(t, err)
	}
	require.Len(t, f.logs.forStudent("stu-1"), 9)

	var reasons []string
	for page := 1; page <= 2; page++ {
		items, p, err := f.svc.History(context.Background(), f.studentActor("user-1"), "stu-1", models.PointLogFilter{Page: page, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, p.TotalCount)
		for _, item := range items {
			assert.Equal(t, models.PointDelta{XP: 10, HP: -1, GP: 2}, item.Delta)
			reasons = append(reasons, item.Reason)
		}
	}
	assert.Equal(t, []string{"Third", "Second", "First"}, reasons)
}
