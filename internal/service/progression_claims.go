package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/dto"
	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/internal/progression"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
	"github.com/jerson3105/juriv2-sub007/pkg/logger"
)

// loginBonusInterval marks the consecutive-day count on which the login
// reward is doubled.
const loginBonusInterval = 7

var streakMilestones = map[int]models.StreakMilestone{
	3:  {Days: 3, RewardXP: 20, RewardGP: 10},
	7:  {Days: 7, RewardXP: 50, RewardGP: 25},
	14: {Days: 14, RewardXP: 100, RewardGP: 50},
	30: {Days: 30, RewardXP: 250, RewardGP: 100},
}

// StreakMilestones lists the claimable mission streak milestones in order.
func StreakMilestones() []models.StreakMilestone {
	out := make([]models.StreakMilestone, 0, len(streakMilestones))
	for _, m := range streakMilestones {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Days < out[j].Days })
	return out
}

// ClaimDailyLogin records today's login for a student. Only the first claim of
// a calendar day counts; later claims return IsNewLogin=false and change
// nothing.
func (s *ProgressionService) ClaimDailyLogin(ctx context.Context, actor *models.JWTClaims, studentID string) (*dto.LoginClaimResult, error) {
	student, classroom, err := s.authorizedStudent(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}

	streak, err := s.streaks.FindLoginStreak(ctx, student.ID, classroom.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load login streak")
		}
		streak = &models.LoginStreak{StudentID: student.ID, ClassroomID: classroom.ID}
	}

	today := progression.CivilDate(s.now(), s.loc)
	step := progression.AdvanceStreak(streak.CurrentStreak, streak.LongestStreak, streak.LastLoginDate, today, nil)
	if !step.Advanced {
		return &dto.LoginClaimResult{IsNewLogin: false, Streak: *streak}, nil
	}

	next := *streak
	next.CurrentStreak = step.Current
	next.LongestStreak = step.Longest
	next.TotalLogins++
	next.LastLoginDate = &today
	saved, err := s.streaks.SaveLoginStreak(ctx, &next)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save login streak")
	}
	if !saved {
		return &dto.LoginClaimResult{IsNewLogin: false, Streak: *streak}, nil
	}

	reward := models.PointDelta{XP: classroom.LoginRewardXP, GP: classroom.LoginRewardGP}
	reason := "Daily login"
	if next.CurrentStreak%loginBonusInterval == 0 {
		reward = reward.Add(reward)
		reason = fmt.Sprintf("Daily login (%d-day streak bonus)", next.CurrentStreak)
	}
	outcome, err := s.propagateOne(ctx, classroom, student, reward, reason, PointSource{}, ProgressEvent{Kind: EventDailyLogin})
	if err != nil {
		return nil, err
	}
	return &dto.LoginClaimResult{IsNewLogin: true, Streak: next, Reward: reward, Outcome: &outcome}, nil
}

// ClaimMissionReward moves a COMPLETED mission to CLAIMED and pays its reward.
func (s *ProgressionService) ClaimMissionReward(ctx context.Context, actor *models.JWTClaims, studentMissionID string) (*dto.MissionClaimResult, error) {
	if studentMissionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mission id is required")
	}
	mission, err := s.missions.FindDetail(ctx, studentMissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mission not found")
		}
		return nil, appErrors.Internal(err, "failed to load mission")
	}
	student, classroom, err := s.authorizedStudent(ctx, actor, mission.StudentID)
	if err != nil {
		return nil, err
	}
	if mission.Status != models.MissionStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrMissionNotClaimable, fmt.Sprintf("mission is %s", mission.Status))
	}

	at := s.now().UTC()
	claimed, err := s.missions.MarkClaimed(ctx, mission.ID, at)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to claim mission")
	}
	if !claimed {
		return nil, appErrors.Clone(appErrors.ErrMissionNotClaimable, "mission was already claimed")
	}
	mission.Status = models.MissionStatusClaimed
	mission.ClaimedAt = &at

	outcome, err := s.propagateOne(ctx, classroom, student, models.PointDelta{XP: mission.RewardXP, GP: mission.RewardGP},
		"Mission reward: "+mission.Title, PointSource{}, ProgressEvent{Kind: EventMissionReward})
	if err != nil {
		return nil, err
	}
	return &dto.MissionClaimResult{Mission: *mission, Outcome: outcome}, nil
}

// ClaimStreakMilestone pays a mission streak milestone once the current
// streak reached it. Each milestone pays at most once per student.
func (s *ProgressionService) ClaimStreakMilestone(ctx context.Context, actor *models.JWTClaims, studentID string, days int) (*dto.MilestoneClaimResult, error) {
	milestone, ok := streakMilestones[days]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no streak milestone for %d days", days))
	}
	student, classroom, err := s.authorizedStudent(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	streak, err := s.streaks.FindStreak(ctx, student.ID, classroom.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMilestoneNotReached, "no mission streak yet")
		}
		return nil, appErrors.Internal(err, "failed to load mission streak")
	}
	if streak.HasClaimed(days) {
		return nil, appErrors.Clone(appErrors.ErrMilestoneClaimed, "")
	}
	if streak.CurrentStreak < days {
		return nil, appErrors.Clone(appErrors.ErrMilestoneNotReached, fmt.Sprintf("current streak is %d days", streak.CurrentStreak))
	}
	claimed, err := s.streaks.ClaimMilestone(ctx, streak.ID, days)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to claim streak milestone")
	}
	if !claimed {
		return nil, appErrors.Clone(appErrors.ErrMilestoneClaimed, "")
	}

	outcome, err := s.propagateOne(ctx, classroom, student, models.PointDelta{XP: milestone.RewardXP, GP: milestone.RewardGP},
		fmt.Sprintf("%d-day mission streak", days), PointSource{}, ProgressEvent{Kind: EventStreakMilestone})
	if err != nil {
		return nil, err
	}
	return &dto.MilestoneClaimResult{Milestone: milestone, Outcome: outcome}, nil
}

// AwardBadge grants a badge manually. The badge reward is paid through the
// ledger; no other effects run.
func (s *ProgressionService) AwardBadge(ctx context.Context, actor *models.JWTClaims, classroomID, badgeID, studentID string) (*dto.BadgeAwardResult, error) {
	classroom, err := s.teacherClassroom(ctx, actor, classroomID)
	if err != nil {
		return nil, err
	}
	badge, err := s.badges.FindByID(ctx, classroom.ID, badgeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "badge not found")
		}
		return nil, appErrors.Internal(err, "failed to load badge")
	}
	if !badge.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "badge not found")
	}
	students, err := s.loadStudents(ctx, classroom, []string{studentID})
	if err != nil {
		return nil, err
	}
	student := students[0]

	grant, err := s.evaluator.Award(ctx, badge, student, classroom, actor.UserID)
	if err != nil {
		return nil, err
	}

	outbox := NewNotificationOutbox()
	s.emitter.BadgeUnlocked(outbox, student, classroom, grant.Badge)
	s.emitter.LevelUp(outbox, student, classroom, grant.Level)
	if err := s.emitter.Flush(ctx, outbox); err != nil {
		s.metrics.RecordEffectFailure("notification_flush")
		logger.FromContext(ctx, s.logger).Error("notification flush failed", zap.String("badge_id", badge.ID), zap.Error(err))
	}
	return &dto.BadgeAwardResult{
		Badge:     grant.Badge,
		XP:        student.XP,
		GP:        student.GP,
		Level:     student.Level,
		LeveledUp: grant.Level.LeveledUp,
	}, nil
}

// StudentProgress returns a student's level progress and streak counters.
func (s *ProgressionService) StudentProgress(ctx context.Context, actor *models.JWTClaims, studentID string) (*dto.StudentProgressResponse, error) {
	student, classroom, err := s.authorizedStudent(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	resp := &dto.StudentProgressResponse{
		Student:  *student,
		Progress: progression.Progress(student.XP, s.levels.XPPerLevel(classroom)),
	}
	// Stored levels are sticky, so they can be ahead of the XP curve.
	if resp.Progress.Level < student.Level {
		resp.Progress.Level = student.Level
	}

	streak, err := s.streaks.FindStreak(ctx, student.ID, classroom.ID)
	switch {
	case err == nil:
		resp.MissionStreak = streak
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load mission streak")
	}
	login, err := s.streaks.FindLoginStreak(ctx, student.ID, classroom.ID)
	switch {
	case err == nil:
		resp.LoginStreak = login
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load login streak")
	}
	return resp, nil
}
