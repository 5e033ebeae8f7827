package dto

import (
	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/internal/progression"
)

// StudentOutcome summarises everything one propagation did to one student.
type StudentOutcome struct {
	StudentID         string                `json:"student_id"`
	Delta             models.PointDelta     `json:"delta"`
	XP                int                   `json:"xp"`
	HP                int                   `json:"hp"`
	GP                int                   `json:"gp"`
	Level             int                   `json:"level"`
	LeveledUp         bool                  `json:"leveled_up"`
	ClanContribution  int                   `json:"clan_contribution"`
	CompletedMissions []string              `json:"completed_missions,omitempty"`
	UnlockedBadges    []models.Badge        `json:"unlocked_badges,omitempty"`
	FailedEffects     []string              `json:"failed_effects,omitempty"`
	Streak            *models.StudentStreak `json:"streak,omitempty"`
}

// BatchResult is returned by the multi-student event sources.
type BatchResult struct {
	ClassroomID string           `json:"classroom_id"`
	Reason      string           `json:"reason"`
	Students    []StudentOutcome `json:"students"`
}

// LoginClaimResult is returned by the daily login claim.
type LoginClaimResult struct {
	IsNewLogin bool               `json:"is_new_login"`
	Streak     models.LoginStreak `json:"streak"`
	Reward     models.PointDelta  `json:"reward"`
	Outcome    *StudentOutcome    `json:"outcome,omitempty"`
}

// MissionClaimResult is returned when a completed mission is claimed.
type MissionClaimResult struct {
	Mission models.StudentMissionDetail `json:"mission"`
	Outcome StudentOutcome              `json:"outcome"`
}

// MilestoneClaimResult is returned when a streak milestone is claimed.
type MilestoneClaimResult struct {
	Milestone models.StreakMilestone `json:"milestone"`
	Outcome   StudentOutcome         `json:"outcome"`
}

// BadgeAwardResult is returned by a manual badge award.
type BadgeAwardResult struct {
	Badge     models.Badge `json:"badge"`
	XP        int          `json:"xp"`
	GP        int          `json:"gp"`
	Level     int          `json:"level"`
	LeveledUp bool         `json:"leveled_up"`
}

// StudentProgressResponse describes a student's level and streak state.
type StudentProgressResponse struct {
	Student       models.StudentProfile     `json:"student"`
	Progress      progression.LevelProgress `json:"progress"`
	MissionStreak *models.StudentStreak     `json:"mission_streak,omitempty"`
	LoginStreak   *models.LoginStreak       `json:"login_streak,omitempty"`
}

// AwardBadgeRequest is the body of a manual badge award.
type AwardBadgeRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}
