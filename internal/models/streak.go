package models

import (
	"time"

	"github.com/lib/pq"
)

// StudentStreak counts consecutive days with at least one completed mission.
type StudentStreak struct {
	ID                string        `db:"id" json:"id"`
	StudentID         string        `db:"student_id" json:"student_id"`
	ClassroomID       string        `db:"classroom_id" json:"classroom_id"`
	CurrentStreak     int           `db:"current_streak" json:"current_streak"`
	LongestStreak     int           `db:"longest_streak" json:"longest_streak"`
	LastCompletedAt   *time.Time    `db:"last_completed_at" json:"last_completed_at,omitempty"`
	ClaimedMilestones pq.Int64Array `db:"claimed_milestones" json:"claimed_milestones"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// HasClaimed reports whether the milestone for days was already rewarded.
func (s *StudentStreak) HasClaimed(days int) bool {
	for _, d := range s.ClaimedMilestones {
		if int(d) == days {
			return true
		}
	}
	return false
}

// LoginStreak tracks daily login claims for a student in a classroom.
type LoginStreak struct {
	ID            string     `db:"id" json:"id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	ClassroomID   string     `db:"classroom_id" json:"classroom_id"`
	CurrentStreak int        `db:"current_streak" json:"current_streak"`
	LongestStreak int        `db:"longest_streak" json:"longest_streak"`
	TotalLogins   int        `db:"total_logins" json:"total_logins"`
	LastLoginDate *time.Time `db:"last_login_date" json:"last_login_date,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StreakMilestone is a reward granted once when a mission streak reaches Days.
type StreakMilestone struct {
	Days     int `json:"days"`
	RewardXP int `json:"reward_xp"`
	RewardGP int `json:"reward_gp"`
}
