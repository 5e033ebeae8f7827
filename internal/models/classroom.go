package models

import "time"

// Classroom carries the per-classroom settings consumed by the engine.
type Classroom struct {
	ID                  string    `db:"id" json:"id"`
	TeacherID           string    `db:"teacher_id" json:"teacher_id"`
	Name                string    `db:"name" json:"name"`
	XPPerLevel          int       `db:"xp_per_level" json:"xp_per_level"`
	MaxHP               int       `db:"max_hp" json:"max_hp"`
	AllowNegativeHP     bool      `db:"allow_negative_hp" json:"allow_negative_hp"`
	ClanXPPercentage    int       `db:"clan_xp_percentage" json:"clan_xp_percentage"`
	ClansEnabled        bool      `db:"clans_enabled" json:"clans_enabled"`
	NotifyOnPoints      bool      `db:"notify_on_points" json:"notify_on_points"`
	ShowReasonToStudent bool      `db:"show_reason_to_student" json:"show_reason_to_student"`
	LoginRewardXP       int       `db:"login_reward_xp" json:"login_reward_xp"`
	LoginRewardGP       int       `db:"login_reward_gp" json:"login_reward_gp"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}
