package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// UnlockConditionType tags the variant of a badge unlock predicate.
type UnlockConditionType string

const (
	UnlockXPTotal          UnlockConditionType = "XP_TOTAL"
	UnlockLevel            UnlockConditionType = "LEVEL"
	UnlockBehaviorCount    UnlockConditionType = "BEHAVIOR_COUNT"
	UnlockBehaviorCategory UnlockConditionType = "BEHAVIOR_CATEGORY"
	UnlockAnyBehavior      UnlockConditionType = "ANY_BEHAVIOR"
	UnlockManual           UnlockConditionType = "MANUAL"
)

// UnlockCondition is the tagged unlock predicate stored as JSON. Only the
// fields relevant to Type are populated.
type UnlockCondition struct {
	Type       UnlockConditionType `json:"type"`
	Threshold  int                 `json:"threshold,omitempty"`
	Level      int                 `json:"level,omitempty"`
	BehaviorID string              `json:"behaviorId,omitempty"`
	Category   string              `json:"category,omitempty"`
	Count      int                 `json:"count,omitempty"`
	IsPositive *bool               `json:"isPositive,omitempty"`
}

// Value implements driver.Valuer.
func (c UnlockCondition) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *UnlockCondition) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// Badge is a collectible unlocked manually or by predicate.
type Badge struct {
	ID              string          `db:"id" json:"id"`
	ClassroomID     string          `db:"classroom_id" json:"classroom_id"`
	Name            string          `db:"name" json:"name"`
	Description     string          `db:"description" json:"description"`
	Icon            string          `db:"icon" json:"icon"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	UnlockCondition UnlockCondition `db:"unlock_condition" json:"unlock_condition"`
	RewardXP        int             `db:"reward_xp" json:"reward_xp"`
	RewardGP        int             `db:"reward_gp" json:"reward_gp"`
}

// StudentBadge records a badge unlocked by a student. At most one row exists
// per (student, badge).
type StudentBadge struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	BadgeID    string    `db:"badge_id" json:"badge_id"`
	AwardedBy  *string   `db:"awarded_by" json:"awarded_by,omitempty"`
	UnlockedAt time.Time `db:"unlocked_at" json:"unlocked_at"`
}

// BehaviorStats aggregates how often behaviors were applied to a student.
type BehaviorStats struct {
	ByBehavior map[string]int
	ByCategory map[string]int
	Positive   int
	Negative   int
}

// BadgeEventType labels what triggered a badge evaluation.
type BadgeEventType string

const (
	BadgeEventBehaviorApplied  BadgeEventType = "BEHAVIOR_APPLIED"
	BadgeEventPointsChanged    BadgeEventType = "POINTS_CHANGED"
	BadgeEventMissionCompleted BadgeEventType = "MISSION_COMPLETED"
	BadgeEventLogin            BadgeEventType = "LOGIN"
)

// BadgeEvent describes the gameplay event a badge evaluation reacts to.
type BadgeEvent struct {
	Type             BadgeEventType
	StudentID        string
	ClassroomID      string
	BehaviorID       string
	BehaviorCategory string
	IsPositive       *bool
}
