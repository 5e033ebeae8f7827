package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ObjectiveType tags the kind of progress a mission counts.
type ObjectiveType string

const (
	ObjectiveEarnXP            ObjectiveType = "EARN_XP"
	ObjectiveEarnGP            ObjectiveType = "EARN_GP"
	ObjectiveReceiveBehavior   ObjectiveType = "RECEIVE_BEHAVIOR"
	ObjectivePositiveBehaviors ObjectiveType = "POSITIVE_BEHAVIORS"
	ObjectiveCompleteActivity  ObjectiveType = "COMPLETE_ACTIVITY"
	ObjectiveDailyLogin        ObjectiveType = "DAILY_LOGIN"
)

// StudentMissionStatus is the lifecycle state of an assigned mission.
type StudentMissionStatus string

const (
	MissionStatusActive    StudentMissionStatus = "ACTIVE"
	MissionStatusCompleted StudentMissionStatus = "COMPLETED"
	MissionStatusClaimed   StudentMissionStatus = "CLAIMED"
	MissionStatusExpired   StudentMissionStatus = "EXPIRED"
)

// ObjectiveConfig narrows which events count toward a mission. Empty fields
// match anything.
type ObjectiveConfig struct {
	BehaviorID   string `json:"behaviorId,omitempty"`
	ActivityType string `json:"activityType,omitempty"`
}

// Matches reports whether an event carrying ev satisfies the constraint c.
func (c ObjectiveConfig) Matches(ev ObjectiveConfig) bool {
	if c.BehaviorID != "" && c.BehaviorID != ev.BehaviorID {
		return false
	}
	if c.ActivityType != "" && c.ActivityType != ev.ActivityType {
		return false
	}
	return true
}

// Value implements driver.Valuer.
func (c ObjectiveConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *ObjectiveConfig) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// Mission is a static goal definition.
type Mission struct {
	ID              string          `db:"id" json:"id"`
	ClassroomID     string          `db:"classroom_id" json:"classroom_id"`
	Title           string          `db:"title" json:"title"`
	ObjectiveType   ObjectiveType   `db:"objective_type" json:"objective_type"`
	ObjectiveTarget int             `db:"objective_target" json:"objective_target"`
	ObjectiveConfig ObjectiveConfig `db:"objective_config" json:"objective_config"`
	RewardXP        int             `db:"reward_xp" json:"reward_xp"`
	RewardGP        int             `db:"reward_gp" json:"reward_gp"`
}

// StudentMission tracks one student's progress on a mission.
type StudentMission struct {
	ID              string               `db:"id" json:"id"`
	StudentID       string               `db:"student_id" json:"student_id"`
	MissionID       string               `db:"mission_id" json:"mission_id"`
	CurrentProgress int                  `db:"current_progress" json:"current_progress"`
	Status          StudentMissionStatus `db:"status" json:"status"`
	ExpiresAt       *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CompletedAt     *time.Time           `db:"completed_at" json:"completed_at,omitempty"`
	ClaimedAt       *time.Time           `db:"claimed_at" json:"claimed_at,omitempty"`
}

// StudentMissionDetail joins a StudentMission with its definition.
type StudentMissionDetail struct {
	StudentMission
	ClassroomID     string          `db:"classroom_id" json:"classroom_id"`
	Title           string          `db:"title" json:"title"`
	ObjectiveType   ObjectiveType   `db:"objective_type" json:"objective_type"`
	ObjectiveTarget int             `db:"objective_target" json:"objective_target"`
	ObjectiveConfig ObjectiveConfig `db:"objective_config" json:"objective_config"`
	RewardXP        int             `db:"reward_xp" json:"reward_xp"`
	RewardGP        int             `db:"reward_gp" json:"reward_gp"`
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported json source %T", src)
	}
}
