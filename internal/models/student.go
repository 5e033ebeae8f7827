package models

import "time"

// StudentProfile is a student's gamified record inside one classroom.
type StudentProfile struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	TeamID      *string   `db:"team_id" json:"team_id,omitempty"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	DisplayName string    `db:"display_name" json:"display_name"`
	XP          int       `db:"xp" json:"xp"`
	HP          int       `db:"hp" json:"hp"`
	GP          int       `db:"gp" json:"gp"`
	Level       int       `db:"level" json:"level"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasAccount reports whether the profile is linked to a login account.
// Placeholder students created by a teacher have none.
func (s *StudentProfile) HasAccount() bool {
	return s != nil && s.UserID != nil && *s.UserID != ""
}

// StudentPointsUpdate enumerates the point fields PointLedger may write.
type StudentPointsUpdate struct {
	XP int `db:"xp"`
	HP int `db:"hp"`
	GP int `db:"gp"`
}
