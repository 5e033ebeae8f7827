package models

import (
	"strings"
	"time"
)

// Behavior is a teacher-defined reusable point award template.
//
// Older rows only populate PointType/PointValue; newer rows use the per-type
// XPValue/HPValue/GPValue columns. Delta folds both shapes into one PointDelta.
type Behavior struct {
	ID          string     `db:"id" json:"id"`
	ClassroomID string     `db:"classroom_id" json:"classroom_id"`
	Name        string     `db:"name" json:"name"`
	Category    string     `db:"category" json:"category"`
	IsPositive  bool       `db:"is_positive" json:"is_positive"`
	XPValue     int        `db:"xp_value" json:"xp_value"`
	HPValue     int        `db:"hp_value" json:"hp_value"`
	GPValue     int        `db:"gp_value" json:"gp_value"`
	PointType   *PointType `db:"point_type" json:"point_type,omitempty"`
	PointValue  *int       `db:"point_value" json:"point_value,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Delta returns the signed delta this behavior applies to a student.
// Stored values are magnitudes; negative behaviors subtract them.
func (b *Behavior) Delta() PointDelta {
	delta := PointDelta{XP: abs(b.XPValue), HP: abs(b.HPValue), GP: abs(b.GPValue)}
	if delta.IsZero() && b.PointType != nil && b.PointValue != nil {
		delta = PointDelta{}.With(PointType(strings.ToUpper(string(*b.PointType))), abs(*b.PointValue))
	}
	if !b.IsPositive {
		delta = delta.Negate()
	}
	return delta
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
