package models

import "time"

// PointType identifies one of the three point currencies.
type PointType string

const (
	PointTypeXP PointType = "XP"
	PointTypeHP PointType = "HP"
	PointTypeGP PointType = "GP"
)

// PointAction tells whether a log entry added or removed points.
type PointAction string

const (
	PointActionAdd    PointAction = "ADD"
	PointActionRemove PointAction = "REMOVE"
)

// PointDelta is a signed change to a student's XP, HP and GP.
type PointDelta struct {
	XP int `json:"xp"`
	HP int `json:"hp"`
	GP int `json:"gp"`
}

// IsZero reports whether no component changes.
func (d PointDelta) IsZero() bool {
	return d.XP == 0 && d.HP == 0 && d.GP == 0
}

// Negate flips the sign of every component.
func (d PointDelta) Negate() PointDelta {
	return PointDelta{XP: -d.XP, HP: -d.HP, GP: -d.GP}
}

// Add sums two deltas.
func (d PointDelta) Add(o PointDelta) PointDelta {
	return PointDelta{XP: d.XP + o.XP, HP: d.HP + o.HP, GP: d.GP + o.GP}
}

// With returns a copy with the component for t set to amount.
func (d PointDelta) With(t PointType, amount int) PointDelta {
	switch t {
	case PointTypeXP:
		d.XP = amount
	case PointTypeHP:
		d.HP = amount
	case PointTypeGP:
		d.GP = amount
	}
	return d
}

// Components returns the non-zero components in XP, HP, GP order.
func (d PointDelta) Components() []PointComponent {
	out := make([]PointComponent, 0, 3)
	for _, c := range []PointComponent{{PointTypeXP, d.XP}, {PointTypeHP, d.HP}, {PointTypeGP, d.GP}} {
		if c.Amount != 0 {
			out = append(out, c)
		}
	}
	return out
}

// PointComponent is one signed component of a PointDelta.
type PointComponent struct {
	Type   PointType
	Amount int
}

// PointLogEntry is an immutable audit record of a single point mutation.
type PointLogEntry struct {
	ID         string      `db:"id" json:"id"`
	StudentID  string      `db:"student_id" json:"student_id"`
	PointType  PointType   `db:"point_type" json:"point_type"`
	Action     PointAction `db:"action" json:"action"`
	Amount     int         `db:"amount" json:"amount"`
	Reason     string      `db:"reason" json:"reason"`
	BehaviorID *string     `db:"behavior_id" json:"behavior_id,omitempty"`
	GivenBy    *string     `db:"given_by" json:"given_by,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// PointLogFilter narrows point history queries.
type PointLogFilter struct {
	StudentID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// PointHistoryItem regroups the per-type log rows written for one event.
type PointHistoryItem struct {
	Reason     string     `json:"reason"`
	BehaviorID *string    `json:"behavior_id,omitempty"`
	Delta      PointDelta `json:"delta"`
	CreatedAt  time.Time  `json:"created_at"`
}
