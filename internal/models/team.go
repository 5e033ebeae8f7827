package models

import "time"

// Team is a classroom clan accumulating a shared XP pool.
type Team struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Name        string    `db:"name" json:"name"`
	TotalXP     int       `db:"total_xp" json:"total_xp"`
	MaxMembers  int       `db:"max_members" json:"max_members"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClanLogAction classifies clan history entries.
type ClanLogAction string

const (
	ClanLogXPContributed ClanLogAction = "XP_CONTRIBUTED"
	ClanLogMemberJoined  ClanLogAction = "MEMBER_JOINED"
	ClanLogMemberLeft    ClanLogAction = "MEMBER_LEFT"
)

// ClanLogEntry is an append-only clan history record. Team.TotalXP always
// equals the sum of its XP_CONTRIBUTED amounts.
type ClanLogEntry struct {
	ID        string        `db:"id" json:"id"`
	TeamID    string        `db:"team_id" json:"team_id"`
	StudentID *string       `db:"student_id" json:"student_id,omitempty"`
	Action    ClanLogAction `db:"action" json:"action"`
	XPAmount  int           `db:"xp_amount" json:"xp_amount"`
	Reason    string        `db:"reason" json:"reason"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}
