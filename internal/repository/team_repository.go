package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// TeamRepository persists clan aggregates and their history.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs a TeamRepository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Contribute adds amount to the team pool and appends the matching
// XP_CONTRIBUTED history row in one transaction so the pool always equals the
// sum of its contributions.
func (r *TeamRepository) Contribute(ctx context.Context, entry *models.ClanLogEntry) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clan contribution: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var total int
	if err := tx.QueryRowxContext(ctx, `UPDATE teams SET total_xp = total_xp + $1, updated_at = $2 WHERE id = $3 RETURNING total_xp`,
		entry.XPAmount, now, entry.TeamID).Scan(&total); err != nil {
		return 0, fmt.Errorf("increment team xp: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Action = models.ClanLogXPContributed
	entry.CreatedAt = now
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO clan_logs (id, team_id, student_id, action, xp_amount, reason, created_at)
VALUES (:id, :team_id, :student_id, :action, :xp_amount, :reason, :created_at)`, entry); err != nil {
		return 0, fmt.Errorf("insert clan log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clan contribution: %w", err)
	}
	commit = true
	return total, nil
}
