package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

const studentMissionDetailColumns = `sm.id, sm.student_id, sm.mission_id, sm.current_progress, sm.status, sm.expires_at, sm.completed_at, sm.claimed_at,
        m.classroom_id, m.title, m.objective_type, m.objective_target, m.objective_config, m.reward_xp, m.reward_gp`

// MissionRepository persists per-student mission progress.
type MissionRepository struct {
	db *sqlx.DB
}

// NewMissionRepository constructs a MissionRepository.
func NewMissionRepository(db *sqlx.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

// ListActive returns the student's ACTIVE, unexpired missions with the given
// objective type.
func (r *MissionRepository) ListActive(ctx context.Context, studentID string, objective models.ObjectiveType, now time.Time) ([]models.StudentMissionDetail, error) {
	query := `SELECT ` + studentMissionDetailColumns + `
FROM student_missions sm JOIN missions m ON m.id = sm.mission_id
WHERE sm.student_id = $1 AND sm.status = $2 AND m.objective_type = $3 AND (sm.expires_at IS NULL OR sm.expires_at > $4)
ORDER BY sm.id`
	var missions []models.StudentMissionDetail
	if err := r.db.SelectContext(ctx, &missions, query, studentID, models.MissionStatusActive, objective, now); err != nil {
		return nil, fmt.Errorf("list active missions: %w", err)
	}
	return missions, nil
}

// FindDetail returns one student mission with its definition.
func (r *MissionRepository) FindDetail(ctx context.Context, id string) (*models.StudentMissionDetail, error) {
	query := `SELECT ` + studentMissionDetailColumns + `
FROM student_missions sm JOIN missions m ON m.id = sm.mission_id WHERE sm.id = $1`
	var mission models.StudentMissionDetail
	if err := r.db.GetContext(ctx, &mission, query, id); err != nil {
		return nil, fmt.Errorf("find student mission: %w", err)
	}
	return &mission, nil
}

// UpdateProgress stores progress on a mission that is still ACTIVE. When
// completedAt is set the row moves to COMPLETED. It returns false when the
// row was no longer ACTIVE, so a completion is recorded at most once.
func (r *MissionRepository) UpdateProgress(ctx context.Context, id string, progress int, completedAt *time.Time) (bool, error) {
	status := models.MissionStatusActive
	if completedAt != nil {
		status = models.MissionStatusCompleted
	}
	res, err := r.db.ExecContext(ctx, `UPDATE student_missions SET current_progress = $1, status = $2, completed_at = $3
WHERE id = $4 AND status = $5`, progress, status, completedAt, id, models.MissionStatusActive)
	if err != nil {
		return false, fmt.Errorf("update mission progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update mission progress: rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkClaimed moves a COMPLETED mission to CLAIMED. It returns false when the
// mission was not in COMPLETED state.
func (r *MissionRepository) MarkClaimed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE student_missions SET status = $1, claimed_at = $2 WHERE id = $3 AND status = $4`,
		models.MissionStatusClaimed, at, id, models.MissionStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("claim mission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim mission: rows affected: %w", err)
	}
	return n > 0, nil
}
