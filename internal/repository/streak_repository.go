package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// StreakRepository persists mission and login streak counters.
type StreakRepository struct {
	db *sqlx.DB
}

// NewStreakRepository constructs a StreakRepository.
func NewStreakRepository(db *sqlx.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// FindStreak returns the mission streak for (student, classroom) or sql.ErrNoRows.
func (r *StreakRepository) FindStreak(ctx context.Context, studentID, classroomID string) (*models.StudentStreak, error) {
	var streak models.StudentStreak
	query := `SELECT id, student_id, classroom_id, current_streak, longest_streak, last_completed_at, claimed_milestones, updated_at
FROM student_streaks WHERE student_id = $1 AND classroom_id = $2`
	if err := r.db.GetContext(ctx, &streak, query, studentID, classroomID); err != nil {
		return nil, fmt.Errorf("find student streak: %w", err)
	}
	return &streak, nil
}

// SaveStreak upserts the counters of a mission streak. Claimed milestones are
// left untouched on update; they only change through ClaimMilestone.
func (r *StreakRepository) SaveStreak(ctx context.Context, streak *models.StudentStreak) error {
	if streak.ID == "" {
		streak.ID = uuid.NewString()
	}
	if streak.ClaimedMilestones == nil {
		streak.ClaimedMilestones = []int64{}
	}
	streak.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO student_streaks (id, student_id, classroom_id, current_streak, longest_streak, last_completed_at, claimed_milestones, updated_at)
VALUES (:id, :student_id, :classroom_id, :current_streak, :longest_streak, :last_completed_at, :claimed_milestones, :updated_at)
ON CONFLICT (student_id, classroom_id) DO UPDATE SET current_streak = EXCLUDED.current_streak, longest_streak = EXCLUDED.longest_streak,
    last_completed_at = EXCLUDED.last_completed_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, streak); err != nil {
		return fmt.Errorf("save student streak: %w", err)
	}
	return nil
}

// ClaimMilestone records days as claimed. It returns false when it was
// already claimed.
func (r *StreakRepository) ClaimMilestone(ctx context.Context, streakID string, days int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE student_streaks SET claimed_milestones = array_append(claimed_milestones, $1), updated_at = $2
WHERE id = $3 AND NOT ($1 = ANY(claimed_milestones))`, days, time.Now().UTC(), streakID)
	if err != nil {
		return false, fmt.Errorf("claim streak milestone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim streak milestone: rows affected: %w", err)
	}
	return n > 0, nil
}

// FindLoginStreak returns the login streak for (student, classroom) or sql.ErrNoRows.
func (r *StreakRepository) FindLoginStreak(ctx context.Context, studentID, classroomID string) (*models.LoginStreak, error) {
	var streak models.LoginStreak
	query := `SELECT id, student_id, classroom_id, current_streak, longest_streak, total_logins, last_login_date, updated_at
FROM login_streaks WHERE student_id = $1 AND classroom_id = $2`
	if err := r.db.GetContext(ctx, &streak, query, studentID, classroomID); err != nil {
		return nil, fmt.Errorf("find login streak: %w", err)
	}
	return &streak, nil
}

// SaveLoginStreak upserts a login streak unless the stored row already holds
// the same login date. It returns false when nothing was written, which makes
// two claims racing on the same day resolve to a single new login.
func (r *StreakRepository) SaveLoginStreak(ctx context.Context, streak *models.LoginStreak) (bool, error) {
	if streak.ID == "" {
		streak.ID = uuid.NewString()
	}
	streak.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO login_streaks (id, student_id, classroom_id, current_streak, longest_streak, total_logins, last_login_date, updated_at)
VALUES (:id, :student_id, :classroom_id, :current_streak, :longest_streak, :total_logins, :last_login_date, :updated_at)
ON CONFLICT (student_id, classroom_id) DO UPDATE SET current_streak = EXCLUDED.current_streak, longest_streak = EXCLUDED.longest_streak,
    total_logins = EXCLUDED.total_logins, last_login_date = EXCLUDED.last_login_date, updated_at = EXCLUDED.updated_at
WHERE login_streaks.last_login_date IS DISTINCT FROM EXCLUDED.last_login_date`
	res, err := r.db.NamedExecContext(ctx, query, streak)
	if err != nil {
		return false, fmt.Errorf("save login streak: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save login streak: rows affected: %w", err)
	}
	return n > 0, nil
}
