package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

const badgeColumns = `b.id, b.classroom_id, b.name, b.description, b.icon, b.is_active, b.unlock_condition, b.reward_xp, b.reward_gp`

// BadgeRepository persists badge definitions and unlocks.
type BadgeRepository struct {
	db *sqlx.DB
}

// NewBadgeRepository constructs a BadgeRepository.
func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// FindByID returns a badge of the classroom or sql.ErrNoRows.
func (r *BadgeRepository) FindByID(ctx context.Context, classroomID, id string) (*models.Badge, error) {
	var badge models.Badge
	query := `SELECT ` + badgeColumns + ` FROM badges b WHERE b.id = $1 AND b.classroom_id = $2`
	if err := r.db.GetContext(ctx, &badge, query, id, classroomID); err != nil {
		return nil, fmt.Errorf("find badge: %w", err)
	}
	return &badge, nil
}

// ListUnowned returns the active badges of a classroom the student has not
// unlocked yet.
func (r *BadgeRepository) ListUnowned(ctx context.Context, classroomID, studentID string) ([]models.Badge, error) {
	query := `SELECT ` + badgeColumns + `
FROM badges b
WHERE b.classroom_id = $1 AND b.is_active = TRUE
  AND NOT EXISTS (SELECT 1 FROM student_badges sb WHERE sb.badge_id = b.id AND sb.student_id = $2)
ORDER BY b.name`
	var badges []models.Badge
	if err := r.db.SelectContext(ctx, &badges, query, classroomID, studentID); err != nil {
		return nil, fmt.Errorf("list unowned badges: %w", err)
	}
	return badges, nil
}

// Unlock inserts a StudentBadge. It returns false when the student already
// owned the badge; the (student_id, badge_id) unique key guarantees a badge is
// granted once even under concurrent evaluation.
func (r *BadgeRepository) Unlock(ctx context.Context, sb *models.StudentBadge) (bool, error) {
	if sb.ID == "" {
		sb.ID = uuid.NewString()
	}
	if sb.UnlockedAt.IsZero() {
		sb.UnlockedAt = time.Now().UTC()
	}
	query := `INSERT INTO student_badges (id, student_id, badge_id, awarded_by, unlocked_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id, badge_id) DO NOTHING RETURNING id`
	var id string
	if err := r.db.QueryRowxContext(ctx, query, sb.ID, sb.StudentID, sb.BadgeID, sb.AwardedBy, sb.UnlockedAt).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("unlock badge: %w", err)
	}
	return true, nil
}
