package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// ClassroomRepository reads classroom settings.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// FindByID returns the classroom or sql.ErrNoRows.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := `SELECT id, teacher_id, name, xp_per_level, max_hp, allow_negative_hp, clan_xp_percentage, clans_enabled,
        notify_on_points, show_reason_to_student, login_reward_xp, login_reward_gp, created_at, updated_at
FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, fmt.Errorf("find classroom: %w", err)
	}
	return &classroom, nil
}
