package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

const studentColumns = `id, classroom_id, team_id, user_id, display_name, xp, hp, gp, level, created_at, updated_at`

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a single profile or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	var student models.StudentProfile
	query := `SELECT ` + studentColumns + ` FROM student_profiles WHERE id = $1`
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("find student profile: %w", err)
	}
	return &student, nil
}

// FindByIDs loads the profiles of a classroom matching ids. Unknown ids, or
// ids belonging to another classroom, are simply absent from the result.
func (r *StudentRepository) FindByIDs(ctx context.Context, classroomID string, ids []string) ([]models.StudentProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + studentColumns + ` FROM student_profiles WHERE classroom_id = $1 AND id = ANY($2)`
	var students []models.StudentProfile
	if err := r.db.SelectContext(ctx, &students, query, classroomID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find student profiles: %w", err)
	}
	return students, nil
}

// UpdatePoints overwrites the point columns. The write is last-write-wins:
// concurrent mutations of the same row may lose an update.
func (r *StudentRepository) UpdatePoints(ctx context.Context, id string, update models.StudentPointsUpdate) error {
	query := `UPDATE student_profiles SET xp = $1, hp = $2, gp = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, update.XP, update.HP, update.GP, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update student points: %w", err)
	}
	return requireAffected(res, "update student points")
}

// UpdateLevel raises the stored level. Lower values are ignored so the level
// never decreases.
func (r *StudentRepository) UpdateLevel(ctx context.Context, id string, level int) error {
	query := `UPDATE student_profiles SET level = $1, updated_at = $2 WHERE id = $3 AND level < $1`
	if _, err := r.db.ExecContext(ctx, query, level, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update student level: %w", err)
	}
	return nil
}
