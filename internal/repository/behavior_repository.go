package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// BehaviorRepository reads behavior definitions and their application history.
type BehaviorRepository struct {
	db *sqlx.DB
}

// NewBehaviorRepository constructs a new repository.
func NewBehaviorRepository(db *sqlx.DB) *BehaviorRepository {
	return &BehaviorRepository{db: db}
}

// FindByID returns an active behavior of the classroom or sql.ErrNoRows.
func (r *BehaviorRepository) FindByID(ctx context.Context, classroomID, id string) (*models.Behavior, error) {
	query := `SELECT id, classroom_id, name, category, is_positive, xp_value, hp_value, gp_value, point_type, point_value, is_active, created_at, updated_at
FROM behaviors WHERE id = $1 AND classroom_id = $2 AND is_active = TRUE`
	var behavior models.Behavior
	if err := r.db.GetContext(ctx, &behavior, query, id, classroomID); err != nil {
		return nil, fmt.Errorf("find behavior: %w", err)
	}
	return &behavior, nil
}

// Stats counts behavior applications for a student. One application writes
// up to three point log rows sharing a timestamp, so rows are collapsed on
// (behavior_id, created_at) before counting.
func (r *BehaviorRepository) Stats(ctx context.Context, studentID string) (*models.BehaviorStats, error) {
	query := `SELECT b.id AS behavior_id, b.category, b.is_positive, COUNT(DISTINCT pl.created_at) AS applications
FROM point_logs pl JOIN behaviors b ON b.id = pl.behavior_id
WHERE pl.student_id = $1
GROUP BY b.id, b.category, b.is_positive`
	rows, err := r.db.QueryxContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("behavior stats: %w", err)
	}
	defer rows.Close()

	stats := &models.BehaviorStats{ByBehavior: map[string]int{}, ByCategory: map[string]int{}}
	for rows.Next() {
		var (
			behaviorID   string
			category     string
			isPositive   bool
			applications int
		)
		if err := rows.Scan(&behaviorID, &category, &isPositive, &applications); err != nil {
			return nil, fmt.Errorf("scan behavior stats: %w", err)
		}
		stats.ByBehavior[behaviorID] += applications
		if category != "" {
			stats.ByCategory[category] += applications
		}
		if isPositive {
			stats.Positive += applications
		} else {
			stats.Negative += applications
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate behavior stats: %w", err)
	}
	return stats, nil
}
