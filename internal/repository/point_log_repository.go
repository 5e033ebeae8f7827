package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// PointLogRepository appends and reads the immutable point audit trail.
type PointLogRepository struct {
	db *sqlx.DB
}

// NewPointLogRepository constructs a PointLogRepository.
func NewPointLogRepository(db *sqlx.DB) *PointLogRepository {
	return &PointLogRepository{db: db}
}

// InsertBatch appends all entries in a single statement.
func (r *PointLogRepository) InsertBatch(ctx context.Context, entries []models.PointLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const cols = 9
	args := make([]interface{}, 0, len(entries)*cols)
	now := time.Now().UTC()
	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		args = append(args, e.ID, e.StudentID, e.PointType, e.Action, e.Amount, e.Reason, e.BehaviorID, e.GivenBy, e.CreatedAt)
	}
	query := `INSERT INTO point_logs (id, student_id, point_type, action, amount, reason, behavior_id, given_by, created_at) VALUES ` +
		valuesClause(len(entries), cols)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert point logs: %w", err)
	}
	return nil
}

// List returns one page of history events for a student, newest first. An
// event is the set of rows sharing created_at and reason (one row per point
// type), so pages never split an event and the total counts events.
func (r *PointLogRepository) List(ctx context.Context, filter models.PointLogFilter) ([]models.PointLogEntry, int, error) {
	where := []string{"student_id = $1"}
	args := []interface{}{filter.StudentID}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	query := fmt.Sprintf(`WITH events AS (
	SELECT created_at, reason FROM point_logs WHERE %s
	GROUP BY created_at, reason
	ORDER BY created_at DESC, reason
	LIMIT %d OFFSET %d
)
SELECT l.id, l.student_id, l.point_type, l.action, l.amount, l.reason, l.behavior_id, l.given_by, l.created_at
FROM point_logs l
JOIN events e ON l.created_at = e.created_at AND l.reason = e.reason
WHERE l.student_id = $1
ORDER BY l.created_at DESC, l.reason, l.point_type`, whereClause, size, (page-1)*size)
	var entries []models.PointLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list point logs: %w", err)
	}
	var total int
	countQuery := "SELECT COUNT(*) FROM (SELECT 1 FROM point_logs WHERE " + whereClause + " GROUP BY created_at, reason) grouped"
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count point log events: %w", err)
	}
	return entries, total, nil
}
