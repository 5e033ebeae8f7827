package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type classroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

// ClassroomProvider loads classroom settings, optionally through a read-through
// Redis cache. Cache failures degrade to a database read. Cached settings are
// only refreshed when the TTL expires.
type ClassroomProvider struct {
	repo    classroomRepository
	cache   CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	enabled bool
	logger  *zap.Logger
}

// NewClassroomProvider constructs a ClassroomProvider.
func NewClassroomProvider(repo classroomRepository, cache CacheRepository, metrics *MetricsService, ttl time.Duration, enabled bool, logger *zap.Logger) *ClassroomProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomProvider{repo: repo, cache: cache, metrics: metrics, ttl: ttl, enabled: enabled && cache != nil, logger: logger}
}

func classroomCacheKey(id string) string {
	return "classroom:settings:" + id
}

// Get returns the classroom or a NOT_FOUND error.
func (p *ClassroomProvider) Get(ctx context.Context, id string) (*models.Classroom, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroom id is required")
	}
	if p.enabled {
		var cached models.Classroom
		err := p.cache.Get(ctx, classroomCacheKey(id), &cached)
		switch {
		case err == nil:
			p.metrics.RecordCacheLookup(true)
			return &cached, nil
		case errors.Is(err, appErrors.ErrCacheMiss):
			p.metrics.RecordCacheLookup(false)
		default:
			p.metrics.RecordCacheLookup(false)
			p.logger.Warn("classroom cache get failed", zap.String("classroom_id", id), zap.Error(err))
		}
	}

	classroom, err := p.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Internal(err, "failed to load classroom")
	}

	if p.enabled {
		if err := p.cache.Set(ctx, classroomCacheKey(id), classroom, p.ttl); err != nil {
			p.logger.Warn("classroom cache set failed", zap.String("classroom_id", id), zap.Error(err))
		}
	}
	return classroom, nil
}
