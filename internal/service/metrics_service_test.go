package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
		m.RecordCacheLookup(true)
		m.RecordPoints(models.PointTypeXP, models.PointActionAdd, 10)
		m.RecordLevelUp()
		m.RecordClanContribution(5)
		m.RecordMissionCompleted()
		m.RecordBadgeUnlocked()
		m.RecordEffectFailure("clan")
		m.RecordNotification(models.NotificationLevelUp)
		m.RecordRealtimeDrop()
		m.ObservePropagation(EventManualPoints, time.Millisecond)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServiceRecordsProgression(t *testing.T) {
	m := NewMetricsService()
	m.RecordPoints(models.PointTypeXP, models.PointActionAdd, 30)
	m.RecordPoints(models.PointTypeXP, models.PointActionAdd, 5)
	m.RecordClanContribution(15)
	m.RecordLevelUp()
	m.ObservePropagation(EventBehaviorApplied, 20*time.Millisecond)

	assert.Equal(t, float64(35), testutil.ToFloat64(m.pointsApplied.WithLabelValues("XP", "ADD")))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.clanContributions))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.levelUps))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "progression_propagation_seconds")
}
