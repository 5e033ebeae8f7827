package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jerson3105/juriv2-sub007/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and
// the reward propagation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec

	pointsApplied       *prometheus.CounterVec
	levelUps            prometheus.Counter
	clanContributions   prometheus.Counter
	missionsCompleted   prometheus.Counter
	badgesUnlocked      prometheus.Counter
	effectFailures      *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	realtimeDropped     prometheus.Counter
	propagationDuration *prometheus.HistogramVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_cache_lookups_total",
			Help: "Classroom settings cache lookups by result",
		}, []string{"result"}),
		pointsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_points_total",
			Help: "Points moved through the ledger by type and action",
		}, []string{"type", "action"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progression_level_ups_total",
			Help: "Level-ups recorded",
		}),
		clanContributions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progression_clan_xp_total",
			Help: "XP credited to clan pools",
		}),
		missionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progression_missions_completed_total",
			Help: "Student missions moved to COMPLETED",
		}),
		badgesUnlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progression_badges_unlocked_total",
			Help: "Badges granted",
		}),
		effectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_effect_failures_total",
			Help: "Suppressed post-commit effect failures",
		}, []string{"effect"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_notifications_total",
			Help: "Notifications stored by type",
		}, []string{"type"}),
		realtimeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_notifications_dropped_total",
			Help: "Notifications that could not be handed to the realtime channel",
		}),
		propagationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progression_propagation_seconds",
			Help:    "Duration of a full reward propagation by event kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLookups, m.pointsApplied, m.levelUps,
		m.clanContributions, m.missionsCompleted, m.badgesUnlocked, m.effectFailures, m.notifications,
		m.realtimeDropped, m.propagationDuration, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts a classroom cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordPoints counts a ledger log entry.
func (m *MetricsService) RecordPoints(pointType models.PointType, action models.PointAction, amount int) {
	if m == nil {
		return
	}
	m.pointsApplied.WithLabelValues(string(pointType), string(action)).Add(float64(amount))
}

// RecordLevelUp counts a level-up.
func (m *MetricsService) RecordLevelUp() {
	if m == nil {
		return
	}
	m.levelUps.Inc()
}

// RecordClanContribution counts XP credited to a clan.
func (m *MetricsService) RecordClanContribution(amount int) {
	if m == nil {
		return
	}
	m.clanContributions.Add(float64(amount))
}

// RecordMissionCompleted counts a mission completion.
func (m *MetricsService) RecordMissionCompleted() {
	if m == nil {
		return
	}
	m.missionsCompleted.Inc()
}

// RecordBadgeUnlocked counts a badge grant.
func (m *MetricsService) RecordBadgeUnlocked() {
	if m == nil {
		return
	}
	m.badgesUnlocked.Inc()
}

// RecordEffectFailure counts a suppressed side-effect failure.
func (m *MetricsService) RecordEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.effectFailures.WithLabelValues(effect).Inc()
}

// RecordNotification counts a stored notification.
func (m *MetricsService) RecordNotification(t models.NotificationType) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(t)).Inc()
}

// RecordRealtimeDrop counts a notification the realtime channel never received.
func (m *MetricsService) RecordRealtimeDrop() {
	if m == nil {
		return
	}
	m.realtimeDropped.Inc()
}

// ObservePropagation records the duration of one propagation.
func (m *MetricsService) ObservePropagation(event EventKind, duration time.Duration) {
	if m == nil {
		return
	}
	m.propagationDuration.WithLabelValues(string(event)).Observe(duration.Seconds())
}
