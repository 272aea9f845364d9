package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the aggregation
// pipeline.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	runDuration     *prometheus.HistogramVec
	runsTotal       *prometheus.CounterVec
	entitiesTotal   *prometheus.CounterVec
	alertsGenerated prometheus.Counter
	upsertDuration  *prometheus.HistogramVec
}

// NewMetricsService registers the pipeline collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aggregation_phase_duration_seconds",
		Help:    "Duration of aggregation run phases",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregation_runs_total",
		Help: "Total aggregation runs by outcome",
	}, []string{"status"})

	entitiesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregation_entities_processed_total",
		Help: "Entities processed per run by kind",
	}, []string{"entity"})

	alertsGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aggregation_alerts_generated_total",
		Help: "Alerts produced across runs",
	})

	upsertDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "summary_upsert_duration_seconds",
		Help:    "Duration of summary store upserts per table",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})

	registry.MustRegister(runDuration, runsTotal, entitiesTotal, alertsGenerated, upsertDuration)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runDuration:     runDuration,
		runsTotal:       runsTotal,
		entitiesTotal:   entitiesTotal,
		alertsGenerated: alertsGenerated,
		upsertDuration:  upsertDuration,
	}
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

// ObservePhase records one pipeline phase duration.
func (m *MetricsService) ObservePhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordRun counts a run outcome ("success" or "failure").
func (m *MetricsService) RecordRun(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

// AddEntities counts processed entities by kind.
func (m *MetricsService) AddEntities(entity string, count int) {
	if m == nil {
		return
	}
	m.entitiesTotal.WithLabelValues(entity).Add(float64(count))
}

// AddAlerts counts generated alerts.
func (m *MetricsService) AddAlerts(count int) {
	if m == nil {
		return
	}
	m.alertsGenerated.Add(float64(count))
}

// ObserveUpsert records a summary store write duration.
func (m *MetricsService) ObserveUpsert(table string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upsertDuration.WithLabelValues(table).Observe(duration.Seconds())
}
