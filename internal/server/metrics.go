package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	orchestration "github.com/koscakluka/vocalis/core"
	"github.com/koscakluka/vocalis/core/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the server. It implements
// orchestration.Observer so sessions report into it directly.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	EventsTotal    *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec

	// HTTP surface metrics
	RequestsTotal       *prometheus.CounterVec
	CalibrationsTotal   *prometheus.CounterVec
	ReportAnalysesTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vocalis"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected assistant sessions",
		},
	)

	sessionsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of assistant sessions",
		},
	)

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Inbound session events by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Collaborator call duration by pipeline stage",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage", "status"},
	)

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	calibrationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibrations_total",
			Help:      "Processed calibration frames by status",
		},
		[]string{"status"},
	)

	reportAnalysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_analyses_total",
			Help:      "Medical report analyses by outcome",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(
		sessionsActive,
		sessionsTotal,
		eventsTotal,
		stageDuration,
		requestsTotal,
		calibrationsTotal,
		reportAnalysesTotal,
	)

	return &Metrics{
		registry:            registry,
		SessionsActive:      sessionsActive,
		SessionsTotal:       sessionsTotal,
		EventsTotal:         eventsTotal,
		StageDuration:       stageDuration,
		RequestsTotal:       requestsTotal,
		CalibrationsTotal:   calibrationsTotal,
		ReportAnalysesTotal: reportAnalysesTotal,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

func (m *Metrics) SessionEnded() {
	m.SessionsActive.Dec()
}

func (m *Metrics) EventHandled(kind events.Kind, outcome orchestration.Outcome) {
	m.EventsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (m *Metrics) StageCompleted(stage orchestration.Stage, elapsed time.Duration, err error) {
	status := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	m.StageDuration.WithLabelValues(string(stage), status).Observe(elapsed.Seconds())
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(route string, code int) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// RecordCalibration records the status of one processed frame.
func (m *Metrics) RecordCalibration(status string) {
	m.CalibrationsTotal.WithLabelValues(status).Inc()
}

// RecordReportAnalysis records the outcome of one report upload.
func (m *Metrics) RecordReportAnalysis(outcome string) {
	m.ReportAnalysesTotal.WithLabelValues(outcome).Inc()
}
