package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	TurnsTotal    *prometheus.CounterVec
	TurnDuration  *prometheus.HistogramVec
	TurnsInFlight prometheus.Gauge

	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec

	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration prometheus.Histogram
	AutofixRetriesTotal     *prometheus.CounterVec

	SessionHitsTotal   prometheus.Counter
	SessionMissesTotal prometheus.Counter
	ActiveSessions     prometheus.Gauge

	RateLimitHitsTotal *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tour_bot_turns_total",
				Help: "Total number of dialogue turns processed",
			},
			[]string{"outcome"},
		),
		TurnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tour_bot_turn_duration_seconds",
				Help:    "Dialogue turn duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		TurnsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tour_bot_turns_in_flight",
				Help: "Number of turns currently being processed",
			},
		),

		ExtractionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tour_bot_extractions_total",
				Help: "Total number of extraction attempts",
			},
			[]string{"strategy", "status"},
		),
		ExtractionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tour_bot_extraction_duration_seconds",
				Help:    "Extraction duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"strategy"},
		),

		UpstreamRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tour_bot_upstream_requests_total",
				Help: "Total number of search API requests",
			},
			[]string{"status"},
		),
		UpstreamRequestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tour_bot_upstream_request_duration_seconds",
				Help:    "Search API request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
		),
		AutofixRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tour_bot_autofix_retries_total",
				Help: "Total number of automatic retries after upstream errors",
			},
			[]string{"code"},
		),

		SessionHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tour_bot_session_hits_total",
				Help: "Total number of session cache hits",
			},
		),
		SessionMissesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tour_bot_session_misses_total",
				Help: "Total number of session cache misses",
			},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tour_bot_active_sessions",
				Help: "Number of live dialogue sessions",
			},
		),

		RateLimitHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tour_bot_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"user_id"},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordTurn(outcome string, duration time.Duration) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordExtraction(strategy, status string) {
	m.ExtractionsTotal.WithLabelValues(strategy, status).Inc()
}

func (m *Metrics) ObserveExtraction(strategy string, duration time.Duration) {
	m.ExtractionDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

func (m *Metrics) RecordUpstreamRequest(status string, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(status).Inc()
	m.UpstreamRequestDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordAutofixRetry(code string) {
	m.AutofixRetriesTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordSessionHit() {
	m.SessionHitsTotal.Inc()
}

func (m *Metrics) RecordSessionMiss() {
	m.SessionMissesTotal.Inc()
}

func (m *Metrics) SetActiveSessions(count float64) {
	m.ActiveSessions.Set(count)
}

func (m *Metrics) RecordRateLimitHit(userID string) {
	m.RateLimitHitsTotal.WithLabelValues(userID).Inc()
}

func (m *Metrics) IncTurnsInFlight() {
	m.TurnsInFlight.Inc()
}

func (m *Metrics) DecTurnsInFlight() {
	m.TurnsInFlight.Dec()
}
