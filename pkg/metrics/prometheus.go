package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	strength     *prometheus.GaugeVec
	confidence   *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorpulse_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		strength: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sectorpulse_correlation_strength",
				Help: "Latest correlation strength per sector and symbol",
			},
			[]string{"sector", "symbol"},
		),
		confidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sectorpulse_correlation_confidence",
				Help: "Latest correlation confidence per sector and symbol",
			},
			[]string{"sector", "symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCorrelation records the latest correlation outcome for a symbol.
func (r *Recorder) RecordCorrelation(sector, symbol string, strength, confidence float64) {
	r.strength.WithLabelValues(sector, symbol).Set(strength)
	r.confidence.WithLabelValues(sector, symbol).Set(confidence)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
