package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the service-level metrics exposed by namestream
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	EntriesIngested    *prometheus.CounterVec
	PairsMatched       prometheus.Counter
	UnpairedTotal      *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	SpillRuns          *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	BytesReceived      prometheus.Counter
	BytesSent          prometheus.Counter
	InFlight           prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all service metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "requests",
				Name:      "total",
				Help:      "Total number of combine-names requests",
			},
			[]string{"status"},
		),

		EntriesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "ingest",
				Name:      "entries_total",
				Help:      "Total number of name entries decoded from request bodies",
			},
			[]string{"side"},
		),

		PairsMatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "merge",
				Name:      "pairs_total",
				Help:      "Total number of matched full-name pairs emitted",
			},
		),

		UnpairedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "merge",
				Name:      "unpaired_total",
				Help:      "Total number of unpaired entries emitted",
			},
			[]string{"side"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "namestream",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Request processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		SpillRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "spill",
				Name:      "runs_total",
				Help:      "Total number of sorted runs spilled to disk",
			},
			[]string{"side"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by classification",
			},
			[]string{"class"},
		),

		BytesReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "gateway",
				Name:      "bytes_received_total",
				Help:      "Total bytes received in request bodies",
			},
		),

		BytesSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "namestream",
				Subsystem: "gateway",
				Name:      "bytes_sent_total",
				Help:      "Total bytes sent in responses",
			},
		),

		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "namestream",
				Subsystem: "gateway",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
	}
}

// RecordRequest increments the request counter for a terminal status
func (m *Metrics) RecordRequest(status string) {
	m.RequestsTotal.WithLabelValues(status).Inc()
}

// RecordEntriesIngested adds decoded entries for one side
func (m *Metrics) RecordEntriesIngested(side string, count int) {
	m.EntriesIngested.WithLabelValues(side).Add(float64(count))
}

// RecordMergeOutput records one request's merge results
func (m *Metrics) RecordMergeOutput(pairs int, unpairedFirst, unpairedLast int) {
	m.PairsMatched.Add(float64(pairs))
	m.UnpairedTotal.WithLabelValues("first").Add(float64(unpairedFirst))
	m.UnpairedTotal.WithLabelValues("last").Add(float64(unpairedLast))
}

// RecordProcessingDuration records stage timing
func (m *Metrics) RecordProcessingDuration(stage string, duration time.Duration) {
	m.ProcessingDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSpillRuns adds spilled runs for one side
func (m *Metrics) RecordSpillRuns(side string, runs int) {
	if runs > 0 {
		m.SpillRuns.WithLabelValues(side).Add(float64(runs))
	}
}

// RecordError increments the error counter for a classification
func (m *Metrics) RecordError(class string) {
	m.ErrorsTotal.WithLabelValues(class).Inc()
}
