package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	datasetsParsed *prometheus.CounterVec
	parseErrors    *prometheus.CounterVec
	cyclesRetained prometheus.Histogram
	latency        *prometheus.HistogramVec
	cacheHits      *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		datasetsParsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battpulse_datasets_parsed_total",
				Help: "Total number of dataset files parsed",
			},
			[]string{"outcome"},
		),
		parseErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cyclesRetained: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "battpulse_discharge_cycles_retained",
				Help:    "Discharge cycles retained per parsed dataset",
				Buckets: []float64{1, 10, 50, 100, 200, 500, 1000},
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "battpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battpulse_parse_cache_total",
				Help: "Content-addressed parse cache lookups",
			},
			[]string{"result"},
		),
	}
}

// RecordDatasetParsed records a parse attempt outcome ("ok" or "failed").
func (r *Recorder) RecordDatasetParsed(outcome string) {
	r.datasetsParsed.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.parseErrors.WithLabelValues(kind).Inc()
}

// RecordCyclesRetained records how many discharge cycles a dataset kept.
func (r *Recorder) RecordCyclesRetained(n int) {
	r.cyclesRetained.Observe(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheLookup records a parse cache hit or miss.
func (r *Recorder) RecordCacheLookup(result string) {
	r.cacheHits.WithLabelValues(result).Inc()
}
