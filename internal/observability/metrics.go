package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	queueDepth            prometheus.Gauge
	gradingOutcomesTotal  *prometheus.CounterVec
	gradingDuration       prometheus.Histogram
	oracleAttemptsTotal   *prometheus.CounterVec
	oracleRetriesTotal    *prometheus.CounterVec
	oracleExhaustedTotal  *prometheus.CounterVec
	statisticsBuildsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grading_queue_depth",
			Help: "Number of submissions waiting for the grading worker.",
		})

		gradingOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_submissions_total",
			Help: "Submissions processed by the grading worker by final status.",
		}, []string{"status"})

		gradingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_duration_seconds",
			Help:    "Wall time spent grading one submission.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		})

		oracleAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_attempts_total",
			Help: "Attempts made against the grading model per operation.",
		}, []string{"operation"})

		oracleRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_retries_total",
			Help: "Backoff retries scheduled after transient model failures.",
		}, []string{"operation"})

		oracleExhaustedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_retries_exhausted_total",
			Help: "Operations abandoned after spending the whole attempt budget.",
		}, []string{"operation"})

		statisticsBuildsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "class_statistics_builds_total",
			Help: "Number of class statistics recomputations.",
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			queueDepth, gradingOutcomesTotal, gradingDuration,
			oracleAttemptsTotal, oracleRetriesTotal, oracleExhaustedTotal,
			statisticsBuildsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// QueueDepth exposes the grading queue depth gauge.
func QueueDepth() prometheus.Gauge {
	RegisterMetrics()
	return queueDepth
}

// GradingOutcomes exposes the per-status counter of processed submissions.
func GradingOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingOutcomesTotal
}

// GradingDuration exposes the per-submission grading histogram.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingDuration
}

// OracleAttempts exposes the per-operation attempt counter.
func OracleAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return oracleAttemptsTotal
}

// OracleRetries exposes the per-operation retry counter.
func OracleRetries() *prometheus.CounterVec {
	RegisterMetrics()
	return oracleRetriesTotal
}

// OracleExhausted exposes the per-operation exhaustion counter.
func OracleExhausted() *prometheus.CounterVec {
	RegisterMetrics()
	return oracleExhaustedTotal
}

// StatisticsBuilds exposes the statistics recomputation counter.
func StatisticsBuilds() prometheus.Counter {
	RegisterMetrics()
	return statisticsBuildsTotal
}
