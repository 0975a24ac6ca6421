// Package metrics provides Prometheus metrics for the newsroom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsroom"

var (
	// JobRunsTotal counts job runs by outcome (success, failed, skipped, busy).
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Total number of job runs",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of job runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	ArticlesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_generated_total",
			Help:      "Total number of articles persisted",
		},
		[]string{"source"},
	)

	// GenerationFallbacksTotal counts model calls replaced by fallback content.
	GenerationFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_fallbacks_total",
			Help:      "Total number of generation calls answered with fallback content",
		},
		[]string{"operation"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Duration of chat completion requests in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 45, 90},
		},
		[]string{"status"},
	)
)

func RecordJobRun(job, outcome string, seconds float64) {
	JobRunsTotal.WithLabelValues(job, outcome).Inc()
	if seconds > 0 {
		JobDuration.WithLabelValues(job).Observe(seconds)
	}
}

func RecordFallback(operation string) {
	GenerationFallbacksTotal.WithLabelValues(operation).Inc()
}

func RecordArticles(source string, count int) {
	if count > 0 {
		ArticlesGenerated.WithLabelValues(source).Add(float64(count))
	}
}

func RecordCompletion(status string, seconds float64) {
	CompletionDuration.WithLabelValues(status).Observe(seconds)
}
