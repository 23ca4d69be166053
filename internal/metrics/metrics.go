// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total number of section submissions by outcome",
		},
		[]string{"section", "result"},
	)

	MarkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mark_writes_total",
			Help: "Total number of mark writes by collection and outcome",
		},
		[]string{"collection", "result"},
	)

	AutoScoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "submission_auto_score_ratio",
			Help:    "Distribution of auto-graded score over total at submission time",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"section"},
	)

	SectionScoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "section_score_ratio",
			Help:    "Distribution of aggregated section score over max",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"section"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of failed store calls",
		},
		[]string{"op"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
