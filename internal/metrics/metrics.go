package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RostersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_roster_created_total",
			Help: "Total number of rosters created",
		},
		[]string{"source"},
	)

	RosterEntriesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_roster_entries_created_total",
			Help: "Total number of roster entries created",
		},
		[]string{"source"},
	)

	RosterActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_roster_actions_total",
			Help: "Roster entry actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	GoogleImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_google_imports_total",
			Help: "Google Classroom roster imports by outcome",
		},
		[]string{"outcome"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_cache_requests_total",
			Help: "Cache lookups by result",
		},
		[]string{"cache", "result"},
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

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)
