package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanobrain_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nanobrain_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	MessagesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nanobrain_messages_ingested_total",
			Help: "Messages applied to a brain",
		},
	)

	Replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanobrain_replies_total",
			Help: "Replies produced, by how they were produced",
		},
		[]string{"kind"},
	)

	TeachCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanobrain_teach_commands_total",
			Help: "Privileged teach commands, by outcome",
		},
		[]string{"outcome"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanobrain_storage_errors_total",
			Help: "Persistence failures surfaced to callers",
		},
		[]string{"op"},
	)

	PersistedBrains = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nanobrain_persisted_brains",
			Help: "Number of users with a persisted brain, as of the last inventory",
		},
	)

	TempFilesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nanobrain_temp_files_swept_total",
			Help: "Orphaned temp files removed by housekeeping",
		},
	)
)
