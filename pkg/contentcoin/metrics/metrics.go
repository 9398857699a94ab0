// Package metrics holds the Prometheus collectors of the coin pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRuns counts finished pipeline runs by outcome
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentcoin_pipeline_runs_total",
			Help: "Total number of coin creation pipeline runs",
		},
		[]string{"outcome"},
	)

	// StageFailures counts pipeline failures and warnings per stage
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentcoin_pipeline_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	// StageDuration tracks how long each pipeline stage takes
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentcoin_pipeline_stage_seconds",
			Help:    "Pipeline stage latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Notifications counts notification deliveries per channel and result
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentcoin_notifications_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"channel", "result"},
	)

	// StatsLookups counts live stats lookups by result
	StatsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentcoin_stats_lookups_total",
			Help: "Total number of live coin stats lookups",
		},
		[]string{"result"},
	)
)
