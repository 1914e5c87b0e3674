// Package metrics provides Prometheus metrics definitions for the frame
// collection pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CollectDuration tracks the time spent on one sampling tick per source.
	CollectDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frametrics_collect_duration_seconds",
			Help:    "Time spent collecting one raw sample",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// CollectTicks counts completed sampling ticks per source.
	CollectTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frametrics_collect_ticks_total",
			Help: "Completed sampling loop iterations",
		},
		[]string{"source"},
	)

	// CollectErrors counts faults that terminated a collection session.
	CollectErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frametrics_collect_errors_total",
			Help: "Collection faults by source and type",
		},
		[]string{"source", "error_type"},
	)

	// FramesAccepted counts frames admitted into the frame table.
	FramesAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frametrics_frames_accepted_total",
			Help: "Frames accepted into the session table",
		},
		[]string{"source"},
	)

	// FramesDropped counts frames rejected during parsing by reason.
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frametrics_frames_dropped_total",
			Help: "Frames rejected during parsing",
		},
		[]string{"source", "reason"},
	)

	// ParseWarnings counts unexpected records absorbed by the parsers.
	ParseWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frametrics_parse_warnings_total",
			Help: "Unexpected records skipped during parsing",
		},
		[]string{"source"},
	)

	// UnresponsiveCount reports how often the source flagged itself
	// unresponsive during the last processed session.
	UnresponsiveCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frametrics_source_unresponsive_count",
			Help: "Unresponsive markers seen in the last session",
		},
		[]string{"source"},
	)

	// LastSessionFrames reports the size of the last processed frame table.
	LastSessionFrames = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frametrics_last_session_frames",
			Help: "Frames in the last processed session",
		},
		[]string{"source"},
	)
)
