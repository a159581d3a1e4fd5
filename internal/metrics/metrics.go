// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes the lock-free Prometheus counters and gauges that
// observe the reindex pipeline and broadcast hub; they are updated
// on the hot path without taking any of the workspace registry's locks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds parseltongue's own collectors, kept separate from the
	// default global registry so tests can spin up isolated instances.
	Registry = prometheus.NewRegistry()

	reindexTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parseltongue",
			Subsystem: "reindex",
			Name:      "runs_total",
			Help:      "Total number of incremental reindex runs, by outcome.",
		},
		[]string{"workspace_id", "outcome"},
	)

	reindexDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "parseltongue",
			Subsystem: "reindex",
			Name:      "duration_seconds",
			Help:      "Duration of incremental reindex runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"workspace_id"},
	)

	watcherEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parseltongue",
			Subsystem: "watcher",
			Name:      "raw_events_total",
			Help:      "Total number of raw filesystem events observed, by workspace.",
		},
		[]string{"workspace_id"},
	)

	broadcastSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "parseltongue",
			Subsystem: "broadcast",
			Name:      "active_subscribers",
			Help:      "Current number of WebSocket connections subscribed per workspace.",
		},
		[]string{"workspace_id"},
	)

	broadcastMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parseltongue",
			Subsystem: "broadcast",
			Name:      "messages_sent_total",
			Help:      "Total number of broadcast messages sent to subscribers, by type.",
		},
		[]string{"message_type"},
	)

	blastRadiusSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "parseltongue",
			Subsystem: "diffengine",
			Name:      "blast_radius_total_affected",
			Help:      "Distribution of blast-radius sizes across completed diffs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		reindexTotal,
		reindexDuration,
		watcherEventsTotal,
		broadcastSubscribers,
		broadcastMessagesSent,
		blastRadiusSize,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics in the
// Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordReindex records the outcome and duration of one incremental
// reindex run.
func RecordReindex(workspaceID string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	reindexTotal.WithLabelValues(workspaceID, outcome).Inc()
	reindexDuration.WithLabelValues(workspaceID).Observe(duration.Seconds())
}

// RecordWatcherEvent increments the raw filesystem event counter for a
// workspace.
func RecordWatcherEvent(workspaceID string) {
	watcherEventsTotal.WithLabelValues(workspaceID).Inc()
}

// SetActiveSubscribers sets the current subscriber gauge for a workspace.
func SetActiveSubscribers(workspaceID string, count int) {
	broadcastSubscribers.WithLabelValues(workspaceID).Set(float64(count))
}

// RecordBroadcastMessage increments the sent-message counter for one
// message type (e.g. "EntityModified", "DiffAnalysisCompleted").
func RecordBroadcastMessage(messageType string) {
	broadcastMessagesSent.WithLabelValues(messageType).Inc()
}

// RecordBlastRadius observes the total-affected size of one completed
// diff's blast radius.
func RecordBlastRadius(totalAffected int) {
	blastRadiusSize.Observe(float64(totalAffected))
}
