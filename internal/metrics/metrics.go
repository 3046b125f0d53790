// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsBuilt counts snapshots derived from data source emissions.
	SnapshotsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dagview_snapshots_built_total",
		Help: "Graph snapshots built from event log row sets",
	})

	// SnapshotNodes observes the node count of built snapshots.
	SnapshotNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dagview_snapshot_nodes",
		Help:    "Number of nodes per snapshot, root included",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
	})

	// RenderPasses counts view render passes by phase (initialize, replace).
	RenderPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagview_view_render_passes_total",
		Help: "View render passes applied to a rendering engine",
	}, []string{"phase"})

	// RenderDuration observes the time spent in one render pass.
	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dagview_view_render_duration_seconds",
		Help:    "Time spent clearing, laying out and fitting one snapshot",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}, []string{"phase"})

	// DeferredMounts counts render passes skipped because no surface was mounted.
	DeferredMounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dagview_view_deferred_mounts_total",
		Help: "Render passes deferred because the rendering surface was not mounted",
	})

	// ActiveViews tracks live views, one per connected viewer.
	ActiveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dagview_active_views",
		Help: "Live graph views currently running",
	})

	// SourceRefreshes counts live query refreshes by result (changed, unchanged, error).
	SourceRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagview_source_refreshes_total",
		Help: "Live query re-evaluations of the event log",
	}, []string{"result"})
)
