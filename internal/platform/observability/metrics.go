package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_items_ingested_total",
		Help: "The total number of accepted raw items",
	})

	ItemsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_items_deduplicated_total",
		Help: "The total number of items resolved by fingerprint reuse without an analyzer call",
	})

	ItemsPrefiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_items_prefiltered_total",
		Help: "The total number of items rejected by the keyword prefilter",
	})

	AnalyzerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_analyzer_failures_total",
		Help: "The total number of analyzer calls that fell back to the default classification",
	})

	ProcessFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_process_failures_total",
		Help: "The total number of pending items that failed processing",
	})

	ClustersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_clusters_created_total",
		Help: "The total number of clusters created",
	})

	ClustersMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_clusters_merged_total",
		Help: "The total number of items merged into existing clusters",
	}, []string{"match"})

	AlertsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_alerts_dispatched_total",
		Help: "The total number of alerts delivered to subscribers",
	}, []string{"kind"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_alerts_suppressed_total",
		Help: "The total number of per-subscriber alert suppressions",
	}, []string{"reason"})

	DigestsComposed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_digests_composed_total",
		Help: "The total number of digests composed",
	}, []string{"mode"})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_delivery_failures_total",
		Help: "The total number of failed notification deliveries",
	})

	PendingBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radar_pending_backlog_size",
		Help: "Number of unanalyzed items in the database",
	})
)
