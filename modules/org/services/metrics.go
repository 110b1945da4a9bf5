package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

var (
	orgNodesDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "walk",
		Name:      "nodes_discovered_total",
		Help:      "Total number of hierarchy nodes yielded by the walker broken down by kind.",
	}, []string{"kind"})

	orgWalkPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "walk",
		Name:      "pages_total",
		Help:      "Total number of child listing pages consumed broken down by child kind.",
	}, []string{"kind"})

	orgWalkMaxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "org",
		Subsystem: "walk",
		Name:      "max_depth",
		Help:      "Deepest level reached by the most recent walk (root children are depth 1).",
	})

	orgNameCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "name_cache",
		Name:      "requests_total",
		Help:      "Total number of name cache lookups broken down by hit/miss.",
	}, []string{"result"})

	orgRelationRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "org",
		Subsystem: "relation",
		Name:      "rows",
		Help:      "Rows in the most recently built relation broken down by kind.",
	}, []string{"kind"})

	orgRelationBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "org",
		Subsystem: "relation",
		Name:      "build_duration_seconds",
		Help:      "Wall time of BuildRelation calls, successful or not.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)

func recordNodeDiscovered(kind hierarchy.Kind) {
	orgNodesDiscovered.WithLabelValues(string(kind)).Inc()
}

func recordPage(kind hierarchy.Kind) {
	orgWalkPages.WithLabelValues(string(kind)).Inc()
}

func recordNameCacheRequest(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	orgNameCacheRequests.WithLabelValues(result).Inc()
}

func recordRelation(rel *hierarchy.Relation) {
	for kind, n := range rel.Counts() {
		orgRelationRows.WithLabelValues(string(kind)).Set(float64(n))
	}
}
