// Package metrics exposes Prometheus instrumentation for the scan engine
// and conflict queue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cadenza"

// Metrics holds the collectors registered for one daemon process. A
// dedicated registry keeps the scrape surface limited to what the daemon
// actually reports.
type Metrics struct {
	registry *prometheus.Registry

	WorksScanned        prometheus.Counter
	MatchesFound        prometheus.Counter
	ConflictsCreated    *prometheus.CounterVec
	ScanErrors          prometheus.Counter
	ScanDuration        prometheus.Histogram
	UnresolvedConflicts prometheus.Gauge
	MatchGroups         prometheus.Gauge
}

// New builds a Metrics instance backed by a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		WorksScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "works_scanned_total",
			Help:      "Works processed by matching jobs.",
		}),
		MatchesFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_found_total",
			Help:      "Works linked into a match group with at least one other member.",
		}),
		ConflictsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_created_total",
			Help:      "Conflicts opened by matching jobs, by type.",
		}, []string{"type"}),
		ScanErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_errors_total",
			Help:      "Works skipped by matching jobs due to per-item errors.",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of completed matching jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		UnresolvedConflicts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unresolved_conflicts",
			Help:      "Open conflicts awaiting operator resolution.",
		}),
		MatchGroups: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "match_groups",
			Help:      "Match groups currently in the catalog.",
		}),
	}
}

// Handler returns the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
