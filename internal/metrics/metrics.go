// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvarr_check_cycles_total",
		Help: "Check cycles by trigger (timer, manual) and outcome.",
	}, []string{"trigger", "outcome"})

	SearchTiers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvarr_search_tiers_total",
		Help: "Quality ladder tiers attempted, by tier and outcome (found, empty, error).",
	}, []string{"tier", "outcome"})

	DownloadsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvarr_downloads_submitted_total",
		Help: "Releases handed to the download client, by source (check, range).",
	}, []string{"source"})

	StorageFreeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvarr_storage_free_bytes",
		Help: "Free bytes on the download volume at the last admission check.",
	})

	PrioritiesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvarr_priorities_applied_total",
		Help: "Season packs whose file priorities were set.",
	})
)
