package command

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Catalog mutation metrics, registered once at package init so handlers can
// be constructed freely.
var (
	changesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksync_changes_total",
			Help: "Total number of product change records written",
		},
		[]string{"type"},
	)

	importRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stocksync_import_rows_total",
			Help: "Total number of rows parsed out of imported snapshots",
		},
	)
)

func init() {
	prometheus.MustRegister(changesTotal)
	prometheus.MustRegister(importRowsTotal)
}
