// Package metrics provides application-level Prometheus counters. They are
// registered on the default registry and exposed by the HTTP API on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation counters.
var (
	OutfitsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_outfits_added_total",
		Help: "Outfits added to the collection.",
	})
	OutfitsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_outfits_deleted_total",
		Help: "Outfits removed from the collection.",
	})
	WearsLogged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_wears_logged_total",
		Help: "Wear events recorded.",
	})
	PersistWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_persist_writes_total",
		Help: "Full-collection writes to the preference store.",
	})
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_persist_failures_total",
		Help: "Failed full-collection writes.",
	})
	DebounceCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_debounce_coalesced_total",
		Help: "Deferred writes folded into a later write.",
	})
	BlobFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_blob_failures_total",
		Help: "Image blob operations that failed and were degraded.",
	})
	NamesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closetlog_item_names_added_total",
		Help: "Item names recorded in the suggestion index.",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
