package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of cart mutations by operation",
	}, []string{"op"})

	CartSnapshotErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_snapshot_errors_total",
		Help: "Total number of failed cart snapshot reads and writes",
	}, []string{"op"})

	CheckoutAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Total number of checkout submissions",
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders committed",
	})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the checkout transaction",
		Buckets: prometheus.DefBuckets,
	})

	CheckoutTxRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_tx_retries_total",
		Help: "Total number of checkout transactions retried after a serialization conflict",
	})

	WishlistSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_sync_total",
		Help: "Total number of remote wishlist sync tasks by outcome",
	}, []string{"op", "outcome"})

	WishlistSyncRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wishlist_sync_retries_total",
		Help: "Total number of remote wishlist sync retries",
	})

	CatalogProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_products",
		Help: "Number of products in the loaded catalog snapshot",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
