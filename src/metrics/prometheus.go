package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Orders received, by side
	OrdersReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_orders_received_total",
			Help: "Total number of orders submitted to the book",
		},
		[]string{"side"},
	)

	// Rejected commands, by operation and error kind
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_rejected_total",
			Help: "Total number of operations rejected by validation",
		},
		[]string{"operation", "reason"},
	)

	AmendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "book_amends_total",
			Help: "Total number of accepted amendments",
		},
	)

	CancelsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "book_cancels_total",
			Help: "Total number of accepted cancellations",
		},
	)

	FillsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "book_fills_total",
			Help: "Total number of fills generated",
		},
	)

	FilledVolumeTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "book_filled_volume_total",
			Help: "Total quantity traded",
		},
	)

	OpenOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "book_open_orders",
			Help: "Number of orders currently resting in the book",
		},
	)

	AddLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "book_add_latency_seconds",
			Help:    "Time taken to validate and match one submission",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12), // 1us to ~4s
		},
	)
)

// RecordOrderReceived increments book_orders_received_total
func RecordOrderReceived(side string) {
	OrdersReceivedTotal.WithLabelValues(side).Inc()
}

// RecordRejected increments book_rejected_total
func RecordRejected(operation, reason string) {
	RejectedTotal.WithLabelValues(operation, reason).Inc()
}

// RecordFills accounts for every fill of one submission.
func RecordFills(count int, volume int64) {
	FillsTotal.Add(float64(count))
	FilledVolumeTotal.Add(float64(volume))
}

func RecordAddLatency(seconds float64) {
	AddLatencySeconds.Observe(seconds)
}

func SetOpenOrders(n int) {
	OpenOrders.Set(float64(n))
}
