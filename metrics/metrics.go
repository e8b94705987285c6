package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Settlement
	// ============================================
	SwapsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_settled_total",
			Help: "Total number of orders settled",
		},
		[]string{"path"},
	)

	SwapsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_rejected_total",
			Help: "Total number of settlement calls rejected",
		},
		[]string{"path", "reason"},
	)

	SettleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_settle_duration_seconds",
			Help:    "Settlement call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// ============================================
	// Cancellation
	// ============================================
	CancelsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_cancel_applied_total",
		Help: "Total number of identifiers moved to canceled",
	})

	CancelsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_cancel_skipped_total",
		Help: "Total number of cancel requests skipped for already settled identifiers",
	})

	// ============================================
	// Delegation
	// ============================================
	Authorizations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_authorizations_total",
		Help: "Total number of delegate authorizations",
	})

	Revocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_revocations_total",
		Help: "Total number of delegate revocations",
	})

	// ============================================
	// Events
	// ============================================
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_events_published_total",
			Help: "Total number of lifecycle events handed to sinks",
		},
		[]string{"event_type"},
	)

	EventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_events_failed_total",
			Help: "Total number of lifecycle events a sink failed to publish",
		},
		[]string{"event_type"},
	)

	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swap_nats_connection_status",
		Help: "NATS connection status (1 = connected, 0 = disconnected)",
	})
)
