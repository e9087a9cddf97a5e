package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockTableSize tracks the number of live lock handles per region's lock table
	LockTableSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regioncache_lock_table_size",
			Help: "Number of per-key lock handles currently tracked by a region's lock manager",
		},
		[]string{"region"},
	)

	// LockReapsTotal tracks the total number of idle lock handles removed by the reaper
	LockReapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regioncache_lock_reaps_total",
			Help: "Total number of idle lock handles reclaimed by the background reaper",
		},
		[]string{"region"},
	)

	// UnbalancedReleasesTotal tracks release calls that had no matching acquire
	UnbalancedReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regioncache_unbalanced_releases_total",
			Help: "Total number of lock releases without a matching acquire (caller bugs)",
		},
		[]string{"region"},
	)

	// EventQueueDepth tracks the number of undelivered events per queue.
	// The queue is unbounded, so unbounded growth under a slow listener
	// must be visible here rather than masked.
	EventQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regioncache_event_queue_depth",
			Help: "Number of lifecycle events queued and not yet delivered",
		},
		[]string{"region"},
	)

	// EventsDeliveredTotal tracks successfully delivered lifecycle events
	EventsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regioncache_events_delivered_total",
			Help: "Total number of lifecycle events delivered to listeners",
		},
		[]string{"region"},
	)

	// EventsFailedTotal tracks events whose listener returned an error
	EventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regioncache_events_failed_total",
			Help: "Total number of lifecycle events dropped because the listener failed",
		},
		[]string{"region"},
	)

	// EventsDroppedTotal tracks events discarded undelivered at queue destruction
	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regioncache_events_dropped_total",
			Help: "Total number of lifecycle events discarded undelivered when a queue was destroyed",
		},
		[]string{"region"},
	)
)

// SetLockTableSize sets the current lock table size for a region
func SetLockTableSize(region string, size int) {
	LockTableSize.WithLabelValues(region).Set(float64(size))
}

// RecordLockReaps adds reclaimed handle count to the reap counter for a region
func RecordLockReaps(region string, count int) {
	if count > 0 {
		LockReapsTotal.WithLabelValues(region).Add(float64(count))
	}
}

// RecordUnbalancedRelease increments the unbalanced release counter for a region
func RecordUnbalancedRelease(region string) {
	UnbalancedReleasesTotal.WithLabelValues(region).Inc()
}

// SetEventQueueDepth sets the current event queue depth for a region
func SetEventQueueDepth(region string, depth int) {
	EventQueueDepth.WithLabelValues(region).Set(float64(depth))
}

// RecordEventDelivered increments the delivered event counter for a region
func RecordEventDelivered(region string) {
	EventsDeliveredTotal.WithLabelValues(region).Inc()
}

// RecordEventFailed increments the failed event counter for a region
func RecordEventFailed(region string) {
	EventsFailedTotal.WithLabelValues(region).Inc()
}

// RecordEventsDropped adds discarded event count to the dropped counter for a region
func RecordEventsDropped(region string, count int) {
	if count > 0 {
		EventsDroppedTotal.WithLabelValues(region).Add(float64(count))
	}
}
