package slots

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	slotsMax = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "max",
		Help:      "Configured ceiling on concurrently active emulator slots",
	})

	slotsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "active",
		Help:      "Slots currently held by queue workers",
	})

	waitQueueLen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "wait_queue_len",
		Help:      "Workers currently waiting for a slot",
	})

	acquiresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "acquires_total",
		Help:      "Total slot grants",
	})

	releasesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "releases_total",
		Help:      "Total slot releases",
	})

	acquireCancelsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "acquire_cancels_total",
		Help:      "Acquisitions abandoned by caller cancellation",
	})

	staleDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "stale_drops_total",
		Help:      "Active slot memberships dropped because the emulator died",
	})

	poolResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swarmd",
		Subsystem: "slots",
		Name:      "pool_resets_total",
		Help:      "Full pool resets",
	})
)

func init() {
	prometheus.MustRegister(slotsMax, slotsActive, waitQueueLen,
		acquiresTotal, releasesTotal, acquireCancelsTotal,
		staleDropsTotal, poolResetsTotal)
}
