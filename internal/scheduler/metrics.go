package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmd",
			Subsystem: "scheduler",
			Name:      "cycles_total",
			Help:      "Task cycles executed per profile queue",
		},
		[]string{"profile"},
	)

	reconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmd",
			Subsystem: "scheduler",
			Name:      "reconnects_total",
			Help:      "Reconnect cooldowns entered per profile queue",
		},
		[]string{"profile"},
	)

	queuesRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "swarmd",
			Subsystem: "scheduler",
			Name:      "queues_registered",
			Help:      "Profile queues currently registered",
		},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "swarmd",
			Subsystem: "scheduler",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of task cycles in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal, reconnectsTotal, queuesRegistered, cycleDuration)
}
