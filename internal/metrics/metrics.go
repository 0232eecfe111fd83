package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Device discovery metrics
	DevicesDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accel_devices_discovered_total",
		Help: "Total number of devices reported by probes, by device kind",
	}, []string{"kind"})

	DevicesExcluded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accel_devices_excluded_total",
		Help: "Total number of devices excluded after a context-creation failure",
	}, []string{"kind"})

	PoolCapacityBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accel_pool_capacity_bytes",
		Help: "Aggregate memory capacity of all active workers in bytes",
	})

	PoolActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accel_pool_active_workers",
		Help: "Number of workers holding a live device context",
	})

	// Scheduling metrics
	StrategySelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accel_strategy_selections_total",
		Help: "Total number of strategy selections by workload type and strategy",
	}, []string{"workload_type", "strategy"})

	AssignmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accel_assignment_failures_total",
		Help: "Total number of per-assignment kernel failures by device kind",
	}, []string{"kind"})

	KernelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accel_kernel_duration_ms",
		Help:    "Duration of a single kernel launch in milliseconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1ms to ~32s
	}, []string{"kind"})

	// Background task queue metrics
	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accel_task_queue_depth",
		Help: "Number of background accelerator tasks waiting to be processed",
	})

	BackgroundTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accel_background_tasks_total",
		Help: "Total number of background accelerator tasks by outcome",
	}, []string{"outcome"})
)
