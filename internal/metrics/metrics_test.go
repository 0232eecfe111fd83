package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSchedulingMetrics(t *testing.T) {
	t.Run("PoolCapacityBytes", func(t *testing.T) {
		PoolCapacityBytes.Set(16 * 1024 * 1024 * 1024)
		value := testutil.ToFloat64(PoolCapacityBytes)
		assert.Equal(t, float64(16*1024*1024*1024), value)
	})

	t.Run("PoolActiveWorkers", func(t *testing.T) {
		PoolActiveWorkers.Set(3)
		assert.Equal(t, float64(3), testutil.ToFloat64(PoolActiveWorkers))
	})

	t.Run("StrategySelections", func(t *testing.T) {
		before := testutil.ToFloat64(StrategySelections.WithLabelValues("screening", "ParallelDistributed"))
		StrategySelections.WithLabelValues("screening", "ParallelDistributed").Inc()
		after := testutil.ToFloat64(StrategySelections.WithLabelValues("screening", "ParallelDistributed"))
		assert.Equal(t, before+1, after)
	})

	t.Run("KernelDuration", func(t *testing.T) {
		// Histograms can't be read back with testutil; just verify the vec resolves.
		assert.NotPanics(t, func() {
			KernelDuration.WithLabelValues("DiscreteGPU").Observe(12.5)
		})
	})

	t.Run("TaskQueueDepth", func(t *testing.T) {
		TaskQueueDepth.Set(7)
		assert.Equal(t, float64(7), testutil.ToFloat64(TaskQueueDepth))
	})
}
