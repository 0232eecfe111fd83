package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantforge/accel-node/internal/orchestrator"
	"github.com/quantforge/accel-node/internal/profile"
)

func TestSelectStrategyBoundaries(t *testing.T) {
	prof := profile.ResourceProfile{
		ParallelThreshold:        1000,
		MemoryOptimizedThreshold: 50000,
		EstimatedMemoryPerItem:   1024,
	}

	tests := []struct {
		name      string
		itemCount int
		prof      profile.ResourceProfile
		workers   int
		want      orchestrator.Strategy
	}{
		{"below parallel threshold", 999, prof, 4, orchestrator.StrategySingleOptimal},
		{"at parallel threshold", 1000, prof, 4, orchestrator.StrategyParallelDistributed},
		{"above memory threshold", 50001, prof, 4, orchestrator.StrategyMemoryOptimizedBatching},
		{"at memory threshold", 50000, prof, 4, orchestrator.StrategyParallelDistributed},
		{"two workers go sequential", 1000, prof, 2, orchestrator.StrategySequentialRoundRobin},
		{"one worker goes sequential", 1000, prof, 1, orchestrator.StrategySequentialRoundRobin},
		{
			"prefer-sequential profile",
			1000,
			profile.ResourceProfile{
				ParallelThreshold:        1000,
				MemoryOptimizedThreshold: 50000,
				PreferSequential:         true,
				EstimatedMemoryPerItem:   1024,
			},
			4,
			orchestrator.StrategySequentialRoundRobin,
		},
		{"memory threshold beats prefer-sequential", 50001, profile.ResourceProfile{
			ParallelThreshold:        1000,
			MemoryOptimizedThreshold: 50000,
			PreferSequential:         true,
			EstimatedMemoryPerItem:   1024,
		}, 4, orchestrator.StrategyMemoryOptimizedBatching},
		{"small count beats everything", 999, profile.ResourceProfile{
			ParallelThreshold:        1000,
			MemoryOptimizedThreshold: 50000,
			PreferSequential:         true,
			EstimatedMemoryPerItem:   1024,
		}, 1, orchestrator.StrategySingleOptimal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orchestrator.SelectStrategy(tt.itemCount, tt.prof, tt.workers)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "SingleOptimal", orchestrator.StrategySingleOptimal.String())
	assert.Equal(t, "ParallelDistributed", orchestrator.StrategyParallelDistributed.String())
	assert.Equal(t, "SequentialRoundRobin", orchestrator.StrategySequentialRoundRobin.String())
	assert.Equal(t, "MemoryOptimizedBatching", orchestrator.StrategyMemoryOptimizedBatching.String())
}
