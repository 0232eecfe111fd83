package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/config"
)

func TestRegistrySeedsKnownTypes(t *testing.T) {
	reg, err := NewRegistry(nil, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{
		WorkloadBacktest, WorkloadIndicator, WorkloadScreening, WorkloadSimulation,
	}, reg.Types())

	p, err := reg.Get(WorkloadScreening)
	require.NoError(t, err)
	assert.Equal(t, 1000, p.ParallelThreshold)
	assert.Equal(t, 50000, p.MemoryOptimizedThreshold)
	assert.False(t, p.PreferSequential)

	sim, err := reg.Get(WorkloadSimulation)
	require.NoError(t, err)
	assert.True(t, sim.PreferSequential)
}

func TestRegistryUnknownTypeFails(t *testing.T) {
	reg, err := NewRegistry(nil, zap.NewNop())
	require.NoError(t, err)

	_, err = reg.Get("options-pricing")
	require.ErrorIs(t, err, ErrUnknownWorkloadType)
}

func TestRegistryAppliesOverrides(t *testing.T) {
	seq := true
	reg, err := NewRegistry(map[string]config.ProfileOverride{
		WorkloadScreening: {
			ParallelThreshold: 500,
			PreferSequential:  &seq,
		},
	}, zap.NewNop())
	require.NoError(t, err)

	p, err := reg.Get(WorkloadScreening)
	require.NoError(t, err)
	assert.Equal(t, 500, p.ParallelThreshold)
	assert.True(t, p.PreferSequential)
	// Untouched fields keep seeded values.
	assert.Equal(t, 50000, p.MemoryOptimizedThreshold)
	assert.Equal(t, int64(4<<10), p.EstimatedMemoryPerItem)
}

func TestRegistryRejectsOverrideForUnknownType(t *testing.T) {
	_, err := NewRegistry(map[string]config.ProfileOverride{
		"options-pricing": {ParallelThreshold: 10},
	}, zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownWorkloadType)
}

func TestRegistryRejectsInvariantBreakingOverride(t *testing.T) {
	// memoryOptimizedThreshold must stay above parallelThreshold.
	_, err := NewRegistry(map[string]config.ProfileOverride{
		WorkloadScreening: {ParallelThreshold: 60000},
	}, zap.NewNop())
	require.Error(t, err)
}

func TestProfileValidate(t *testing.T) {
	valid := ResourceProfile{
		ParallelThreshold:        100,
		MemoryOptimizedThreshold: 1000,
		EstimatedMemoryPerItem:   1024,
	}
	require.NoError(t, valid.Validate())

	inverted := valid
	inverted.MemoryOptimizedThreshold = 100
	require.Error(t, inverted.Validate())

	noMemory := valid
	noMemory.EstimatedMemoryPerItem = 0
	require.Error(t, noMemory.Validate())
}
