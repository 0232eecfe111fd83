package profile

import (
	"errors"
	"fmt"
)

// ErrUnknownWorkloadType is returned when a workload type has no registered
// profile. Unknown work is never silently scheduled with defaults.
var ErrUnknownWorkloadType = errors.New("unknown workload type")

// ResourceProfile holds the static per-workload-type thresholds that drive
// strategy selection and distribution.
type ResourceProfile struct {
	// ParallelThreshold is the item count below which a single best device
	// beats any split.
	ParallelThreshold int
	// MemoryOptimizedThreshold is the item count above which batching is
	// mandatory. Must be strictly greater than ParallelThreshold.
	MemoryOptimizedThreshold int
	// PreferSequential marks workload types that interfere when run
	// simultaneously on multiple devices and must be time-sliced instead.
	PreferSequential bool
	// EstimatedMemoryPerItem sizes batches for memory-optimized execution.
	EstimatedMemoryPerItem int64
	// CPUFallbackThreshold is the item count below which CPU execution is as
	// good as GPU. Zero forbids CPU workers for the type.
	CPUFallbackThreshold int
}

func (p ResourceProfile) Validate() error {
	if p.ParallelThreshold < 0 {
		return fmt.Errorf("parallelThreshold must be >= 0, got %d", p.ParallelThreshold)
	}
	if p.MemoryOptimizedThreshold <= p.ParallelThreshold {
		return fmt.Errorf("memoryOptimizedThreshold (%d) must exceed parallelThreshold (%d)",
			p.MemoryOptimizedThreshold, p.ParallelThreshold)
	}
	if p.EstimatedMemoryPerItem <= 0 {
		return fmt.Errorf("estimatedMemoryPerItem must be > 0, got %d", p.EstimatedMemoryPerItem)
	}
	return nil
}

// Known workload types.
const (
	WorkloadScreening  = "screening"
	WorkloadSimulation = "simulation"
	WorkloadBacktest   = "backtest"
	WorkloadIndicator  = "indicator"
)

// defaults are the seeded profiles, tuned per workload class: simulations
// thrash device memory and interfere across devices, so they are time-sliced;
// indicator batches are tiny per item and split late.
func defaults() map[string]ResourceProfile {
	return map[string]ResourceProfile{
		WorkloadScreening: {
			ParallelThreshold:        1000,
			MemoryOptimizedThreshold: 50000,
			PreferSequential:         false,
			EstimatedMemoryPerItem:   4 << 10,
			CPUFallbackThreshold:     200,
		},
		WorkloadSimulation: {
			ParallelThreshold:        500,
			MemoryOptimizedThreshold: 20000,
			PreferSequential:         true,
			EstimatedMemoryPerItem:   64 << 10,
			// Zero forbids CPU outright: simulation paths are written for
			// device-resident state and run pathologically slow off-GPU.
			CPUFallbackThreshold: 0,
		},
		WorkloadBacktest: {
			ParallelThreshold:        2000,
			MemoryOptimizedThreshold: 100000,
			PreferSequential:         false,
			EstimatedMemoryPerItem:   16 << 10,
			CPUFallbackThreshold:     500,
		},
		WorkloadIndicator: {
			ParallelThreshold:        5000,
			MemoryOptimizedThreshold: 200000,
			PreferSequential:         false,
			EstimatedMemoryPerItem:   1 << 10,
			CPUFallbackThreshold:     1000,
		},
	}
}
