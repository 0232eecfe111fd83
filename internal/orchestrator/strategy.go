package orchestrator

import "github.com/quantforge/accel-node/internal/profile"

// Strategy is the top-level scheduling policy chosen per Execute call.
type Strategy int

const (
	// StrategySingleOptimal runs the whole range on the best worker alone.
	StrategySingleOptimal Strategy = iota
	// StrategyParallelDistributed splits the range across workers and runs
	// the assignments concurrently.
	StrategyParallelDistributed
	// StrategySequentialRoundRobin time-slices fixed-size batches across
	// workers, one batch at a time.
	StrategySequentialRoundRobin
	// StrategyMemoryOptimizedBatching iterates memory-bounded batches on the
	// best worker, trading parallelism for safety on very large workloads.
	StrategyMemoryOptimizedBatching
)

func (s Strategy) String() string {
	switch s {
	case StrategySingleOptimal:
		return "SingleOptimal"
	case StrategyParallelDistributed:
		return "ParallelDistributed"
	case StrategySequentialRoundRobin:
		return "SequentialRoundRobin"
	case StrategyMemoryOptimizedBatching:
		return "MemoryOptimizedBatching"
	default:
		return "Unknown"
	}
}

// SelectStrategy picks the execution strategy for an item count under a
// profile. Decision order matters: small ranges never split, oversized ranges
// always batch, and interference-prone or device-starved pools time-slice.
func SelectStrategy(itemCount int, prof profile.ResourceProfile, availableWorkers int) Strategy {
	switch {
	case itemCount < prof.ParallelThreshold:
		return StrategySingleOptimal
	case itemCount > prof.MemoryOptimizedThreshold:
		return StrategyMemoryOptimizedBatching
	case prof.PreferSequential || availableWorkers <= 2:
		return StrategySequentialRoundRobin
	default:
		return StrategyParallelDistributed
	}
}
