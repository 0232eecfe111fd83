package profile

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/config"
)

// Registry is the static per-workload-type profile lookup, seeded at startup
// and read-only afterwards.
type Registry struct {
	profiles map[string]ResourceProfile
}

// NewRegistry seeds the known workload types and applies config overrides.
// Overriding an unknown workload type is a configuration error, as is any
// override that breaks a profile invariant.
func NewRegistry(overrides map[string]config.ProfileOverride, logger *zap.Logger) (*Registry, error) {
	log := logger.Named("profiles")

	profiles := defaults()
	for workloadType, ov := range overrides {
		base, ok := profiles[workloadType]
		if !ok {
			return nil, fmt.Errorf("profile override for %q: %w", workloadType, ErrUnknownWorkloadType)
		}
		merged := applyOverride(base, ov)
		if err := merged.Validate(); err != nil {
			return nil, fmt.Errorf("profile override for %q: %w", workloadType, err)
		}
		profiles[workloadType] = merged
		log.Info("profile override applied",
			zap.String("workloadType", workloadType),
			zap.Int("parallelThreshold", merged.ParallelThreshold),
			zap.Int("memoryOptimizedThreshold", merged.MemoryOptimizedThreshold),
			zap.Bool("preferSequential", merged.PreferSequential))
	}

	for workloadType, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile for %q: %w", workloadType, err)
		}
	}
	return &Registry{profiles: profiles}, nil
}

func applyOverride(base ResourceProfile, ov config.ProfileOverride) ResourceProfile {
	if ov.ParallelThreshold > 0 {
		base.ParallelThreshold = ov.ParallelThreshold
	}
	if ov.MemoryOptimizedThreshold > 0 {
		base.MemoryOptimizedThreshold = ov.MemoryOptimizedThreshold
	}
	if ov.PreferSequential != nil {
		base.PreferSequential = *ov.PreferSequential
	}
	if ov.EstimatedMemoryPerItem > 0 {
		base.EstimatedMemoryPerItem = ov.EstimatedMemoryPerItem
	}
	if ov.CPUFallbackThreshold > 0 {
		base.CPUFallbackThreshold = ov.CPUFallbackThreshold
	}
	return base
}

// Get returns the profile for a workload type, or ErrUnknownWorkloadType.
func (r *Registry) Get(workloadType string) (ResourceProfile, error) {
	p, ok := r.profiles[workloadType]
	if !ok {
		return ResourceProfile{}, fmt.Errorf("%w: %q", ErrUnknownWorkloadType, workloadType)
	}
	return p, nil
}

// Types lists the registered workload types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.profiles))
	for t := range r.profiles {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
