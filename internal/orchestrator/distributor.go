package orchestrator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/profile"
	"github.com/quantforge/accel-node/internal/worker"
)

// Range is a contiguous sub-range of the input item space.
type Range struct {
	Start int
	Count int
}

// Assignment binds one contiguous item range to one worker for a single
// distribution call.
type Assignment struct {
	Worker       *worker.Worker
	Start        int
	Count        int
	WorkloadType string
}

// Distributor produces proportional per-worker partitions of an item range.
// It is a weighted split, not a bin-packer: deterministic on purpose so that
// a given pool and item count always yield the same assignments.
type Distributor struct {
	pool     *worker.Pool
	profiles *profile.Registry
	logger   *zap.Logger
}

func NewDistributor(pool *worker.Pool, profiles *profile.Registry, logger *zap.Logger) *Distributor {
	return &Distributor{pool: pool, profiles: profiles, logger: logger.Named("distributor")}
}

// workloadScore adjusts a worker's base capability score for one workload.
// CPU-class workers keep their full score only while the item count is within
// the profile's CPU-parity window; past it they are penalized heavily, and a
// zero CPUFallbackThreshold forbids CPU for the workload type entirely.
func workloadScore(w *worker.Worker, prof profile.ResourceProfile, totalItems int) int {
	score := w.Score()
	if w.IsPhysicalAccelerator() {
		return score
	}
	switch {
	case prof.CPUFallbackThreshold <= 0:
		return 0
	case totalItems <= prof.CPUFallbackThreshold:
		return score
	default:
		return score / 4
	}
}

// Distribute partitions totalItems across the pool proportionally to each
// worker's workload-adjusted score. Assignments are ordered by start index,
// contiguous, and sum exactly to totalItems; the last worker in score order
// absorbs the rounding remainder. Workers assigned zero items are omitted.
func (d *Distributor) Distribute(totalItems int, workloadType string) ([]Assignment, error) {
	if totalItems < 0 {
		return nil, fmt.Errorf("totalItems must be >= 0, got %d", totalItems)
	}
	prof, err := d.profiles.Get(workloadType)
	if err != nil {
		return nil, err
	}
	if totalItems == 0 {
		return nil, nil
	}

	workers := d.pool.Workers()
	scores := make([]int, len(workers))
	var totalScore int
	for i, w := range workers {
		scores[i] = workloadScore(w, prof, totalItems)
		totalScore += scores[i]
	}

	if totalScore <= 0 {
		// Degenerate pool for this workload type: one assignment covering
		// the full range on the best worker available.
		best, err := d.pool.BestWorker()
		if err != nil {
			return nil, err
		}
		d.logger.Warn("no worker scores positively for workload, assigning full range to best worker",
			zap.String("workloadType", workloadType),
			zap.String("worker", best.Descriptor().Name),
			zap.Int("totalItems", totalItems))
		return []Assignment{{Worker: best, Start: 0, Count: totalItems, WorkloadType: workloadType}}, nil
	}

	// The remainder absorber must itself score positively, otherwise rounding
	// could hand leftover items to a worker the profile forbids.
	lastEligible := -1
	for i := range scores {
		if scores[i] > 0 {
			lastEligible = i
		}
	}

	assignments := make([]Assignment, 0, len(workers))
	assigned := 0
	for i, w := range workers {
		if scores[i] <= 0 {
			continue
		}
		remaining := totalItems - assigned
		if remaining == 0 {
			break
		}
		var count int
		if i == lastEligible {
			// The last eligible worker absorbs whatever rounding left over,
			// which keeps the sum exact.
			count = remaining
		} else {
			count = int(math.Round(float64(totalItems) * float64(scores[i]) / float64(totalScore)))
			if count > remaining {
				count = remaining
			}
		}
		if count <= 0 {
			continue
		}
		assignments = append(assignments, Assignment{
			Worker:       w,
			Start:        assigned,
			Count:        count,
			WorkloadType: workloadType,
		})
		assigned += count
	}

	d.logger.Debug("distributed workload",
		zap.String("workloadType", workloadType),
		zap.Int("totalItems", totalItems),
		zap.Int("assignments", len(assignments)))
	return assignments, nil
}
