package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/device"
	"github.com/quantforge/accel-node/internal/metrics"
	"github.com/quantforge/accel-node/internal/profile"
	"github.com/quantforge/accel-node/internal/worker"
)

// ErrAllAssignmentsFailed is returned when every assignment of a call failed
// for a reason other than cancellation.
var ErrAllAssignmentsFailed = errors.New("all assignments failed")

// memorySafetyFactor caps memory-optimized batches at 70% of per-device
// memory so a batch can never exhaust the device it lands on.
const memorySafetyFactor = 0.7

// Kernel computes the results for one contiguous item range on one device
// context. The caller closes over its input data; the returned slice must
// hold exactly rng.Count results, in item order.
type Kernel[R any] func(ctx context.Context, dc device.Context, rng Range) ([]R, error)

// Result carries the recombined outputs of one Execute call. Values always
// has one slot per input item, in input order; ranges listed in FailedRanges
// hold zero values.
type Result[R any] struct {
	Values       []R
	FailedRanges []Range
	Cancelled    bool
	Strategy     Strategy
}

// Execute is the primary entry point: it selects a strategy for the workload,
// distributes and runs the kernel, and recombines partial outputs in input
// order. The error is non-nil only when the call could not run at all or
// every assignment failed; isolated assignment failures and cancellation are
// reported on the Result instead.
func Execute[R any](ctx context.Context, o *Orchestrator, itemCount int, workloadType string, kernel Kernel[R]) (*Result[R], error) {
	if itemCount < 0 {
		return nil, fmt.Errorf("itemCount must be >= 0, got %d", itemCount)
	}
	if err := o.beginExecute(); err != nil {
		return nil, err
	}
	defer o.endExecute()

	prof, err := o.profiles.Get(workloadType)
	if err != nil {
		return nil, err
	}
	availableWorkers := o.pool.ActiveDeviceCount()
	if availableWorkers == 0 {
		return nil, device.ErrNoAccelerator
	}

	strategy := SelectStrategy(itemCount, prof, availableWorkers)
	metrics.StrategySelections.WithLabelValues(workloadType, strategy.String()).Inc()
	o.logger.Info("strategy selected",
		zap.String("workloadType", workloadType),
		zap.Int("itemCount", itemCount),
		zap.Int("availableWorkers", availableWorkers),
		zap.String("strategy", strategy.String()))

	res := &Result[R]{
		Values:   make([]R, itemCount),
		Strategy: strategy,
	}
	if itemCount == 0 {
		return res, nil
	}

	switch strategy {
	case StrategySingleOptimal:
		err = runSingleOptimal(ctx, o, itemCount, workloadType, kernel, res)
	case StrategyParallelDistributed:
		err = runParallelDistributed(ctx, o, itemCount, workloadType, kernel, res)
	case StrategySequentialRoundRobin:
		err = runSequentialRoundRobin(ctx, o, itemCount, workloadType, kernel, res)
	case StrategyMemoryOptimizedBatching:
		err = runMemoryOptimizedBatching(ctx, o, itemCount, workloadType, prof, kernel, res)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// launchAssignment runs the kernel for one range on one worker and writes its
// results into the shared output slice. Ranges are disjoint, so concurrent
// launches on different workers never write the same region.
func launchAssignment[R any](ctx context.Context, w *worker.Worker, rng Range, kernel Kernel[R], out []R) error {
	return w.Execute(ctx, func(dc device.Context) error {
		values, err := kernel(ctx, dc, rng)
		if err != nil {
			return err
		}
		if len(values) != rng.Count {
			return fmt.Errorf("kernel returned %d results for a %d-item range", len(values), rng.Count)
		}
		copy(out[rng.Start:rng.Start+rng.Count], values)
		return nil
	})
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// recordFailure classifies one assignment failure onto the result and reports
// whether it was a real failure (as opposed to cancellation).
func recordFailure[R any](o *Orchestrator, w *worker.Worker, rng Range, err error, res *Result[R]) bool {
	res.FailedRanges = append(res.FailedRanges, rng)
	if isCancellation(err) {
		res.Cancelled = true
		return false
	}
	metrics.AssignmentFailures.WithLabelValues(w.Descriptor().Kind.String()).Inc()
	o.logger.Warn("assignment failed, siblings unaffected",
		zap.String("worker", w.Descriptor().Name),
		zap.Int("start", rng.Start),
		zap.Int("count", rng.Count),
		zap.Error(err))
	return true
}

func runSingleOptimal[R any](ctx context.Context, o *Orchestrator, itemCount int, workloadType string, kernel Kernel[R], res *Result[R]) error {
	best, err := o.pool.BestWorker()
	if err != nil {
		return err
	}
	rng := Range{Start: 0, Count: itemCount}
	if err := launchAssignment(ctx, best, rng, kernel, res.Values); err != nil {
		if recordFailure(o, best, rng, err, res) {
			return fmt.Errorf("%w: %v", ErrAllAssignmentsFailed, err)
		}
	}
	return nil
}

func runParallelDistributed[R any](ctx context.Context, o *Orchestrator, itemCount int, workloadType string, kernel Kernel[R], res *Result[R]) error {
	assignments, err := o.distributor.Distribute(itemCount, workloadType)
	if err != nil {
		return err
	}

	// One task per assignment; distinct workers own distinct contexts, so
	// the launches are independent.
	errs := make([]error, len(assignments))
	var wg sync.WaitGroup
	for i := range assignments {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := assignments[i]
			errs[i] = launchAssignment(ctx, a.Worker, Range{Start: a.Start, Count: a.Count}, kernel, res.Values)
		}(i)
	}
	wg.Wait()

	failures := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		a := assignments[i]
		if recordFailure(o, a.Worker, Range{Start: a.Start, Count: a.Count}, err, res) {
			failures++
		}
	}
	if len(assignments) > 0 && failures == len(assignments) {
		return ErrAllAssignmentsFailed
	}
	return nil
}

func runSequentialRoundRobin[R any](ctx context.Context, o *Orchestrator, itemCount int, workloadType string, kernel Kernel[R], res *Result[R]) error {
	workers := o.pool.Workers()
	if len(workers) == 0 {
		return device.ErrNoAccelerator
	}
	batchSize := itemCount / len(workers)
	if batchSize < 1 {
		batchSize = 1
	}

	// Batches run strictly one at a time: each launch synchronizes before
	// the next starts, so workers take turns without ever overlapping.
	batches, failures := 0, 0
	for start, i := 0, 0; start < itemCount; start, i = start+batchSize, i+1 {
		count := batchSize
		if start+count > itemCount {
			count = itemCount - start
		}
		rng := Range{Start: start, Count: count}
		batches++

		if ctx.Err() != nil {
			// In-flight kernels have already finished; no new batch starts.
			res.Cancelled = true
			res.FailedRanges = append(res.FailedRanges, rng)
			continue
		}

		w := workers[i%len(workers)]
		if err := launchAssignment(ctx, w, rng, kernel, res.Values); err != nil {
			if recordFailure(o, w, rng, err, res) {
				failures++
			}
		}
	}
	if batches > 0 && failures == batches {
		return ErrAllAssignmentsFailed
	}
	return nil
}

func runMemoryOptimizedBatching[R any](ctx context.Context, o *Orchestrator, itemCount int, workloadType string, prof profile.ResourceProfile, kernel Kernel[R], res *Result[R]) error {
	active := o.pool.ActiveDeviceCount()
	if active == 0 {
		return device.ErrNoAccelerator
	}
	perDevice := o.pool.TotalCapacityMemory() / int64(active)
	maxItemsPerBatch := int(float64(perDevice) * memorySafetyFactor / float64(prof.EstimatedMemoryPerItem))
	if maxItemsPerBatch < 1 {
		maxItemsPerBatch = 1
	}

	o.logger.Debug("memory-optimized batching",
		zap.String("workloadType", workloadType),
		zap.Int("itemCount", itemCount),
		zap.Int("maxItemsPerBatch", maxItemsPerBatch))

	batches, failures := 0, 0
	for start := 0; start < itemCount; start += maxItemsPerBatch {
		count := maxItemsPerBatch
		if start+count > itemCount {
			count = itemCount - start
		}
		rng := Range{Start: start, Count: count}
		batches++

		if ctx.Err() != nil {
			res.Cancelled = true
			res.FailedRanges = append(res.FailedRanges, rng)
			continue
		}

		// Batches deliberately all run on the best worker: very large
		// workloads favor not oversubscribing device memory over
		// parallelism.
		best, err := o.pool.BestWorker()
		if err != nil {
			return err
		}
		if err := launchAssignment(ctx, best, rng, kernel, res.Values); err != nil {
			if recordFailure(o, best, rng, err, res) {
				failures++
			}
		}
	}
	if batches > 0 && failures == batches {
		return ErrAllAssignmentsFailed
	}
	return nil
}
