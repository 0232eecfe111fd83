package worker

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/device"
	"github.com/quantforge/accel-node/internal/metrics"
)

// InventoryEntry is the read-only diagnostic view of one active worker.
type InventoryEntry struct {
	Name        string      `json:"name"`
	Kind        device.Kind `json:"kind"`
	MemoryBytes int64       `json:"memoryBytes"`
	Score       int         `json:"score"`
}

// Pool owns every Worker. It is the sole arena owner of the device contexts;
// callers only ever see *Worker references handed out by the pool.
type Pool struct {
	logger *zap.Logger

	mu      sync.RWMutex
	workers []*Worker // descending score, scan order on ties
	closed  bool
}

// NewPool opens a context for every scanned device and wraps each in a
// Worker, ordered by descending score. A device whose context creation fails
// is logged and excluded; the pool fails only if no device survives.
func NewPool(devices []device.Device, logger *zap.Logger) (*Pool, error) {
	log := logger.Named("pool")

	var workers []*Worker
	for _, dev := range devices {
		desc := dev.Descriptor()
		dc, err := dev.OpenContext()
		if err != nil {
			metrics.DevicesExcluded.WithLabelValues(desc.Kind.String()).Inc()
			log.Warn("excluding device: context creation failed",
				zap.String("device", desc.Name),
				zap.String("kind", desc.Kind.String()),
				zap.Error(err))
			continue
		}
		workers = append(workers, newWorker(dev, dc, logger))
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("pool initialization: %w", device.ErrNoAccelerator)
	}

	// Stable sort keeps scan enumeration order as the tie-break.
	sort.SliceStable(workers, func(i, j int) bool {
		return workers[i].Score() > workers[j].Score()
	})

	p := &Pool{logger: log, workers: workers}
	metrics.PoolActiveWorkers.Set(float64(len(workers)))
	metrics.PoolCapacityBytes.Set(float64(p.TotalCapacityMemory()))
	log.Info("pool initialized",
		zap.Int("workers", len(workers)),
		zap.Int64("totalCapacityBytes", p.TotalCapacityMemory()),
		zap.String("best", workers[0].Descriptor().Name))
	return p, nil
}

// Workers returns the active workers in descending-score order.
func (p *Pool) Workers() []*Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Worker(nil), p.workers...)
}

// BestWorker returns the highest-scoring non-CPU worker, falling back to the
// highest-scoring worker overall when only CPU workers exist.
func (p *Pool) BestWorker() (*Worker, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || len(p.workers) == 0 {
		return nil, device.ErrNoAccelerator
	}
	for _, w := range p.workers {
		if w.IsPhysicalAccelerator() {
			return w, nil
		}
	}
	return p.workers[0], nil
}

// TotalCapacityMemory is the summed memory capacity of all active workers.
func (p *Pool) TotalCapacityMemory() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var total int64
	for _, w := range p.workers {
		total += w.Descriptor().MemoryBytes
	}
	return total
}

// ActiveDeviceCount is the number of workers holding a live context.
func (p *Pool) ActiveDeviceCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// Inventory returns the diagnostic view of the pool.
func (p *Pool) Inventory() []InventoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]InventoryEntry, 0, len(p.workers))
	for _, w := range p.workers {
		desc := w.Descriptor()
		entries = append(entries, InventoryEntry{
			Name:        desc.Name,
			Kind:        desc.Kind,
			MemoryBytes: desc.MemoryBytes,
			Score:       w.Score(),
		})
	}
	return entries
}

// Close disposes every worker. The first error is returned but all workers
// are closed regardless.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for _, w := range p.workers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	metrics.PoolActiveWorkers.Set(0)
	metrics.PoolCapacityBytes.Set(0)
	p.logger.Info("pool closed", zap.Int("workers", len(p.workers)))
	return firstErr
}
