package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/device"
	"github.com/quantforge/accel-node/internal/metrics"
)

// ErrWorkerClosed is returned for any operation on a disposed worker.
var ErrWorkerClosed = errors.New("worker is closed")

// Worker owns exactly one live device context. No other component may address
// the underlying device; concurrent launches onto the same worker are
// serialized here, launches onto different workers are independent.
type Worker struct {
	desc     device.Descriptor
	score    int
	physical bool
	logger   *zap.Logger

	mu     sync.Mutex
	dc     device.Context
	closed bool
}

func newWorker(dev device.Device, dc device.Context, logger *zap.Logger) *Worker {
	desc := dev.Descriptor()
	return &Worker{
		desc:     desc,
		score:    device.Score(desc),
		physical: desc.Kind != device.KindCPU,
		dc:       dc,
		logger:   logger.Named("worker").With(zap.String("device", desc.Name)),
	}
}

func (w *Worker) Descriptor() device.Descriptor { return w.desc }

// Score is the capability score of the underlying device, recomputed from the
// descriptor at construction.
func (w *Worker) Score() int { return w.score }

// IsPhysicalAccelerator reports whether this worker is backed by real
// accelerator hardware rather than the CPU fallback.
func (w *Worker) IsPhysicalAccelerator() bool { return w.physical }

// AllocateBuffer allocates device memory on this worker's context.
func (w *Worker) AllocateBuffer(size int64) (device.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWorkerClosed
	}
	return w.dc.AllocateBuffer(size)
}

// Execute runs fn against this worker's context, then synchronizes. The
// worker's mutex serializes Execute calls so two kernels can never share the
// context. fn receives the context only for the duration of the call and must
// not retain it.
func (w *Worker) Execute(ctx context.Context, fn func(device.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkerClosed
	}

	start := time.Now()
	err := fn(w.dc)
	metrics.KernelDuration.WithLabelValues(w.desc.Kind.String()).
		Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return err
	}
	return w.dc.Synchronize()
}

// Synchronize blocks until all work queued on this worker's context is done.
func (w *Worker) Synchronize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkerClosed
	}
	return w.dc.Synchronize()
}

// Close releases the device context. Further operations fail with
// ErrWorkerClosed.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Debug("closing worker context")
	return w.dc.Close()
}
