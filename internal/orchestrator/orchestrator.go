package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/config"
	"github.com/quantforge/accel-node/internal/metrics"
	"github.com/quantforge/accel-node/internal/profile"
	"github.com/quantforge/accel-node/internal/worker"
)

var (
	// ErrOrchestratorClosed is returned for calls made after disposal began.
	ErrOrchestratorClosed = errors.New("orchestrator is closed")
	// ErrTaskQueueFull is returned when the background queue cannot accept
	// another task without blocking the producer.
	ErrTaskQueueFull = errors.New("background task queue is full")
)

// State is the orchestrator lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateReady
	StateExecuting
	StateDisposing
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateReady:
		return "Ready"
	case StateExecuting:
		return "Executing"
	case StateDisposing:
		return "Disposing"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// TaskHandle tracks one background accelerator task. The handle completes
// exactly once; a task failure is reflected here and nowhere else.
type TaskHandle struct {
	ID string

	fn   func(context.Context) error
	done chan struct{}
	err  error
}

// Done is closed when the task has finished, successfully or not.
func (h *TaskHandle) Done() <-chan struct{} { return h.done }

// Err returns the task's failure after Done is closed.
func (h *TaskHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task completes or ctx is cancelled.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// Orchestrator is the top-level coordinator. It owns the worker pool, runs
// the background task loop, and is the only surface callers talk to.
type Orchestrator struct {
	logger       *zap.Logger
	pool         *worker.Pool
	profiles     *profile.Registry
	distributor  *Distributor
	pollInterval time.Duration

	disposeTimeout time.Duration

	// mu guards state transitions and the active-execution count only; it is
	// never held across a kernel launch.
	mu     sync.Mutex
	state  State
	active int

	tasks      chan *TaskHandle
	pending    cmap.ConcurrentMap[string, *TaskHandle]
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// New builds an orchestrator over an initialized pool and profile registry
// and starts the background task loop. The orchestrator is Ready on return.
func New(pool *worker.Pool, profiles *profile.Registry, cfg *config.Config, logger *zap.Logger) *Orchestrator {
	log := logger.Named("orchestrator")
	defaults := config.Default()
	pollInterval := cfg.Orchestrator.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaults.Orchestrator.PollInterval
	}
	disposeTimeout := cfg.Orchestrator.DisposeTimeout
	if disposeTimeout <= 0 {
		disposeTimeout = defaults.Orchestrator.DisposeTimeout
	}
	queueSize := cfg.Orchestrator.TaskQueueSize
	if queueSize <= 0 {
		queueSize = defaults.Orchestrator.TaskQueueSize
	}
	o := &Orchestrator{
		logger:         log,
		pool:           pool,
		profiles:       profiles,
		distributor:    NewDistributor(pool, profiles, logger),
		pollInterval:   pollInterval,
		disposeTimeout: disposeTimeout,
		state:          StateInitializing,
		tasks:          make(chan *TaskHandle, queueSize),
		pending:        cmap.New[*TaskHandle](),
		loopDone:       make(chan struct{}),
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	o.loopCancel = cancel
	go o.runLoop(loopCtx)

	o.mu.Lock()
	o.state = StateReady
	o.mu.Unlock()
	log.Info("orchestrator ready",
		zap.Int("workers", pool.ActiveDeviceCount()),
		zap.Duration("pollInterval", o.pollInterval))
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Inventory is the read-only diagnostic view of the device pool.
func (o *Orchestrator) Inventory() []worker.InventoryEntry {
	return o.pool.Inventory()
}

// Distribute exposes the distribution step for callers needing manual
// control, such as diagnostics.
func (o *Orchestrator) Distribute(totalItems int, workloadType string) ([]Assignment, error) {
	o.mu.Lock()
	closed := o.state == StateDisposing || o.state == StateDisposed
	o.mu.Unlock()
	if closed {
		return nil, ErrOrchestratorClosed
	}
	return o.distributor.Distribute(totalItems, workloadType)
}

// Submit enqueues an ad-hoc accelerator task for the background loop. The
// returned handle completes when the loop has run the task; a failing task
// never affects the loop or other tasks.
func (o *Orchestrator) Submit(fn func(context.Context) error) (*TaskHandle, error) {
	o.mu.Lock()
	closed := o.state == StateDisposing || o.state == StateDisposed
	o.mu.Unlock()
	if closed {
		return nil, ErrOrchestratorClosed
	}

	h := &TaskHandle{
		ID:   uuid.NewString(),
		fn:   fn,
		done: make(chan struct{}),
	}
	o.pending.Set(h.ID, h)
	select {
	case o.tasks <- h:
		metrics.TaskQueueDepth.Set(float64(len(o.tasks)))
		return h, nil
	default:
		o.pending.Remove(h.ID)
		return nil, ErrTaskQueueFull
	}
}

// PendingTasks returns the IDs of tasks submitted but not yet completed.
func (o *Orchestrator) PendingTasks() []string {
	return o.pending.Keys()
}

// runLoop is the single consumer of the task queue. It drains tasks as they
// arrive and otherwise sleeps for the poll interval, so an empty queue never
// busy-spins.
func (o *Orchestrator) runLoop(ctx context.Context) {
	defer close(o.loopDone)
	o.logger.Debug("background task loop started")
	for {
		// Checked first so a cancelled loop never dequeues another task,
		// even when one is already waiting.
		if ctx.Err() != nil {
			o.logger.Debug("background task loop stopping")
			return
		}
		select {
		case <-ctx.Done():
			o.logger.Debug("background task loop stopping")
			return
		case h := <-o.tasks:
			metrics.TaskQueueDepth.Set(float64(len(o.tasks)))
			o.runTask(ctx, h)
		case <-time.After(o.pollInterval):
		}
	}
}

// runTask executes one background task. Failures, including panics, are
// caught, logged, and reflected on the task's own handle; they never
// terminate the loop.
func (o *Orchestrator) runTask(ctx context.Context, h *TaskHandle) {
	defer func() {
		outcome := "ok"
		if r := recover(); r != nil {
			h.err = fmt.Errorf("background task panicked: %v", r)
		}
		if h.err != nil {
			outcome = "error"
			o.logger.Warn("background task failed",
				zap.String("taskID", h.ID),
				zap.Error(h.err))
		}
		metrics.BackgroundTasks.WithLabelValues(outcome).Inc()
		o.pending.Remove(h.ID)
		close(h.done)
	}()
	h.err = h.fn(ctx)
}

// beginExecute moves the orchestrator into Executing for the duration of one
// call. Independent calls do not block each other; exclusion happens per
// worker, never globally.
func (o *Orchestrator) beginExecute() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateReady && o.state != StateExecuting {
		return ErrOrchestratorClosed
	}
	o.active++
	o.state = StateExecuting
	return nil
}

func (o *Orchestrator) endExecute() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active--
	if o.active == 0 && o.state == StateExecuting {
		o.state = StateReady
	}
}

// Close cancels the background loop, waits for it with a bounded timeout,
// fails any still-queued tasks, and disposes the worker pool. Close is
// idempotent.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.state == StateDisposing || o.state == StateDisposed {
		o.mu.Unlock()
		return nil
	}
	o.state = StateDisposing
	o.mu.Unlock()

	o.loopCancel()
	select {
	case <-o.loopDone:
	case <-time.After(o.disposeTimeout):
		o.logger.Warn("background loop did not stop before timeout",
			zap.Duration("timeout", o.disposeTimeout))
	}

	// Tasks still queued will never run; complete their handles so waiters
	// are released.
	for {
		select {
		case h := <-o.tasks:
			h.err = ErrOrchestratorClosed
			o.pending.Remove(h.ID)
			close(h.done)
		default:
			metrics.TaskQueueDepth.Set(0)
			err := o.pool.Close()

			o.mu.Lock()
			o.state = StateDisposed
			o.mu.Unlock()
			o.logger.Info("orchestrator disposed")
			return err
		}
	}
}
