package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/device"
	"github.com/quantforge/accel-node/internal/device/devicetest"
	"github.com/quantforge/accel-node/internal/worker"
)

func TestNewPoolOrdersByDescendingScore(t *testing.T) {
	cpu := devicetest.CPU("cpu0", 32<<30)
	small := devicetest.GPU("gpu-small", "GeForce RTX 2080", 8<<30)
	big := devicetest.GPU("gpu-big", "NVIDIA H100", 80<<30)

	pool, err := worker.NewPool([]device.Device{cpu, small, big}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	workers := pool.Workers()
	require.Len(t, workers, 3)
	assert.Equal(t, "gpu-big", workers[0].Descriptor().Name)
	assert.Equal(t, "gpu-small", workers[1].Descriptor().Name)
	assert.Equal(t, "cpu0", workers[2].Descriptor().Name)
}

func TestNewPoolExcludesFailingDevice(t *testing.T) {
	bad := devicetest.GPU("gpu-bad", "NVIDIA H100", 80<<30)
	bad.FailOpen = true
	good := devicetest.GPU("gpu-good", "GeForce RTX 3090", 24<<30)

	pool, err := worker.NewPool([]device.Device{bad, good}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, 1, pool.ActiveDeviceCount())
	assert.Equal(t, "gpu-good", pool.Workers()[0].Descriptor().Name)
}

func TestNewPoolFailsWithZeroWorkers(t *testing.T) {
	bad := devicetest.GPU("gpu-bad", "NVIDIA H100", 80<<30)
	bad.FailOpen = true

	_, err := worker.NewPool([]device.Device{bad}, zap.NewNop())
	require.ErrorIs(t, err, device.ErrNoAccelerator)
}

func TestBestWorkerPrefersNonCPU(t *testing.T) {
	cpu := devicetest.CPU("cpu0", 256<<30)
	gpu := devicetest.GPU("gpu0", "GeForce RTX 2080", 8<<30)

	pool, err := worker.NewPool([]device.Device{cpu, gpu}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	best, err := pool.BestWorker()
	require.NoError(t, err)
	assert.Equal(t, "gpu0", best.Descriptor().Name)
}

func TestBestWorkerFallsBackToCPU(t *testing.T) {
	cpu := devicetest.CPU("cpu0", 32<<30)

	pool, err := worker.NewPool([]device.Device{cpu}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	best, err := pool.BestWorker()
	require.NoError(t, err)
	assert.Equal(t, "cpu0", best.Descriptor().Name)
	assert.False(t, best.IsPhysicalAccelerator())
}

func TestTotalCapacityMemory(t *testing.T) {
	a := devicetest.GPU("gpu0", "NVIDIA H100", 80<<30)
	b := devicetest.GPU("gpu1", "GeForce RTX 3090", 24<<30)

	pool, err := worker.NewPool([]device.Device{a, b}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, int64(104<<30), pool.TotalCapacityMemory())
}

func TestInventory(t *testing.T) {
	gpu := devicetest.GPU("gpu0", "NVIDIA H100", 80<<30)
	cpu := devicetest.CPU("cpu0", 32<<30)

	pool, err := worker.NewPool([]device.Device{gpu, cpu}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	inv := pool.Inventory()
	require.Len(t, inv, 2)
	assert.Equal(t, "gpu0", inv[0].Name)
	assert.Equal(t, device.KindDiscreteGPU, inv[0].Kind)
	assert.Equal(t, device.Score(gpu.Desc), inv[0].Score)
	assert.Equal(t, "cpu0", inv[1].Name)
}

func TestWorkerExecuteSerializesAndSynchronizes(t *testing.T) {
	gpu := devicetest.GPU("gpu0", "NVIDIA H100", 80<<30)
	pool, err := worker.NewPool([]device.Device{gpu}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	w := pool.Workers()[0]

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Execute(context.Background(), func(device.Context) error {
				n := inFlight.Add(1)
				if n > maxInFlight.Load() {
					maxInFlight.Store(n)
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(), "kernels on one worker must never overlap")
	assert.Equal(t, 8, gpu.OpenedContexts()[0].Synchronizes())
}

func TestWorkerExecutePropagatesKernelError(t *testing.T) {
	gpu := devicetest.GPU("gpu0", "NVIDIA H100", 80<<30)
	pool, err := worker.NewPool([]device.Device{gpu}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	w := pool.Workers()[0]
	kernelErr := errors.New("kernel launch failed")
	err = w.Execute(context.Background(), func(device.Context) error { return kernelErr })
	require.ErrorIs(t, err, kernelErr)
}

func TestWorkerExecuteHonorsCancelledContext(t *testing.T) {
	gpu := devicetest.GPU("gpu0", "NVIDIA H100", 80<<30)
	pool, err := worker.NewPool([]device.Device{gpu}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := pool.Workers()[0]
	called := false
	err = w.Execute(ctx, func(device.Context) error { called = true; return nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called, "kernel must not launch after cancellation")
}

func TestPoolCloseDisposesAllContexts(t *testing.T) {
	a := devicetest.GPU("gpu0", "NVIDIA H100", 80<<30)
	b := devicetest.CPU("cpu0", 32<<30)

	pool, err := worker.NewPool([]device.Device{a, b}, zap.NewNop())
	require.NoError(t, err)

	w := pool.Workers()[0]
	require.NoError(t, pool.Close())

	assert.True(t, a.OpenedContexts()[0].Closed())
	assert.True(t, b.OpenedContexts()[0].Closed())

	err = w.Execute(context.Background(), func(device.Context) error { return nil })
	require.ErrorIs(t, err, worker.ErrWorkerClosed)

	_, err = pool.BestWorker()
	require.ErrorIs(t, err, device.ErrNoAccelerator)
}
