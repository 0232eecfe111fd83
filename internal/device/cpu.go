package device

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// defaultSystemMemory is used when the host memory query fails.
const defaultSystemMemory = 8 << 30

type cpuProbe struct {
	logger *zap.Logger
}

func newCPUProbe(logger *zap.Logger) Probe {
	return &cpuProbe{logger: logger}
}

func (p *cpuProbe) Name() string { return "cpu" }

// Probe always reports exactly one CPU device. The CPU is the fallback of
// last resort and must survive even when every memory/model query fails.
func (p *cpuProbe) Probe() ([]Device, error) {
	desc := Descriptor{
		Name:               fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		Kind:               KindCPU,
		MemoryBytes:        totalSystemMemory(),
		MaxThreadsPerGroup: runtime.NumCPU(),
		Vendor:             runtime.GOARCH,
		Model:              cpuModelName(),
	}
	return []Device{&cpuDevice{desc: desc, logger: p.logger}}, nil
}

func totalSystemMemory() int64 {
	vm, err := mem.VirtualMemory()
	if err != nil || vm == nil {
		return defaultSystemMemory
	}
	return int64(vm.Total)
}

func cpuModelName() string {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		return runtime.Version()
	}
	return infos[0].ModelName
}

type cpuDevice struct {
	desc   Descriptor
	logger *zap.Logger
}

func (d *cpuDevice) Descriptor() Descriptor { return d.desc }

func (d *cpuDevice) OpenContext() (Context, error) {
	d.logger.Debug("opening CPU context", zap.String("device", d.desc.Name))
	return &cpuContext{desc: d.desc}, nil
}

// cpuContext runs kernels in-process. Buffers are plain host allocations and
// Synchronize is a no-op since CPU kernels complete before Execute returns.
type cpuContext struct {
	mu     sync.Mutex
	desc   Descriptor
	closed bool
}

func (c *cpuContext) Descriptor() Descriptor { return c.desc }

func (c *cpuContext) AllocateBuffer(size int64) (Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("cpu context is closed")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	return &hostBuffer{data: make([]byte, size)}, nil
}

func (c *cpuContext) Synchronize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("cpu context is closed")
	}
	return nil
}

func (c *cpuContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type hostBuffer struct {
	data []byte
}

func (b *hostBuffer) Size() int64 { return int64(len(b.data)) }

func (b *hostBuffer) Free() error {
	b.data = nil
	return nil
}
