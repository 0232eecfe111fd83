// Package devicetest provides in-memory fakes for tests that need a device
// pool without real accelerator hardware.
package devicetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quantforge/accel-node/internal/device"
)

// FakeDevice implements device.Device with configurable descriptor and
// context-creation failure.
type FakeDevice struct {
	Desc     device.Descriptor
	FailOpen bool

	mu       sync.Mutex
	contexts []*FakeContext
}

// GPU returns a discrete-GPU fake with the given name, memory, and model.
func GPU(name, model string, memoryBytes int64) *FakeDevice {
	return &FakeDevice{Desc: device.Descriptor{
		Name:               name,
		Kind:               device.KindDiscreteGPU,
		MemoryBytes:        memoryBytes,
		MaxThreadsPerGroup: 1024,
		Vendor:             "FakeVendor",
		Model:              model,
	}}
}

// CPU returns a CPU-kind fake.
func CPU(name string, memoryBytes int64) *FakeDevice {
	return &FakeDevice{Desc: device.Descriptor{
		Name:               name,
		Kind:               device.KindCPU,
		MemoryBytes:        memoryBytes,
		MaxThreadsPerGroup: 16,
		Vendor:             "FakeVendor",
	}}
}

func (d *FakeDevice) Descriptor() device.Descriptor { return d.Desc }

func (d *FakeDevice) OpenContext() (device.Context, error) {
	if d.FailOpen {
		return nil, errors.New("context creation failed")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx := &FakeContext{desc: d.Desc}
	d.contexts = append(d.contexts, ctx)
	return ctx, nil
}

// OpenedContexts returns every context this device has handed out.
func (d *FakeDevice) OpenedContexts() []*FakeContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeContext(nil), d.contexts...)
}

// FakeContext counts synchronize calls and tracks closure.
type FakeContext struct {
	mu           sync.Mutex
	desc         device.Descriptor
	closed       bool
	synchronizes int
	allocated    int64
}

func (c *FakeContext) Descriptor() device.Descriptor { return c.desc }

func (c *FakeContext) AllocateBuffer(size int64) (device.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("context is closed")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	c.allocated += size
	return &fakeBuffer{size: size}, nil
}

func (c *FakeContext) Synchronize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("context is closed")
	}
	c.synchronizes++
	return nil
}

func (c *FakeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *FakeContext) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Synchronizes returns the number of Synchronize calls.
func (c *FakeContext) Synchronizes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synchronizes
}

type fakeBuffer struct {
	size int64
}

func (b *fakeBuffer) Size() int64 { return b.size }
func (b *fakeBuffer) Free() error { return nil }

// FakeProbe implements device.Probe over a fixed device list.
type FakeProbe struct {
	ProbeName string
	Devices   []device.Device
	Err       error
}

func (p *FakeProbe) Name() string {
	if p.ProbeName == "" {
		return "fake"
	}
	return p.ProbeName
}

func (p *FakeProbe) Probe() ([]device.Device, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Devices, nil
}
