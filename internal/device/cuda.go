//go:build cuda
// +build cuda

package device

/*
#cgo LDFLAGS: -lcudart
#include <cuda_runtime.h>
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

type cudaProbe struct {
	logger *zap.Logger
}

func newCUDAProbe(logger *zap.Logger) Probe {
	return &cudaProbe{logger: logger}
}

func (p *cudaProbe) Name() string { return "cuda" }

func (p *cudaProbe) Probe() ([]Device, error) {
	var count C.int
	if rc := C.cudaGetDeviceCount(&count); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaGetDeviceCount: %s", C.GoString(C.cudaGetErrorString(rc)))
	}

	devices := make([]Device, 0, int(count))
	for i := 0; i < int(count); i++ {
		var props C.struct_cudaDeviceProp
		if rc := C.cudaGetDeviceProperties(&props, C.int(i)); rc != C.cudaSuccess {
			p.logger.Warn("cudaGetDeviceProperties failed, skipping device",
				zap.Int("index", i),
				zap.String("error", C.GoString(C.cudaGetErrorString(rc))))
			continue
		}

		kind := KindDiscreteGPU
		if props.integrated != 0 {
			kind = KindIntegratedGPU
		}
		name := C.GoString(&props.name[0])
		devices = append(devices, &cudaDevice{
			index: i,
			desc: Descriptor{
				Name:               name,
				Kind:               kind,
				MemoryBytes:        int64(props.totalGlobalMem),
				MaxThreadsPerGroup: int(props.maxThreadsPerBlock),
				Vendor:             "NVIDIA",
				Model:              name,
				Generation:         int(props.major),
			},
			logger: p.logger,
		})
	}
	return devices, nil
}

type cudaDevice struct {
	index  int
	desc   Descriptor
	logger *zap.Logger
}

func (d *cudaDevice) Descriptor() Descriptor { return d.desc }

func (d *cudaDevice) OpenContext() (Context, error) {
	if rc := C.cudaSetDevice(C.int(d.index)); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaSetDevice(%d): %s", d.index, C.GoString(C.cudaGetErrorString(rc)))
	}
	// Force lazy context creation now so an unhealthy device is excluded at
	// pool initialization instead of at first kernel launch.
	if rc := C.cudaFree(nil); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cuda context creation on device %d: %s", d.index, C.GoString(C.cudaGetErrorString(rc)))
	}
	d.logger.Debug("opened CUDA context", zap.Int("index", d.index), zap.String("device", d.desc.Name))
	return &cudaContext{index: d.index, desc: d.desc}, nil
}

type cudaContext struct {
	mu     sync.Mutex
	index  int
	desc   Descriptor
	closed bool
}

func (c *cudaContext) Descriptor() Descriptor { return c.desc }

func (c *cudaContext) AllocateBuffer(size int64) (Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("cuda context is closed")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	if rc := C.cudaSetDevice(C.int(c.index)); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaSetDevice(%d): %s", c.index, C.GoString(C.cudaGetErrorString(rc)))
	}
	var ptr unsafe.Pointer
	if rc := C.cudaMalloc(&ptr, C.size_t(size)); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaMalloc(%d): %s", size, C.GoString(C.cudaGetErrorString(rc)))
	}
	return &cudaBuffer{ptr: ptr, size: size}, nil
}

func (c *cudaContext) Synchronize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("cuda context is closed")
	}
	if rc := C.cudaSetDevice(C.int(c.index)); rc != C.cudaSuccess {
		return fmt.Errorf("cudaSetDevice(%d): %s", c.index, C.GoString(C.cudaGetErrorString(rc)))
	}
	if rc := C.cudaDeviceSynchronize(); rc != C.cudaSuccess {
		return fmt.Errorf("cudaDeviceSynchronize: %s", C.GoString(C.cudaGetErrorString(rc)))
	}
	return nil
}

func (c *cudaContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type cudaBuffer struct {
	ptr  unsafe.Pointer
	size int64
}

func (b *cudaBuffer) Size() int64 { return b.size }

func (b *cudaBuffer) Free() error {
	if b.ptr == nil {
		return nil
	}
	rc := C.cudaFree(b.ptr)
	b.ptr = nil
	if rc != C.cudaSuccess {
		return fmt.Errorf("cudaFree: %s", C.GoString(C.cudaGetErrorString(rc)))
	}
	return nil
}
