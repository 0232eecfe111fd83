//go:build opencl
// +build opencl

package device

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#ifdef __APPLE__
#include <OpenCL/cl.h>
#else
#include <CL/cl.h>
#endif
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

const maxOpenCLPlatforms = 8

type openCLProbe struct {
	logger *zap.Logger
}

func newOpenCLProbe(logger *zap.Logger) Probe {
	return &openCLProbe{logger: logger}
}

func (p *openCLProbe) Name() string { return "opencl" }

func (p *openCLProbe) Probe() ([]Device, error) {
	var platforms [maxOpenCLPlatforms]C.cl_platform_id
	var numPlatforms C.cl_uint
	if rc := C.clGetPlatformIDs(maxOpenCLPlatforms, &platforms[0], &numPlatforms); rc != C.CL_SUCCESS {
		return nil, fmt.Errorf("clGetPlatformIDs: error %d", int(rc))
	}

	var devices []Device
	for pi := 0; pi < int(numPlatforms); pi++ {
		var ids [16]C.cl_device_id
		var numDevices C.cl_uint
		rc := C.clGetDeviceIDs(platforms[pi], C.CL_DEVICE_TYPE_GPU, 16, &ids[0], &numDevices)
		if rc == C.CL_DEVICE_NOT_FOUND {
			continue
		}
		if rc != C.CL_SUCCESS {
			p.logger.Warn("clGetDeviceIDs failed, skipping platform",
				zap.Int("platform", pi), zap.Int("error", int(rc)))
			continue
		}
		for di := 0; di < int(numDevices); di++ {
			desc, err := openCLDescriptor(ids[di])
			if err != nil {
				p.logger.Warn("failed to query OpenCL device, skipping",
					zap.Int("platform", pi), zap.Int("device", di), zap.Error(err))
				continue
			}
			devices = append(devices, &openCLDevice{id: ids[di], desc: desc, logger: p.logger})
		}
	}
	return devices, nil
}

func openCLDescriptor(id C.cl_device_id) (Descriptor, error) {
	name, err := openCLDeviceString(id, C.CL_DEVICE_NAME)
	if err != nil {
		return Descriptor{}, err
	}
	vendor, err := openCLDeviceString(id, C.CL_DEVICE_VENDOR)
	if err != nil {
		return Descriptor{}, err
	}

	var memSize C.cl_ulong
	if rc := C.clGetDeviceInfo(id, C.CL_DEVICE_GLOBAL_MEM_SIZE, C.size_t(unsafe.Sizeof(memSize)), unsafe.Pointer(&memSize), nil); rc != C.CL_SUCCESS {
		return Descriptor{}, fmt.Errorf("clGetDeviceInfo(GLOBAL_MEM_SIZE): error %d", int(rc))
	}
	var groupSize C.size_t
	if rc := C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_WORK_GROUP_SIZE, C.size_t(unsafe.Sizeof(groupSize)), unsafe.Pointer(&groupSize), nil); rc != C.CL_SUCCESS {
		return Descriptor{}, fmt.Errorf("clGetDeviceInfo(MAX_WORK_GROUP_SIZE): error %d", int(rc))
	}
	var unified C.cl_bool
	if rc := C.clGetDeviceInfo(id, C.CL_DEVICE_HOST_UNIFIED_MEMORY, C.size_t(unsafe.Sizeof(unified)), unsafe.Pointer(&unified), nil); rc != C.CL_SUCCESS {
		unified = C.CL_FALSE
	}

	kind := KindDiscreteGPU
	if unified == C.CL_TRUE {
		kind = KindIntegratedGPU
	}
	return Descriptor{
		Name:               name,
		Kind:               kind,
		MemoryBytes:        int64(memSize),
		MaxThreadsPerGroup: int(groupSize),
		Vendor:             vendor,
		Model:              name,
	}, nil
}

func openCLDeviceString(id C.cl_device_id, param C.cl_device_info) (string, error) {
	var buf [256]C.char
	if rc := C.clGetDeviceInfo(id, param, 256, unsafe.Pointer(&buf[0]), nil); rc != C.CL_SUCCESS {
		return "", fmt.Errorf("clGetDeviceInfo(%d): error %d", int(param), int(rc))
	}
	return C.GoString(&buf[0]), nil
}

type openCLDevice struct {
	id     C.cl_device_id
	desc   Descriptor
	logger *zap.Logger
}

func (d *openCLDevice) Descriptor() Descriptor { return d.desc }

func (d *openCLDevice) OpenContext() (Context, error) {
	var rc C.cl_int
	clCtx := C.clCreateContext(nil, 1, &d.id, nil, nil, &rc)
	if rc != C.CL_SUCCESS {
		return nil, fmt.Errorf("clCreateContext on %s: error %d", d.desc.Name, int(rc))
	}
	queue := C.clCreateCommandQueue(clCtx, d.id, 0, &rc)
	if rc != C.CL_SUCCESS {
		C.clReleaseContext(clCtx)
		return nil, fmt.Errorf("clCreateCommandQueue on %s: error %d", d.desc.Name, int(rc))
	}
	d.logger.Debug("opened OpenCL context", zap.String("device", d.desc.Name))
	return &openCLContext{clCtx: clCtx, queue: queue, desc: d.desc}, nil
}

type openCLContext struct {
	mu     sync.Mutex
	clCtx  C.cl_context
	queue  C.cl_command_queue
	desc   Descriptor
	closed bool
}

func (c *openCLContext) Descriptor() Descriptor { return c.desc }

func (c *openCLContext) AllocateBuffer(size int64) (Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("opencl context is closed")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	var rc C.cl_int
	buf := C.clCreateBuffer(c.clCtx, C.CL_MEM_READ_WRITE, C.size_t(size), nil, &rc)
	if rc != C.CL_SUCCESS {
		return nil, fmt.Errorf("clCreateBuffer(%d): error %d", size, int(rc))
	}
	return &openCLBuffer{buf: buf, size: size}, nil
}

func (c *openCLContext) Synchronize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("opencl context is closed")
	}
	if rc := C.clFinish(c.queue); rc != C.CL_SUCCESS {
		return fmt.Errorf("clFinish: error %d", int(rc))
	}
	return nil
}

func (c *openCLContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	C.clReleaseCommandQueue(c.queue)
	C.clReleaseContext(c.clCtx)
	return nil
}

type openCLBuffer struct {
	buf  C.cl_mem
	size int64
}

func (b *openCLBuffer) Size() int64 { return b.size }

func (b *openCLBuffer) Free() error {
	if b.buf == nil {
		return nil
	}
	rc := C.clReleaseMemObject(b.buf)
	b.buf = nil
	if rc != C.CL_SUCCESS {
		return fmt.Errorf("clReleaseMemObject: error %d", int(rc))
	}
	return nil
}
