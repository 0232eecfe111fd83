package device

import (
	"errors"
)

// ErrNoAccelerator is returned when discovery or pool initialization ends with
// zero usable devices.
var ErrNoAccelerator = errors.New("no accelerator available")

// Kind classifies a compute device. Ordering is not meaningful; scoring
// weights are assigned explicitly in score.go.
type Kind int

const (
	KindCPU Kind = iota
	KindIntegratedGPU
	KindDiscreteGPU
)

func (k Kind) String() string {
	switch k {
	case KindDiscreteGPU:
		return "DiscreteGPU"
	case KindIntegratedGPU:
		return "IntegratedGPU"
	case KindCPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// Descriptor describes one discovered device. It is produced once at scan time
// and never mutated.
type Descriptor struct {
	Name               string `json:"name"`
	Kind               Kind   `json:"kind"`
	MemoryBytes        int64  `json:"memoryBytes"`
	MaxThreadsPerGroup int    `json:"maxThreadsPerGroup"`
	Vendor             string `json:"vendor"`
	Model              string `json:"model"`
	Generation         int    `json:"generation"`
}

// Device is one scanned accelerator. OpenContext creates the live execution
// context; a failure here excludes the device from the pool, not the scan.
type Device interface {
	Descriptor() Descriptor
	OpenContext() (Context, error)
}

// Buffer is a device-memory allocation owned by one context.
type Buffer interface {
	Size() int64
	Free() error
}

// Context is a live, exclusively-owned execution context on one device. All
// operations are scoped to that device. Contexts are not safe for concurrent
// use; the owning worker serializes access.
type Context interface {
	Descriptor() Descriptor
	AllocateBuffer(size int64) (Buffer, error)
	Synchronize() error
	Close() error
}
