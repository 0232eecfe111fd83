//go:build !cuda
// +build !cuda

package device

import "go.uber.org/zap"

// cudaProbe is a stub when compiled without CUDA support.
type cudaProbe struct {
	logger *zap.Logger
}

func newCUDAProbe(logger *zap.Logger) Probe {
	return &cudaProbe{logger: logger}
}

func (p *cudaProbe) Name() string { return "cuda" }

func (p *cudaProbe) Probe() ([]Device, error) {
	p.logger.Debug("compiled without CUDA support, skipping CUDA probe")
	return nil, nil
}
