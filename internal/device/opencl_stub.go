//go:build !opencl
// +build !opencl

package device

import "go.uber.org/zap"

// openCLProbe is a stub when compiled without OpenCL support.
type openCLProbe struct {
	logger *zap.Logger
}

func newOpenCLProbe(logger *zap.Logger) Probe {
	return &openCLProbe{logger: logger}
}

func (p *openCLProbe) Name() string { return "opencl" }

func (p *openCLProbe) Probe() ([]Device, error) {
	p.logger.Debug("compiled without OpenCL support, skipping OpenCL probe")
	return nil, nil
}
