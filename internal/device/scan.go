package device

import (
	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/metrics"
)

// Probe enumerates the devices one backend can see. A probe that errors is
// logged and skipped; it never aborts the scan.
type Probe interface {
	Name() string
	Probe() ([]Device, error)
}

// DefaultProbes returns the probe set for this build: CUDA and OpenCL when
// compiled in (see the build-tagged files), and the always-available CPU
// fallback last.
func DefaultProbes(logger *zap.Logger) []Probe {
	return []Probe{
		newCUDAProbe(logger),
		newOpenCLProbe(logger),
		newCPUProbe(logger),
	}
}

// Scan runs every probe and collects the surviving devices in enumeration
// order. The scan fails only when no probe yields a single device.
func Scan(probes []Probe, logger *zap.Logger) ([]Device, error) {
	log := logger.Named("scan")

	var devices []Device
	for _, p := range probes {
		found, err := p.Probe()
		if err != nil {
			log.Warn("device probe failed, skipping backend",
				zap.String("probe", p.Name()),
				zap.Error(err))
			continue
		}
		for _, d := range found {
			desc := d.Descriptor()
			metrics.DevicesDiscovered.WithLabelValues(desc.Kind.String()).Inc()
			log.Info("discovered device",
				zap.String("probe", p.Name()),
				zap.String("name", desc.Name),
				zap.String("kind", desc.Kind.String()),
				zap.Int64("memoryBytes", desc.MemoryBytes),
				zap.Int("score", Score(desc)))
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		return nil, ErrNoAccelerator
	}
	return devices, nil
}
