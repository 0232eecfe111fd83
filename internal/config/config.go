package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProfileOverride mirrors profile.ResourceProfile for YAML. Zero fields fall
// back to the seeded default for that workload type.
type ProfileOverride struct {
	ParallelThreshold        int     `yaml:"parallelThreshold"`
	MemoryOptimizedThreshold int     `yaml:"memoryOptimizedThreshold"`
	PreferSequential         *bool   `yaml:"preferSequential"`
	EstimatedMemoryPerItem   int64   `yaml:"estimatedMemoryPerItem"`
	CPUFallbackThreshold     int     `yaml:"cpuFallbackThreshold"`
}

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Orchestrator struct {
		PollInterval   time.Duration `yaml:"pollInterval"`
		DisposeTimeout time.Duration `yaml:"disposeTimeout"`
		TaskQueueSize  int           `yaml:"taskQueueSize"`
	} `yaml:"orchestrator"`
	Profiles map[string]ProfileOverride `yaml:"profiles"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	var cfg Config
	cfg.Logger.Verbosity = "info"
	cfg.Orchestrator.PollInterval = 10 * time.Millisecond
	cfg.Orchestrator.DisposeTimeout = 5 * time.Second
	cfg.Orchestrator.TaskQueueSize = 256
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
