package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	content := `
logger:
  verbosity: debug
orchestrator:
  pollInterval: 25ms
  disposeTimeout: 2s
profiles:
  screening:
    parallelThreshold: 500
    memoryOptimizedThreshold: 20000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Verbosity)
	assert.Equal(t, 25*time.Millisecond, cfg.Orchestrator.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Orchestrator.DisposeTimeout)
	// Unset fields keep their defaults.
	assert.Equal(t, 256, cfg.Orchestrator.TaskQueueSize)

	ov, ok := cfg.Profiles["screening"]
	require.True(t, ok)
	assert.Equal(t, 500, ov.ParallelThreshold)
	assert.Equal(t, 20000, ov.MemoryOptimizedThreshold)
	assert.Nil(t, ov.PreferSequential)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("does-not-exist.yaml")
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Logger.Verbosity)
	assert.Equal(t, 10*time.Millisecond, cfg.Orchestrator.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Orchestrator.DisposeTimeout)
}
