package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/titaninfer/internal/logging"
)

func TestLoadParsesYAMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model_path: model.bin
enable_profiling: true
warmup_runs: 3
input_shape: [4]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "model.bin", cfg.ModelPath)
	assert.True(t, cfg.EnableProfiling)
	assert.Equal(t, 3, cfg.WarmupRuns)
	assert.Equal(t, []int{4}, cfg.InputShape)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Batcher.MaxBatchSize)
}

func TestLoadRejectsMissingModelPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warning"
	lvl, err := cfg.ParseLogLevel()
	require.NoError(t, err)
	assert.Equal(t, logging.Warning, lvl)
}
