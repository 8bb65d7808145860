// Package config declares the YAML configuration schema loaded by
// "titaninfer serve", grounded on the teacher's robot-config YAML loading
// pattern (gopkg.in/yaml.v3) used throughout its cmd/* trees.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/itohio/titaninfer/internal/logging"
)

// ServeConfig is the top-level schema for titaninfer serve --config=....
type ServeConfig struct {
	ModelPath       string  `yaml:"model_path"`
	EnableProfiling bool    `yaml:"enable_profiling"`
	WarmupRuns      int     `yaml:"warmup_runs"`
	InputShape      []int   `yaml:"input_shape"`
	LogLevel        string  `yaml:"log_level"`
	Batcher         Batcher `yaml:"batcher"`
	ThreadPoolSize  int     `yaml:"thread_pool_size"`
}

// Batcher configures the dynamic request batcher.
type Batcher struct {
	MaxBatchSize int `yaml:"max_batch_size"`
	MaxWaitMs    int `yaml:"max_wait_ms"`
}

// Default returns the configuration's zero-value defaults: profiling off,
// no warmup, inferred input shape, Info logging, a single-request batcher
// that effectively disables batching, and a CPU-sized thread pool.
func Default() ServeConfig {
	return ServeConfig{
		LogLevel:       "info",
		Batcher:        Batcher{MaxBatchSize: 1, MaxWaitMs: 10},
		ThreadPoolSize: 0,
	}
}

// Load reads and parses a ServeConfig from path, filling unset fields with
// Default()'s values.
func Load(path string) (ServeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServeConfig{}, fmt.Errorf("config: Load: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServeConfig{}, fmt.Errorf("config: Load: %w", err)
	}
	if cfg.ModelPath == "" {
		return ServeConfig{}, fmt.Errorf("config: Load: model_path is required")
	}
	return cfg, nil
}

// ParseLogLevel resolves the configured log level string, defaulting to
// logging.Info if LogLevel is empty.
func (c ServeConfig) ParseLogLevel() (logging.Level, error) {
	if c.LogLevel == "" {
		return logging.Info, nil
	}
	return logging.ParseLevel(c.LogLevel)
}
