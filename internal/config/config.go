// Package config loads sumarray settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all sumarray configuration.
type Config struct {
	// Kernel names the dispatch entry to use. Empty selects by CPU features.
	Kernel string `yaml:"kernel"`

	Log   LogConfig   `yaml:"log"`
	Input InputConfig `yaml:"input"`
	Bench BenchConfig `yaml:"bench"`
	Wasm  WasmConfig  `yaml:"wasm"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// InputConfig configures how input files are decoded.
type InputConfig struct {
	Format string `yaml:"format"` // auto, text, binary
}

// BenchConfig configures the bench command.
type BenchConfig struct {
	Iterations int   `yaml:"iterations"`
	Sizes      []int `yaml:"sizes"`
	Seed       int64 `yaml:"seed"`
}

// WasmConfig lists WebAssembly guests to benchmark.
type WasmConfig struct {
	Runtime string            `yaml:"runtime"` // wasmtime, wazero
	Modules map[string]string `yaml:"modules"` // name -> .wasm or .wat path
}

// Environment variables that override file settings.
const (
	EnvKernel   = "SUMARRAY_KERNEL"
	EnvLogLevel = "SUMARRAY_LOG_LEVEL"
	EnvWasm     = "SUMARRAY_WASM"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:   LogConfig{Level: "info"},
		Input: InputConfig{Format: "auto"},
		Bench: BenchConfig{
			Iterations: 1000,
			Sizes:      []int{100, 1000, 10000, 100000},
			Seed:       1,
		},
		Wasm: WasmConfig{Runtime: "wazero"},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults; environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
// SUMARRAY_WASM takes comma separated name=path pairs.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvKernel); v != "" {
		c.Kernel = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvWasm); v != "" {
		if c.Wasm.Modules == nil {
			c.Wasm.Modules = make(map[string]string)
		}
		for _, pair := range strings.Split(v, ",") {
			name, path, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && name != "" && path != "" {
				c.Wasm.Modules[name] = path
			}
		}
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Input.Format {
	case "auto", "text", "binary":
	default:
		return fmt.Errorf("input.format: unknown format %q", c.Input.Format)
	}
	switch c.Wasm.Runtime {
	case "wasmtime", "wazero":
	default:
		return fmt.Errorf("wasm.runtime: unknown runtime %q", c.Wasm.Runtime)
	}
	if c.Bench.Iterations < 1 {
		return fmt.Errorf("bench.iterations must be positive, got %d", c.Bench.Iterations)
	}
	for _, n := range c.Bench.Sizes {
		if n < 0 {
			return fmt.Errorf("bench.sizes: negative size %d", n)
		}
	}
	return nil
}
