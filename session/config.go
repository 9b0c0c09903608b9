package session

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	traceExt    = ".trace"
	snapshotExt = ".simplified"
)

// Config holds configuration for a tracing session
type Config struct {
	// Output files
	TracePath    string `yaml:"trace_path" env:"SATRACE_TRACE_PATH"`
	SnapshotPath string `yaml:"snapshot_path" env:"SATRACE_SNAPSHOT_PATH"` // empty disables the snapshot

	// Source identifies the traced problem in the snapshot header line
	Source string `yaml:"source" env:"SATRACE_SOURCE"`

	BufferSize int  `yaml:"buffer_size" env:"SATRACE_BUFFER_SIZE"`
	Sync       bool `yaml:"sync" env:"SATRACE_SYNC"` // fsync around the header backpatch
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return ConfigForOutput("out")
}

// ConfigForOutput derives both file names from one output base name,
// e.g. "run" gives run.trace and run.simplified.
func ConfigForOutput(base string) *Config {
	return &Config{
		TracePath:    base + traceExt,
		SnapshotPath: base + snapshotExt,
		BufferSize:   64 * 1024,
		Sync:         true,
	}
}

// LoadConfig builds a config from defaults, then the YAML file at path (if
// path is not empty), then SATRACE_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields that have their environment variable set.
func (cfg *Config) ApplyEnv() error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ValidateBasic performs basic validation of the config
func (cfg *Config) ValidateBasic() error {
	if cfg.TracePath == "" {
		return fmt.Errorf("%w: trace path is required", ErrInvalidConfig)
	}
	if cfg.SnapshotPath != "" && cfg.SnapshotPath == cfg.TracePath {
		return fmt.Errorf("%w: snapshot and trace share path %q", ErrInvalidConfig, cfg.TracePath)
	}
	if cfg.BufferSize < 0 {
		return fmt.Errorf("%w: negative buffer size %d", ErrInvalidConfig, cfg.BufferSize)
	}
	return nil
}
