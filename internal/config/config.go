// Package config handles TOML configuration for snooze.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Config is the root configuration structure.
type Config struct {
	AWS         AWSConfig         `toml:"aws"`
	OTEL        OTELConfig        `toml:"otel"`
	Log         LogConfig         `toml:"log"`
	Pushgateway PushgatewayConfig `toml:"pushgateway"`
	Journal     JournalConfig     `toml:"journal"`
	Targets     []Target          `toml:"target"`
}

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	Regions []string `toml:"regions"`
	Profile string   `toml:"profile"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint"`
	Insecure    bool          `toml:"insecure"`
	ServiceName string        `toml:"service_name"`
	Traces      TracesConfig  `toml:"traces"`
	Metrics     MetricsConfig `toml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate float64 `toml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// PushgatewayConfig points at a Prometheus Pushgateway. An empty URL disables pushing.
type PushgatewayConfig struct {
	URL string `toml:"url"`
	Job string `toml:"job"`
}

// JournalConfig locates the run journal. An empty path disables it.
type JournalConfig struct {
	Path string `toml:"path"`
}

// Target is a named set of kinds and tag filters, so a scheduler only has
// to pass a name. Resources carrying an Exclude tag value are skipped.
type Target struct {
	Name    string                `toml:"name"`
	Kinds   []string              `toml:"kinds"`
	Tags    []lifecycle.TagFilter `toml:"tag"`
	Exclude []lifecycle.TagFilter `toml:"exclude"`
}

// ParsedKinds returns the target's kinds, or every kind when none are listed.
func (t Target) ParsedKinds() ([]lifecycle.Kind, error) {
	if len(t.Kinds) == 0 {
		return lifecycle.Kinds(), nil
	}
	kinds := make([]lifecycle.Kind, 0, len(t.Kinds))
	for _, k := range t.Kinds {
		kind, err := lifecycle.ParseKind(k)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Default returns a configuration with defaults applied and nothing else.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	// Enabling traces without a rate means sample everything; an explicit 0 is kept.
	if cfg.OTEL.Traces.Enabled && !md.IsDefined("otel", "traces", "sample_rate") {
		cfg.OTEL.Traces.SampleRate = 1.0
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "snooze"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Pushgateway.Job == "" {
		cfg.Pushgateway.Job = "snooze"
	}
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log: unknown format %q (want console or json)", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target %d: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("target %q: defined more than once", t.Name)
		}
		seen[t.Name] = true

		if _, err := t.ParsedKinds(); err != nil {
			return fmt.Errorf("target %q: %w", t.Name, err)
		}
		if err := lifecycle.ValidateFilters(t.Tags); err != nil {
			return fmt.Errorf("target %q: %w", t.Name, err)
		}
		if err := lifecycle.ValidateFilters(t.Exclude); err != nil {
			return fmt.Errorf("target %q: exclude: %w", t.Name, err)
		}
	}
	return nil
}

// Target returns the named target.
func (c *Config) Target(name string) (Target, error) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("target %q not found in config", name)
}
