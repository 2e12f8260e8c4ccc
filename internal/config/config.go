// Package config loads semio.yaml over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/semio/pkg/align"
	"github.com/chazu/semio/pkg/engine"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks when --config is not given.
const DefaultPath = "semio.yaml"

// Config holds all semio configuration.
type Config struct {
	Align   align.Config  `yaml:"align"`
	Cluster ClusterConfig `yaml:"cluster"`
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	Preview PreviewConfig `yaml:"preview"`
	Logging LoggingConfig `yaml:"logging"`
}

// ClusterConfig bounds cluster candidates.
type ClusterConfig struct {
	MaxExternal int `yaml:"maxExternal"`
}

// StoreConfig locates the kit database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig configures script evaluation.
type EngineConfig struct {
	Timeout string `yaml:"timeout"`
}

// PreviewConfig configures mesh previews.
type PreviewConfig struct {
	Cells   int `yaml:"cells"`
	Workers int `yaml:"workers"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Align:   align.DefaultConfig(),
		Cluster: ClusterConfig{MaxExternal: 0},
		Store:   StoreConfig{Path: filepath.Join("data", "semio.db")},
		Engine:  EngineConfig{Timeout: engine.EvalTimeout.String()},
		Preview: PreviewConfig{Cells: 64},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("SEMIO_STORE"); p != "" {
		c.Store.Path = p
	}
	if lvl := os.Getenv("SEMIO_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// Validate rejects settings the engine cannot work with.
func (c *Config) Validate() error {
	if _, err := c.EvalTimeout(); err != nil {
		return err
	}
	a := c.Align
	for name, v := range map[string]float64{
		"snapThreshold":          a.SnapThreshold,
		"equalDistanceThreshold": a.EqualDistanceThreshold,
		"maxSnapRadius":          a.MaxSnapRadius,
		"iconWidth":              a.IconWidth,
	} {
		if v <= 0 {
			return fmt.Errorf("config: align.%s must be positive, got %v", name, v)
		}
	}
	if c.Cluster.MaxExternal < 0 {
		return fmt.Errorf("config: cluster.maxExternal must not be negative")
	}
	return nil
}

// EvalTimeout parses Engine.Timeout.
func (c *Config) EvalTimeout() (time.Duration, error) {
	if c.Engine.Timeout == "" {
		return engine.EvalTimeout, nil
	}
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: engine.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: engine.timeout must be positive")
	}
	return d, nil
}
