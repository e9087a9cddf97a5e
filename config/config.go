package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "10s" or
// "250ms".
type Duration time.Duration

// UnmarshalYAML parses a duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LockingConfig holds the lock manager tunables shared by all regions.
// Zero values fall back to the locking package defaults.
type LockingConfig struct {
	IdleThreshold Duration `yaml:"idle_threshold"`
	ReapInterval  Duration `yaml:"reap_interval"`
}

// RegionConfig holds configuration for a single cache region
type RegionConfig struct {
	Name    string   `yaml:"name"`
	MaxLife Duration `yaml:"max_life"` // zero = elements never expire
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	HTTPAddr string `yaml:"http_addr"` // Optional: empty disables the endpoint
}

// Config is the root configuration structure
type Config struct {
	Version int            `yaml:"version"`
	Locking LockingConfig  `yaml:"locking"`
	Regions []RegionConfig `yaml:"regions"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}

	if c.Locking.IdleThreshold < 0 {
		return fmt.Errorf("locking idle_threshold must not be negative")
	}
	if c.Locking.ReapInterval < 0 {
		return fmt.Errorf("locking reap_interval must not be negative")
	}

	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}

	regionNames := make(map[string]bool)
	for i, region := range c.Regions {
		if region.Name == "" {
			return fmt.Errorf("region %d: name is required", i)
		}
		if regionNames[region.Name] {
			return fmt.Errorf("duplicate region name: %s", region.Name)
		}
		regionNames[region.Name] = true

		if region.MaxLife < 0 {
			return fmt.Errorf("region %s: max_life must not be negative", region.Name)
		}
	}

	return nil
}

// GetRegionByName finds a region configuration by its name
func (c *Config) GetRegionByName(name string) (*RegionConfig, error) {
	for i := range c.Regions {
		if c.Regions[i].Name == name {
			return &c.Regions[i], nil
		}
	}
	return nil, fmt.Errorf("region with name %q not found", name)
}
