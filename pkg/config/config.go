// Package config loads the daemon's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "30s".
type Duration time.Duration

// UnmarshalYAML parses Go duration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RelayBoard configures the optional serial relay board mirror.
type RelayBoard struct {
	Port string `yaml:"port"` // empty disables the mirror
	Baud int    `yaml:"baud"`
}

// Config covers process level configuration.
type Config struct {
	Listen       string     `yaml:"listen"`
	DBPath       string     `yaml:"db_path"`
	Timezone     string     `yaml:"timezone"` // IANA zone for schedule evaluation
	TickInterval Duration   `yaml:"tick_interval"`
	StoreTimeout Duration   `yaml:"store_timeout"`
	NotifyURL    string     `yaml:"notify_url"` // push relay endpoint; empty disables delivery
	RelayBoard   RelayBoard `yaml:"relay_board"`
	LogLevel     string     `yaml:"log_level"`

	location *time.Location
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:       ":8080",
		DBPath:       "~/.config/homesync/homesync.db",
		Timezone:     "UTC",
		TickInterval: Duration(30 * time.Second),
		StoreTimeout: Duration(5 * time.Second),
		RelayBoard:   RelayBoard{Baud: 9600},
		LogLevel:     "info",
	}
}

// Load reads the YAML file at path, applies defaults for unset keys, and
// validates the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen must be set")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must be set")
	}
	if c.TickInterval.Std() <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.StoreTimeout.Std() <= 0 {
		return fmt.Errorf("store_timeout must be positive")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location returns the configured time zone. Only valid after Load.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
