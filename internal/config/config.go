// Package config provides configuration management for the npcore
// shell and SOCKS daemons.
package config

import (
	"errors"
	"fmt"
	"time"
)

// FileConfig is the top-level wrapper for the shared configuration
// file, so npshelld, npshelld-mp, and npsocksd can share one file.
type FileConfig struct {
	Server ServerConfig `toml:"server"`
	Npcore Config       `toml:"npcore"`
}

// ServerConfig holds settings shared by all three daemons.
type ServerConfig struct {
	Hostname string `toml:"hostname"`
}

// Config holds the daemon-specific configuration.
type Config struct {
	Hostname   string         `toml:"hostname"`
	Listen     string         `toml:"listen"`
	LogLevel   string         `toml:"log_level"`
	MaxClients int            `toml:"max_clients"`
	Socks      SocksConfig    `toml:"socks"`
	Timeouts   TimeoutsConfig `toml:"timeouts"`
	Metrics    MetricsConfig  `toml:"metrics"`
}

// SocksConfig holds settings specific to npsocksd.
type SocksConfig struct {
	RulesFile string `toml:"rules_file"`
}

// ReloadEachRequest is always true: the firewall rule file is read
// fresh on every request, never cached. This is kept as a named
// constant rather than a config field so the behavior can't be
// silently turned off.
const ReloadEachRequest = true

// TimeoutsConfig defines timeout durations.
type TimeoutsConfig struct {
	Idle    string `toml:"idle"`
	Command string `toml:"command"`
}

// MetricsConfig holds configuration for Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		Hostname:   "localhost",
		Listen:     ":7777",
		LogLevel:   "info",
		MaxClients: 64,
		Socks: SocksConfig{
			RulesFile: "./socks.conf",
		},
		Timeouts: TimeoutsConfig{
			Idle:    "30m",
			Command: "1m",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9101",
			Path:    "/metrics",
		},
	}
}

// Validate checks that the configuration is valid and returns an
// error if not.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return errors.New("hostname is required")
	}

	if c.Listen == "" {
		return errors.New("listen address is required")
	}

	if c.MaxClients <= 0 {
		return errors.New("max_clients must be positive")
	}

	if c.Timeouts.Idle != "" {
		if _, err := time.ParseDuration(c.Timeouts.Idle); err != nil {
			return fmt.Errorf("invalid idle timeout: %w", err)
		}
	}

	if c.Timeouts.Command != "" {
		if _, err := time.ParseDuration(c.Timeouts.Command); err != nil {
			return fmt.Errorf("invalid command timeout: %w", err)
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return errors.New("metrics address is required when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}

	return nil
}

// IdleTimeout returns the idle timeout as a time.Duration. Returns 30
// minutes if not configured or invalid.
func (c *TimeoutsConfig) IdleTimeout() time.Duration {
	if c.Idle == "" {
		return 30 * time.Minute
	}
	d, err := time.ParseDuration(c.Idle)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// CommandTimeout returns the command timeout as a time.Duration.
// Returns 1 minute if not configured or invalid.
func (c *TimeoutsConfig) CommandTimeout() time.Duration {
	if c.Command == "" {
		return 1 * time.Minute
	}
	d, err := time.ParseDuration(c.Command)
	if err != nil {
		return 1 * time.Minute
	}
	return d
}
