package config

import (
	"flag"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Flags holds command-line flag values.
type Flags struct {
	ConfigPath string
	Hostname   string
	LogLevel   string
	Listen     string
	MaxClients int
	RulesFile  string
}

// ParseFlags parses command-line flags and returns a Flags struct.
func ParseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "./npcore.toml", "Path to configuration file")
	flag.StringVar(&f.Hostname, "hostname", "", "Server hostname")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&f.Listen, "listen", "", "Listen address")
	flag.IntVar(&f.MaxClients, "max-clients", 0, "Maximum concurrent clients")
	flag.StringVar(&f.RulesFile, "rules-file", "", "Path to the SOCKS firewall rules file")

	flag.Parse()
	return f
}

// Load parses a TOML configuration file and returns the Config. If the
// file does not exist, returns the default configuration. The loader
// reads from both [server] (shared settings) and [npcore]
// (daemon-specific settings), with [npcore] values taking precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig FileConfig
	if err := toml.Unmarshal(data, &fileConfig); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	cfg = mergeServerConfig(cfg, fileConfig.Server)
	cfg = mergeConfig(cfg, fileConfig.Npcore)

	return cfg, nil
}

// ApplyFlags merges command-line flag values into the config.
// Non-zero/non-empty flag values override config file values.
func ApplyFlags(cfg Config, f *Flags) Config {
	if f.Hostname != "" {
		cfg.Hostname = f.Hostname
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	if f.MaxClients > 0 {
		cfg.MaxClients = f.MaxClients
	}
	if f.RulesFile != "" {
		cfg.Socks.RulesFile = f.RulesFile
	}
	return cfg
}

// LoadWithFlags loads configuration from the path specified in flags,
// then applies flag overrides.
func LoadWithFlags(f *Flags) (Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	return ApplyFlags(cfg, f), nil
}

func mergeServerConfig(dst Config, src ServerConfig) Config {
	if src.Hostname != "" {
		dst.Hostname = src.Hostname
	}
	return dst
}

func mergeConfig(dst, src Config) Config {
	if src.Hostname != "" {
		dst.Hostname = src.Hostname
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Listen != "" {
		dst.Listen = src.Listen
	}
	if src.MaxClients > 0 {
		dst.MaxClients = src.MaxClients
	}
	if src.Socks.RulesFile != "" {
		dst.Socks.RulesFile = src.Socks.RulesFile
	}
	if src.Timeouts.Idle != "" {
		dst.Timeouts.Idle = src.Timeouts.Idle
	}
	if src.Timeouts.Command != "" {
		dst.Timeouts.Command = src.Timeouts.Command
	}
	if src.Metrics.Enabled {
		dst.Metrics.Enabled = src.Metrics.Enabled
	}
	if src.Metrics.Address != "" {
		dst.Metrics.Address = src.Metrics.Address
	}
	if src.Metrics.Path != "" {
		dst.Metrics.Path = src.Metrics.Path
	}
	return dst
}
