package config

import (
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultSocketPath is where the agent listens unless overridden.
const DefaultSocketPath = "/run/diskdock-agent.sock"

type Config struct {
	Socket       string        `yaml:"socket"`
	SmartctlPath string        `yaml:"smartctl_path"`
	LogLevel     zerolog.Level `yaml:"-"`
}

type fileConfig struct {
	Socket       string `yaml:"socket"`
	SmartctlPath string `yaml:"smartctl_path"`
	LogLevel     string `yaml:"log_level"`
}

// FromEnv builds the configuration from an optional YAML file named by
// DISKDOCK_CONFIG, with environment variables taking precedence.
func FromEnv() Config {
	cfg := Config{
		Socket:       DefaultSocketPath,
		SmartctlPath: "smartctl",
		LogLevel:     zerolog.InfoLevel,
	}

	if path := os.Getenv("DISKDOCK_CONFIG"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var fc fileConfig
			if yaml.Unmarshal(data, &fc) == nil {
				if fc.Socket != "" {
					cfg.Socket = fc.Socket
				}
				if fc.SmartctlPath != "" {
					cfg.SmartctlPath = fc.SmartctlPath
				}
				if l, err := zerolog.ParseLevel(fc.LogLevel); err == nil && fc.LogLevel != "" {
					cfg.LogLevel = l
				}
			}
		}
	}

	if v := os.Getenv("DISKDOCK_SOCKET"); v != "" {
		cfg.Socket = v
	}
	if v := os.Getenv("DISKDOCK_SMARTCTL"); v != "" {
		cfg.SmartctlPath = v
	}
	if v := os.Getenv("DISKDOCK_LOG"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			cfg.LogLevel = l
		}
	}

	return cfg
}
