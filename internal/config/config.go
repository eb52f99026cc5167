// Package config loads the host configuration of the dingtalk binary.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sflowg/dingtalk/runtime"
)

// Config represents the host configuration file
type Config struct {
	LogLevel    string             `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`
	HTTP        runtime.HTTPConfig `yaml:"http"`
	Credentials CredentialsConfig  `yaml:"credentials"`
	Serve       ServeConfig        `yaml:"serve"`

	// Plugin holds the dingtalk plugin settings, applied to the plugin config as is.
	Plugin map[string]any `yaml:"plugin"`
}

// CredentialsConfig selects the credential store and seeds it.
type CredentialsConfig struct {
	Store string `yaml:"store" default:"memory" validate:"oneof=memory disk"`
	Dir   string `yaml:"dir" validate:"required_if=Store disk"`

	// Records are keyed by credential type name, e.g. dingtalkApi.
	Records map[string]map[string]any `yaml:"records"`
}

type ServeConfig struct {
	Addr string `yaml:"addr" default:":8080" validate:"hostname_port"`
}

// Load reads path, substitutes environment variables and applies defaults
// and validation. An empty path yields the defaults.
func Load(path string, lookup LookupFunc) (*Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config from %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	}

	return Parse(raw, lookup)
}

// Parse builds a Config from an already decoded document.
func Parse(raw map[string]any, lookup LookupFunc) (*Config, error) {
	resolved, err := ResolveEnv(raw, lookup)
	if err != nil {
		return nil, err
	}

	var cfg Config
	values, _ := resolved.(map[string]any)
	if err := runtime.InitializeConfig(&cfg, values); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Credentials returns the seeded credential records as runtime credentials.
func (c CredentialsConfig) Credentials() map[string]runtime.Credentials {
	out := make(map[string]runtime.Credentials, len(c.Records))
	for name, fields := range c.Records {
		out[name] = runtime.Credentials(fields)
	}
	return out
}
