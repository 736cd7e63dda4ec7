// Package config loads hostagentd's configuration: a single required
// address field, read from a TOML file and overridable by environment
// variables, the same koanf-based layering the teacher's gateway config
// uses for YAML, swapped to TOML per SPEC_FULL §6.
package config

import (
	"strings"

	"github.com/gravitational/trace"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment variable prefix that overrides config file
// values, mirroring the teacher's LLMROUTER_ convention.
const EnvPrefix = "HOSTAGENT_"

// Config is hostagentd's configuration.
type Config struct {
	// Address is the host:port hostagentd listens on.
	Address string `koanf:"address"`
	// MetricsAddress is the host:port the /metrics endpoint is served on.
	// Empty disables the metrics listener.
	MetricsAddress string `koanf:"metrics_address"`
}

// Load reads configuration from a TOML file at path, then layers
// HOSTAGENT_-prefixed environment variables on top.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, trace.Wrap(err, "loading config file")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, trace.Wrap(err, "loading env vars")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, trace.Wrap(err, "unmarshaling config")
	}
	if cfg.Address == "" {
		return nil, trace.BadParameter("config: address is required")
	}

	return &cfg, nil
}
