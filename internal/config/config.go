// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

// Package config loads runtime configuration from a YAML file with
// command line flag overrides.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gavelhouse/gavelhouse/internal/market"
)

// Config is the root configuration.
type Config struct {
	Database Database `koanf:"database"`
	Log      Log      `koanf:"log"`
	Metrics  Metrics  `koanf:"metrics"`
	Sweep    Sweep    `koanf:"sweep"`
}

// Database holds connection settings.
type Database struct {
	URL string `koanf:"url"`
}

// Log holds logger settings.
type Log struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Metrics holds the observability endpoint settings.
type Metrics struct {
	Addr string `koanf:"addr"`
}

// Sweep holds the expired session sweep settings.
type Sweep struct {
	Period time.Duration `koanf:"period"`
}

// Default returns the configuration used when no file or flags are given.
func Default() Config {
	return Config{
		Log:     Log{Format: "json", Level: "info"},
		Metrics: Metrics{Addr: "localhost:9090"},
		Sweep:   Sweep{Period: market.DefaultSweepPeriod},
	}
}

// Load reads configuration from path (optional, "" skips the file) and
// overlays values from the given flag set. Flag names use dots for
// nesting, e.g. --database.url.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log.format", c.Log.Format).
			Errorf("log format must be json or text")
	}
	if c.Sweep.Period < 0 {
		return oops.Code("CONFIG_INVALID").
			With("sweep.period", c.Sweep.Period.String()).
			Errorf("sweep period must not be negative")
	}
	return nil
}
