// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhouse/gavelhouse/internal/market"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost:9090", cfg.Metrics.Addr)
	assert.Equal(t, market.DefaultSweepPeriod, cfg.Sweep.Period)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_NoFileNoFlags(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
database:
  url: postgres://localhost:5432/gavelhouse
log:
  format: text
  level: debug
metrics:
  addr: 0.0.0.0:9100
sweep:
  period: 2m
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/gavelhouse", cfg.Database.URL)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:9100", cfg.Metrics.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Sweep.Period)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: debug
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "info", "")
	require.NoError(t, flags.Set("log.level", "warn"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_UnsetFlagKeepsFileValue(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: debug
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "info", "")

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:   "text format passes",
			mutate: func(c *Config) { c.Log.Format = "text" },
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "logfmt" },
			wantErr: true,
		},
		{
			name:    "negative sweep period",
			mutate:  func(c *Config) { c.Sweep.Period = -time.Minute },
			wantErr: true,
		},
		{
			name:   "zero sweep period falls back at runtime",
			mutate: func(c *Config) { c.Sweep.Period = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
