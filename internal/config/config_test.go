package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 22, cfg.Instrument.GPIBAddress)
	assert.Equal(t, 720, cfg.Campaign.Cycles)
	assert.Equal(t, time.Hour, cfg.Campaign.Period)
	assert.Equal(t, 860*time.Second, cfg.Campaign.ACALWait)
	assert.Equal(t, "CAL_72", cfg.Analysis.Constant)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty address", func(c *Config) { c.Instrument.Address = "" }, "instrument address"},
		{"gpib too high", func(c *Config) { c.Instrument.GPIBAddress = 31 }, "gpib address"},
		{"gpib negative", func(c *Config) { c.Instrument.GPIBAddress = -1 }, "gpib address"},
		{"zero read timeout", func(c *Config) { c.Instrument.ReadTimeout = 0 }, "timeouts"},
		{"negative interval", func(c *Config) { c.Instrument.CommandInterval = -time.Second }, "command interval"},
		{"no log path", func(c *Config) { c.Campaign.LogPath = "" }, "log path"},
		{"zero cycles", func(c *Config) { c.Campaign.Cycles = 0 }, "cycle count"},
		{"zero period", func(c *Config) { c.Campaign.Period = 0 }, "period"},
		{"zero wait", func(c *Config) { c.Campaign.ACALWait = 0 }, "acal wait"},
		{"wait exceeds period", func(c *Config) { c.Campaign.ACALWait = 2 * time.Hour }, "exceeds"},
		{"metrics without timeout", func(c *Config) {
			c.Metrics.Address = ":9464"
			c.Metrics.ShutdownTimeout = 0
		}, "shutdown timeout"},
		{"negative skip rows", func(c *Config) { c.Analysis.SkipRows = -1 }, "skip rows"},
		{"no constant", func(c *Config) { c.Analysis.Constant = "" }, "constant"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadWithFile_NoFile(t *testing.T) {
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithFile_EmptyPath(t *testing.T) {
	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, Default().Campaign, cfg.Campaign)
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a3drift.yaml")
	yamlContent := `instrument:
  address: 10.0.0.5:1234
  gpib_address: 9
campaign:
  log_path: /data/acal.csv
  cycles: 48
  period: 30m
  acal_wait: 900s
analysis:
  auto_tempco: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:1234", cfg.Instrument.Address)
	assert.Equal(t, 9, cfg.Instrument.GPIBAddress)
	assert.Equal(t, "/data/acal.csv", cfg.Campaign.LogPath)
	assert.Equal(t, 48, cfg.Campaign.Cycles)
	assert.Equal(t, 30*time.Minute, cfg.Campaign.Period)
	assert.Equal(t, 900*time.Second, cfg.Campaign.ACALWait)
	assert.True(t, cfg.Analysis.AutoTempco)

	// Untouched keys keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Instrument.ReadTimeout)
	assert.Equal(t, "sn18_plot.png", cfg.Analysis.Output)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a3drift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("campaign:\n  cycles: 48\n"), 0600))

	t.Setenv("A3DRIFT_CAMPAIGN_CYCLES", "12")
	t.Setenv("A3DRIFT_CAMPAIGN_LOG_PATH", "env.csv")
	t.Setenv("A3DRIFT_METRICS_ADDRESS", ":9464")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Campaign.Cycles)
	assert.Equal(t, "env.csv", cfg.Campaign.LogPath)
	assert.Equal(t, ":9464", cfg.Metrics.Address)
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a3drift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("campaign:\n  acal_wait: 2h\n"), 0600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadWithFile_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	content := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadWithFile_Directory(t *testing.T) {
	_, err := LoadWithFile(t.TempDir())
	require.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"A3DRIFT_CAMPAIGN_LOG_PATH":       "campaign.log_path",
		"A3DRIFT_INSTRUMENT_GPIB_ADDRESS": "instrument.gpib_address",
		"A3DRIFT_METRICS_ADDRESS":         "metrics.address",
		"A3DRIFT_VERBOSE":                 "verbose",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
