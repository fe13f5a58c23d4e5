// Package config provides configuration loading for a3drift.
//
// A Config is built once at startup from defaults, an optional YAML file and
// A3DRIFT_* environment variables, then passed by value into the acquisition
// and analysis entry points. Nothing in the process mutates it afterwards.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete a3drift configuration.
type Config struct {
	Instrument InstrumentConfig `koanf:"instrument"`
	Campaign   CampaignConfig   `koanf:"campaign"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Analysis   AnalysisConfig   `koanf:"analysis"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// InstrumentConfig describes how to reach the DMM through a Prologix
// GPIB-ETHERNET adapter.
type InstrumentConfig struct {
	Address         string        `koanf:"address"`      // host:port of the adapter
	GPIBAddress     int           `koanf:"gpib_address"` // primary GPIB address of the DMM
	DialTimeout     time.Duration `koanf:"dial_timeout"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	CommandInterval time.Duration `koanf:"command_interval"` // minimum spacing between commands
}

// CampaignConfig holds the acquisition loop settings.
type CampaignConfig struct {
	LogPath  string        `koanf:"log_path"`
	Cycles   int           `koanf:"cycles"`
	Period   time.Duration `koanf:"period"`
	ACALWait time.Duration `koanf:"acal_wait"`
	Constant string        `koanf:"constant"` // label echoed to the console after each cycle
}

// MetricsConfig controls the optional HTTP endpoint exposed while a campaign runs.
// An empty Address disables it.
type MetricsConfig struct {
	Address         string        `koanf:"address"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AnalysisConfig holds the drift analysis defaults. CLI flags override them.
type AnalysisConfig struct {
	SkipRows   int     `koanf:"skip_rows"`
	Tempco     float64 `koanf:"tempco"`
	AutoTempco bool    `koanf:"auto_tempco"`
	Watch      bool    `koanf:"watch"`
	Output     string  `koanf:"output"`
	Constant   string  `koanf:"constant"`
	Summary    bool    `koanf:"summary"`
}

// LoggingConfig selects the structured log level and encoder.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing else is supplied.
//
// The values reproduce the bench setup the tool was written for: one 3458A on
// GPIB address 22 behind a Prologix adapter, an ACAL ALL every hour for 30 days
// and an 860 s wait for the self-calibration to finish.
func Default() *Config {
	return &Config{
		Instrument: InstrumentConfig{
			Address:         "192.168.30.10:1234",
			GPIBAddress:     22,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     10 * time.Second,
			CommandInterval: 50 * time.Millisecond,
		},
		Campaign: CampaignConfig{
			LogPath:  "n3458a_gpib_22_data.csv",
			Cycles:   720,
			Period:   time.Hour,
			ACALWait: 860 * time.Second,
			Constant: "CAL_72",
		},
		Metrics: MetricsConfig{
			ShutdownTimeout: 5 * time.Second,
		},
		Analysis: AnalysisConfig{
			Output:   "sn18_plot.png",
			Constant: "CAL_72",
			Summary:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
//
// Returns an error if:
//   - the adapter address is empty or the GPIB address is outside 0..30
//   - the campaign has no cycles, a non-positive period or ACAL wait
//   - the ACAL wait is longer than the period
//   - skip rows is negative or the analysed constant is unnamed
//   - the log format is neither json nor console
func (c *Config) Validate() error {
	if c.Instrument.Address == "" {
		return errors.New("instrument address is required")
	}
	if c.Instrument.GPIBAddress < 0 || c.Instrument.GPIBAddress > 30 {
		return fmt.Errorf("invalid gpib address: %d (must be 0-30)", c.Instrument.GPIBAddress)
	}
	if c.Instrument.DialTimeout <= 0 || c.Instrument.ReadTimeout <= 0 {
		return errors.New("instrument timeouts must be positive")
	}
	if c.Instrument.CommandInterval < 0 {
		return errors.New("command interval cannot be negative")
	}

	if c.Campaign.LogPath == "" {
		return errors.New("campaign log path is required")
	}
	if c.Campaign.Cycles < 1 {
		return fmt.Errorf("invalid cycle count: %d (must be >= 1)", c.Campaign.Cycles)
	}
	if c.Campaign.Period <= 0 {
		return errors.New("campaign period must be positive")
	}
	if c.Campaign.ACALWait <= 0 {
		return errors.New("acal wait must be positive")
	}
	if c.Campaign.ACALWait > c.Campaign.Period {
		return fmt.Errorf("acal wait %s exceeds campaign period %s", c.Campaign.ACALWait, c.Campaign.Period)
	}

	if c.Metrics.Address != "" && c.Metrics.ShutdownTimeout <= 0 {
		return errors.New("metrics shutdown timeout must be positive")
	}

	if c.Analysis.SkipRows < 0 {
		return fmt.Errorf("invalid skip rows: %d (must be >= 0)", c.Analysis.SkipRows)
	}
	if c.Analysis.Constant == "" {
		return errors.New("analysis constant label is required")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}
