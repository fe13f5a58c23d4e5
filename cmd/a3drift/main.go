// Package main implements the a3drift CLI: acquire calibration constants from
// a 3458A and analyse the resulting log for reference drift.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/a3drift/internal/config"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "a3drift",
		Short: "ADC reference stability campaigns for the HP/Agilent 3458A",
		Long: `a3drift runs long self-calibration campaigns on a 3458A through a Prologix
GPIB-ETHERNET adapter and analyses the recorded calibration constants to separate
reference drift from temperature effects.

Configuration is read from an optional YAML file and A3DRIFT_* environment
variables; flags override both.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "a3drift.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(newAcquireCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// load reads the configuration and builds the structured logger.
func (o *rootOptions) load() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadWithFile(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	logCfg, err := logging.ConfigFrom(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "a3drift by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
