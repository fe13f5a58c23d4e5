package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/a3drift/internal/acquisition"
	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/config"
	"github.com/fyrsmithlabs/a3drift/internal/instrument"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
	"github.com/fyrsmithlabs/a3drift/internal/server"
)

func newAcquireCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Run a self-calibration campaign and log the constants",
		Long: `Run ACAL ALL once per period for the configured number of cycles and append
the temperature and calibration constants read after each one to the log.

A failed cycle is reported and the campaign carries on with the next one.
Interrupting the process leaves the log at the last complete record.

Examples:
  # 30 days, one ACAL per hour, with defaults
  a3drift acquire

  # Short bench test against another adapter
  a3drift acquire --address 10.0.0.5:1234 --gpib 9 --cycles 3 --period 20m

  # Expose /status and /metrics while running
  a3drift acquire --metrics-address :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			applyAcquireFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAcquire(ctx, cmd, cfg, logger)
		},
	}

	cmd.Flags().String("address", "", "Prologix adapter host:port")
	cmd.Flags().Int("gpib", 0, "GPIB address of the DMM")
	cmd.Flags().String("log-path", "", "calibration log file")
	cmd.Flags().Int("cycles", 0, "number of ACAL cycles")
	cmd.Flags().Duration("period", 0, "time between ACAL triggers")
	cmd.Flags().Duration("acal-wait", 0, "wait after triggering ACAL before reading")
	cmd.Flags().String("metrics-address", "", "listen address for /health, /status and /metrics")
	return cmd
}

// applyAcquireFlags copies the flags the user set onto cfg. The flags are
// declared with the types read here, so lookups cannot fail.
func applyAcquireFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("address") {
		cfg.Instrument.Address, _ = flags.GetString("address")
	}
	if flags.Changed("gpib") {
		cfg.Instrument.GPIBAddress, _ = flags.GetInt("gpib")
	}
	if flags.Changed("log-path") {
		cfg.Campaign.LogPath, _ = flags.GetString("log-path")
	}
	if flags.Changed("cycles") {
		cfg.Campaign.Cycles, _ = flags.GetInt("cycles")
	}
	if flags.Changed("period") {
		cfg.Campaign.Period, _ = flags.GetDuration("period")
	}
	if flags.Changed("acal-wait") {
		cfg.Campaign.ACALWait, _ = flags.GetDuration("acal-wait")
	}
	if flags.Changed("metrics-address") {
		cfg.Metrics.Address, _ = flags.GetString("metrics-address")
	}
}

func runAcquire(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *logging.Logger) error {
	id := uuid.NewString()
	ctx = logging.WithCampaignID(ctx, id)
	console := acquisition.NewConsole(cmd.OutOrStdout())

	log, err := calog.Open(cfg.Campaign.LogPath, calog.DefaultSchema)
	if err != nil {
		logger.Error(ctx, "calibration log unusable", zap.String("path", cfg.Campaign.LogPath), zap.Error(err))
		console.Failure("setup", err)
		return err
	}

	console.Banner(cfg.Campaign.Cycles, cfg.Campaign.LogPath)
	dialer := instrument.NewPrologix(cfg.Instrument, logger)

	ident, err := acquisition.Setup(ctx, dialer)
	if err != nil {
		logger.Error(ctx, "instrument setup failed", zap.String("address", cfg.Instrument.Address), zap.Error(err))
		console.Failure("setup", err)
		return err
	}
	logger.Info(ctx, "instrument identified", zap.String("id", ident), zap.Int("gpib_address", cfg.Instrument.GPIBAddress))
	console.Identity(ident, cfg.Instrument.GPIBAddress)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := acquisition.NewMetrics(reg)

	runner := acquisition.NewCycleRunner(calog.DefaultSchema, cfg.Campaign.ACALWait, logger)
	runner.Constant = cfg.Campaign.Constant
	runner.Console = console
	runner.Metrics = metrics

	campaign := acquisition.NewCampaign(id, dialer, runner, log, cfg.Campaign.Cycles, cfg.Campaign.Period, logger)

	stopServer := startServer(ctx, cfg.Metrics, reg, campaign, logger)
	defer stopServer()

	_, err = campaign.Run(ctx)
	if errors.Is(err, context.Canceled) {
		console.Failure("campaign", errors.New("interrupted, log kept up to the last complete record"))
		return nil
	}
	return err
}

// startServer starts the status server when an address is configured and
// returns a function that stops it and waits for it to exit.
func startServer(ctx context.Context, cfg config.MetricsConfig, reg *prometheus.Registry, campaign *acquisition.Campaign, logger *logging.Logger) func() {
	if cfg.Address == "" {
		return func() {}
	}

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	srv := server.New(cfg, handler, campaign.Progress, logger)

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Start(srvCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "status server failed", zap.String("address", cfg.Address), zap.Error(err))
		}
	}()
	logger.Info(ctx, "status server listening", zap.String("address", cfg.Address))

	return func() {
		cancel()
		<-done
	}
}
