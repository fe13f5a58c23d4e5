package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/a3drift/internal/analysis"
	"github.com/fyrsmithlabs/a3drift/internal/config"
)

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <log-file>",
		Short: "Fit tempco and drift to a calibration log and save a chart",
		Long: `Parse a calibration log (delimited text or legacy pipe-segmented capture),
compute the deviation of a calibration constant from its baseline, optionally
search the temperature coefficient that best flattens it, fit the linear trend
and save a chart.

Examples:
  # Analyse with a fixed tempco
  a3drift analyze n3458a_gpib_22_data.csv --tempco -0.12

  # Search the tempco and keep re-rendering while a campaign appends
  a3drift analyze n3458a_gpib_22_data.csv --auto-tempco --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			applyAnalyzeFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts := analysis.Options{
				Path:       args[0],
				SkipRows:   cfg.Analysis.SkipRows,
				Constant:   cfg.Analysis.Constant,
				Tempco:     cfg.Analysis.Tempco,
				AutoTempco: cfg.Analysis.AutoTempco,
				Output:     cfg.Analysis.Output,
				Summary:    cfg.Analysis.Summary,
				Out:        cmd.OutOrStdout(),
				Logger:     logger,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := analysis.Run(ctx, opts, nil); err != nil {
				return err
			}
			if !cfg.Analysis.Watch {
				return nil
			}
			return analysis.Watch(ctx, opts, nil)
		},
	}

	cmd.Flags().Int("skip-rows", 0, "data rows to skip after the header")
	cmd.Flags().Float64("tempco", 0, "manual temperature coefficient in ppm/K")
	cmd.Flags().Bool("auto-tempco", false, "search the temperature coefficient")
	cmd.Flags().Bool("watch", false, "re-run the analysis when the log changes")
	cmd.Flags().String("save-path", "", "chart image path (default sn18_plot.png)")
	cmd.Flags().Bool("no-summary", false, "do not print the terminal summary")
	cmd.Flags().String("constant", "", "calibration constant to analyse (default CAL_72)")
	return cmd
}

// applyAnalyzeFlags copies the flags the user set onto cfg.
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("skip-rows") {
		cfg.Analysis.SkipRows, _ = flags.GetInt("skip-rows")
	}
	if flags.Changed("tempco") {
		cfg.Analysis.Tempco, _ = flags.GetFloat64("tempco")
	}
	if flags.Changed("auto-tempco") {
		cfg.Analysis.AutoTempco, _ = flags.GetBool("auto-tempco")
	}
	if flags.Changed("watch") {
		cfg.Analysis.Watch, _ = flags.GetBool("watch")
	}
	if flags.Changed("save-path") {
		cfg.Analysis.Output, _ = flags.GetString("save-path")
	}
	if flags.Changed("no-summary") {
		noSummary, _ := flags.GetBool("no-summary")
		cfg.Analysis.Summary = !noSummary
	}
	if flags.Changed("constant") {
		cfg.Analysis.Constant, _ = flags.GetString("constant")
	}
}
