// Package analysis runs the read path: detect, parse, analyse, render.
//
// Run is the single re-run entry point. The CLI calls it once and the file
// watcher calls it again with the same Options after every change, so a
// change event never re-parses command-line arguments.
package analysis

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/a3drift/internal/drift"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
	"github.com/fyrsmithlabs/a3drift/internal/parser"
	"github.com/fyrsmithlabs/a3drift/internal/report"
	"github.com/fyrsmithlabs/a3drift/internal/watch"
)

// Options configure one analysis run. They are not modified by Run.
type Options struct {
	Path       string
	SkipRows   int
	Constant   string
	Tempco     float64
	AutoTempco bool
	Output     string
	Summary    bool

	// Out receives the operator lines and the summary. Defaults to stdout.
	Out    io.Writer
	Logger *logging.Logger
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

// Run analyses opts.Path and writes the chart to opts.Output with renderer.
// A nil renderer uses report.DefaultPNG.
func Run(ctx context.Context, opts Options, renderer report.Renderer) (*drift.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if renderer == nil {
		renderer = report.DefaultPNG
	}
	out := opts.out()
	logger := opts.logger()

	format, ds, err := parser.ParseFile(opts.Path, opts.SkipRows)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out, format)

	res, err := drift.Analyze(ds, drift.Options{
		Constant:   opts.Constant,
		Tempco:     opts.Tempco,
		AutoTempco: opts.AutoTempco,
	})
	if err != nil {
		return nil, fmt.Errorf("analyse %s: %w", opts.Path, err)
	}
	fmt.Fprintln(out, opts.Path)

	logger.Info(ctx, "drift analysed",
		zap.String("path", opts.Path),
		zap.Stringer("format", format),
		zap.Int("records", ds.Len()),
		zap.Float64("tempco", res.Tempco),
		zap.Bool("auto_tempco", opts.AutoTempco),
		zap.Float64("drift_per_day", res.Trend.PerDay),
		zap.Float64("drift_per_year", res.Trend.PerYear))

	chart := report.FromResult(res, report.Title(opts.Path))
	if err := renderer.Render(chart, opts.Output); err != nil {
		return nil, fmt.Errorf("render %s: %w", opts.Output, err)
	}
	logger.Info(ctx, "chart saved", zap.String("output", opts.Output))

	if opts.Summary {
		fmt.Fprintln(out, report.Summary(chart))
	}
	return res, nil
}

// Watch re-runs the analysis after every change to opts.Path until ctx is
// done. Failed re-runs are reported and watching continues.
func Watch(ctx context.Context, opts Options, renderer report.Renderer) error {
	logger := opts.logger()
	out := opts.out()

	w, err := watch.New(opts.Path, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching for changes in %s...\n", opts.Path)

	return w.Run(ctx, func() {
		fmt.Fprintf(out, "Detected change in file: %s\n", opts.Path)
		if _, err := Run(ctx, opts, renderer); err != nil {
			logger.Error(ctx, "analysis re-run failed", zap.Error(err))
		}
	})
}
