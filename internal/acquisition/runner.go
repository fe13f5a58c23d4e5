// Package acquisition drives the long-running self-calibration campaign.
//
// A CycleRunner performs one hour-cycle against an open instrument session:
// pre-read, trigger ACAL, wait, post-read, append one record. A Campaign
// repeats cycles at a fixed period, opening a fresh session for each one and
// isolating failures so the campaign always carries on to the next cycle.
package acquisition

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/instrument"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
)

const (
	// TriggerCommand starts the full self-calibration routine of a 3458A.
	TriggerCommand = "ACAL ALL"

	// DisplayOffCommand blanks the front panel after the readings are taken.
	DisplayOffCommand = "DISP OFF"

	// DefaultACALWait exceeds the documented ACAL ALL duration of a 3458A.
	DefaultACALWait = 860 * time.Second
)

// DefaultPreRead is read before triggering ACAL, for the operator only.
var DefaultPreRead = []string{"TEMP?", "CAL? 1,1", "CAL? 2,1"}

// Sink receives finished records. *calog.Log implements it.
type Sink interface {
	Append(rec calog.Record) error
}

// CycleRunner runs one calibration cycle.
type CycleRunner struct {
	Schema   calog.Schema
	PreRead  []string
	Wait     time.Duration
	Constant string // schema label echoed to the console after a cycle

	Sleep   Sleeper
	Now     func() time.Time
	Logger  *logging.Logger
	Console *Console
	Metrics *Metrics
}

// NewCycleRunner returns a runner with the default pre-read sequence and the
// real clock.
func NewCycleRunner(schema calog.Schema, wait time.Duration, logger *logging.Logger) *CycleRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CycleRunner{
		Schema:  schema,
		PreRead: DefaultPreRead,
		Wait:    wait,
		Sleep:   SleepContext,
		Now:     time.Now,
		Logger:  logger,
	}
}

// RunCycle performs pre-read, trigger, wait and post-read on session and
// appends exactly one record to sink on success. On any error nothing is
// appended and the error is returned; the caller owns the session.
func (r *CycleRunner) RunCycle(ctx context.Context, session instrument.Session, sink Sink) error {
	r.preRead(ctx, session)

	if err := instrument.Command(ctx, session, TriggerCommand); err != nil {
		return fmt.Errorf("trigger self-calibration: %w", err)
	}
	r.Logger.Info(ctx, "self-calibration triggered", zap.Duration("wait", r.Wait))

	if err := r.Sleep(ctx, r.Wait); err != nil {
		return fmt.Errorf("wait for self-calibration: %w", err)
	}

	rec, err := r.postRead(ctx, session)
	if err != nil {
		return err
	}

	if err := sink.Append(rec); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	r.Logger.Info(ctx, "record appended", zap.Time("time", rec.Time), zap.Strings("values", rec.Values))
	r.report(rec)

	if err := instrument.Command(ctx, session, DisplayOffCommand); err != nil {
		r.Logger.Warn(ctx, "display off failed", zap.Error(err))
	}
	return nil
}

// preRead issues the read-only queries. Failures are logged and ignored.
func (r *CycleRunner) preRead(ctx context.Context, session instrument.Session) {
	for _, q := range r.PreRead {
		resp, err := instrument.Query(ctx, session, q)
		if err != nil {
			r.Logger.Warn(ctx, "pre-read query failed", zap.String("query", q), zap.Error(err))
			continue
		}
		resp = strings.TrimSpace(resp)
		r.Logger.Debug(ctx, "pre-read", zap.String("query", q), zap.String("value", resp))
		if q == "TEMP?" {
			r.Console.Temperature(resp)
		}
	}
}

// postRead queries every schema field. All queries must succeed.
func (r *CycleRunner) postRead(ctx context.Context, session instrument.Session) (calog.Record, error) {
	rec := calog.Record{
		Time:   r.Now(),
		Values: make([]string, 0, len(r.Schema)),
	}
	for _, f := range r.Schema {
		resp, err := instrument.Query(ctx, session, f.Query)
		if err != nil {
			return calog.Record{}, fmt.Errorf("post-read %s: %w", f.Label, err)
		}
		rec.Values = append(rec.Values, strings.TrimSpace(resp))
	}
	return rec, nil
}

// report echoes the tracked constant and publishes the readings as metrics.
func (r *CycleRunner) report(rec calog.Record) {
	if i := r.Schema.Index(r.Constant); i >= 0 {
		r.Console.Constant(r.Schema[i].Query, rec.Values[i])
	}

	readings := make(map[string]float64, len(rec.Values))
	for i, v := range rec.Values {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			readings[r.Schema[i].Label] = f
		}
	}
	r.Metrics.RecordReadings(float64(rec.Time.Unix()), readings)
}
