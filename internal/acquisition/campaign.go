package acquisition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/a3drift/internal/instrument"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
)

// Progress is a point-in-time view of a campaign.
type Progress struct {
	ID         string    `json:"id"`
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Running    bool      `json:"running"`
	StartedAt  time.Time `json:"started_at"`
	LastRecord time.Time `json:"last_record,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Campaign repeats calibration cycles at a fixed period.
//
// Cycles run strictly one after another on the calling goroutine. Each cycle
// opens its own instrument session and closes it on every exit path. A failed
// cycle is reported and counted; the campaign moves on to the next one.
type Campaign struct {
	ID     string
	Dialer instrument.Dialer
	Runner *CycleRunner
	Sink   Sink
	Cycles int
	Period time.Duration

	Sleep   Sleeper
	Now     func() time.Time
	Logger  *logging.Logger
	Console *Console
	Metrics *Metrics

	mu       sync.Mutex
	progress Progress
}

// NewCampaign returns a campaign using the real clock.
func NewCampaign(id string, dialer instrument.Dialer, runner *CycleRunner, sink Sink, cycles int, period time.Duration, logger *logging.Logger) *Campaign {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Campaign{
		ID:      id,
		Dialer:  dialer,
		Runner:  runner,
		Sink:    sink,
		Cycles:  cycles,
		Period:  period,
		Sleep:   SleepContext,
		Now:     time.Now,
		Logger:  logger,
		Console: runner.Console,
		Metrics: runner.Metrics,
	}
}

// Run executes all cycles and returns the final progress. It only returns an
// error when ctx is cancelled; individual cycle failures never abort the run.
func (c *Campaign) Run(ctx context.Context) (Progress, error) {
	ctx = logging.WithCampaignID(ctx, c.ID)

	c.update(func(p *Progress) {
		p.ID = c.ID
		p.Total = c.Cycles
		p.Running = true
		p.StartedAt = c.Now()
	})

	c.Metrics.SetRemaining(c.Cycles)
	c.Logger.Info(ctx, "campaign started",
		zap.Int("cycles", c.Cycles),
		zap.Duration("period", c.Period),
		zap.Duration("acal_wait", c.Runner.Wait))

	for n := 1; n <= c.Cycles; n++ {
		cycleCtx := logging.WithCycle(ctx, n)
		start := c.Now()

		err := c.runCycle(cycleCtx)
		if ctx.Err() != nil {
			c.Logger.Warn(cycleCtx, "campaign interrupted", zap.Error(ctx.Err()))
			return c.stop(), ctx.Err()
		}

		elapsed := c.Now().Sub(start)
		c.Metrics.RecordCycle(err == nil, elapsed.Seconds())
		c.Metrics.SetRemaining(c.Cycles - n)
		c.finish(cycleCtx, n, err)

		if n == c.Cycles {
			break
		}
		if err := c.Sleep(ctx, c.idle(elapsed)); err != nil {
			c.Logger.Warn(cycleCtx, "campaign interrupted", zap.Error(err))
			return c.stop(), err
		}
	}

	p := c.stop()
	c.Logger.Info(ctx, "campaign finished", zap.Int("succeeded", p.Succeeded), zap.Int("failed", p.Failed))
	c.Console.Finished(p.Succeeded, p.Failed)
	return p, nil
}

// Progress returns a snapshot of the campaign state. Safe for concurrent use.
func (c *Campaign) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// runCycle owns the session for one cycle. Panics from the cycle are turned
// into errors so they are isolated like any other failure.
func (c *Campaign) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()

	session, err := c.Dialer.Open(ctx)
	if err != nil {
		return fmt.Errorf("open instrument: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			c.Logger.Warn(ctx, "closing instrument session failed", zap.Error(cerr))
		}
	}()
	c.Console.Connected()

	return c.Runner.RunCycle(ctx, session, c.Sink)
}

// idle is the gap before the next trigger. It keeps the trigger-to-trigger
// period fixed: normally period minus the ACAL wait, shrinking when the cycle
// ran longer than the wait, never negative.
func (c *Campaign) idle(elapsed time.Duration) time.Duration {
	busy := c.Runner.Wait
	if elapsed > busy {
		busy = elapsed
	}
	if idle := c.Period - busy; idle > 0 {
		return idle
	}
	return 0
}

func (c *Campaign) finish(ctx context.Context, n int, err error) {
	now := c.Now()
	c.update(func(p *Progress) {
		p.Completed = n
		if err != nil {
			p.Failed++
			p.LastError = err.Error()
			return
		}
		p.Succeeded++
		p.LastRecord = now
	})

	if err != nil {
		c.Logger.Error(ctx, "calibration cycle failed", zap.Error(err))
		c.Console.Failure("ACAL cycle", err)
	}
	c.Console.CycleDone(n, c.Cycles, err == nil)
}

// stop marks the campaign as no longer running and returns the final snapshot.
func (c *Campaign) stop() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress.Running = false
	return c.progress
}

func (c *Campaign) update(fn func(p *Progress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.progress)
}
