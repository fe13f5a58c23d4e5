// Package logging provides structured logging for a3drift.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug) used for instrument wire traffic
//   - JSON or console encoding selected by config
//   - Automatic context field injection (campaign id, cycle number)
//
// # Usage
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithCampaignID(ctx, id)
//	ctx = logging.WithCycle(ctx, 3)
//	logger.Info(ctx, "record appended", zap.String("path", path))
//
// Output includes the correlation fields:
//
//	{"ts":"2024-03-01T10:15:30.000Z","level":"info","msg":"record appended",
//	 "campaign.id":"5b0c...","cycle":3,"path":"n3458a.csv"}
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "cycle failed", zap.Error(err))
//	tl.AssertLogged(t, zapcore.InfoLevel, "cycle failed")
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
