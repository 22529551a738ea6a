// Package logging provides structured diagnostic logging for safepush.
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Output on stderr, leaving stdout to the reporter
//   - Automatic context field injection (trace_id, run.id, commit)
//   - Secret redaction by field name and value pattern, including
//     credentials embedded in remote URLs
//
// Usage:
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithCommit(ctx, commit.String())
//	logger.Debug(ctx, "build finished", zap.Duration("duration", d))
//
// Use TestLogger for assertions in tests:
//
//	tl := logging.NewTestLogger()
//	tl.AssertLogged(t, zapcore.InfoLevel, "published")
//	tl.AssertField(t, "published", "strategy", "push")
package logging
