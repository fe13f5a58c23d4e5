package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below Debug and carries every GPIB line.
const TraceLevel = zapcore.DebugLevel - 1

var levelNames = map[string]zapcore.Level{
	"trace":   TraceLevel,
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
}

// LevelFromString parses a level name from the config file or --log-level.
func LevelFromString(level string) (zapcore.Level, error) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("unknown level %q", level)
	}
	return l, nil
}

// levelEncoder renders TraceLevel as TRACE, which zap would print as
// LEVEL(-2).
func levelEncoder(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		switch {
		case l == TraceLevel && color:
			enc.AppendString("\x1b[90mTRACE\x1b[0m")
		case l == TraceLevel:
			enc.AppendString("trace")
		case color:
			zapcore.CapitalColorLevelEncoder(l, enc)
		default:
			zapcore.LowercaseLevelEncoder(l, enc)
		}
	}
}
