package main

import (
	"log/slog"
	"os"
)

// slog's four standard levels cover debug/info/warn/error. trace and
// critical sit one step outside that range on either side; none is set
// above every level so nothing is emitted.
const (
	slogLevelTrace    = slog.LevelDebug - 4
	slogLevelCritical = slog.LevelError + 4
	slogLevelNone     = slog.LevelError + 8
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelTrace:
		return slogLevelTrace
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	case LogLevelCritical:
		return slogLevelCritical
	case LogLevelNone:
		return slogLevelNone
	default:
		return slog.LevelInfo
	}
}

// initLogging installs a slog.TextHandler at the configured level as the
// process-wide default logger.
func initLogging(level LogLevel) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level.slogLevel(),
	})
	slog.SetDefault(slog.New(handler))
}
