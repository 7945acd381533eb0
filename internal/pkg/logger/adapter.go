package logger

import (
	"log/slog"

	"blockchain_analytics/internal/app/port"
)

// slogAdapter implements port.Logger on top of a *slog.Logger.
// A nil logger means the package-level global logger.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter returns a port.Logger writing through the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// NewAdapter wraps a specific slog logger, e.g. a discarding one in tests.
func NewAdapter(l *slog.Logger) port.Logger {
	return &slogAdapter{l: l}
}

func (a *slogAdapter) Info(msg string, args ...any) {
	if a.l != nil {
		a.l.Info(msg, args...)
		return
	}
	Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	if a.l != nil {
		a.l.Debug(msg, args...)
		return
	}
	Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	if a.l != nil {
		a.l.Warn(msg, args...)
		return
	}
	Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	if a.l != nil {
		a.l.Error(msg, args...)
		return
	}
	Error(msg, args...)
}
