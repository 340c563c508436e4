package inproc

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// slogAdapter lets watermill log through the service logger.
type slogAdapter struct {
	logger *slog.Logger
}

func NewLoggerAdapter(logger *slog.Logger) watermill.LoggerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return slogAdapter{logger: logger.With("component", "watermill")}
}

func (a slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(attrs(fields), "error", err)...)
}

func (a slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, attrs(fields)...)
}

func (a slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, attrs(fields)...)
}

// Trace is noisy per-message output; folded into debug.
func (a slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, attrs(fields)...)
}

func (a slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return slogAdapter{logger: a.logger.With(attrs(fields)...)}
}

func attrs(fields watermill.LogFields) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
