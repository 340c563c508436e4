package middleware

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
)

// OutboxFlush publishes staged events after the wrapped command succeeds.
// Delivery is fire-and-forget: a flush failure is logged and the command
// result is returned unchanged.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.Warn("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
