package notify

import (
	"context"
	"log/slog"
)

// LogNotifier records notifications in the service log. Formatting and
// delivery to guests happen in a separate system.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification queued", "to", to, "template", template, "data", data)
	return nil
}
