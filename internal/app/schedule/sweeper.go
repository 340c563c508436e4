package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	bookingapp "staybook/internal/app/handlers/booking"
)

var ErrSweeperNotConfigured = errors.New("schedule: sweeper requires a command bus")

// CompletionSweeper periodically completes confirmed stays whose check-out
// date has been reached.
type CompletionSweeper struct {
	Commands  commands.Bus
	Interval  time.Duration
	BatchSize int
	Logger    *slog.Logger
}

func (s *CompletionSweeper) Run(ctx context.Context) error {
	if s.Commands == nil {
		return ErrSweeperNotConfigured
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger().Error("completion sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce runs a single batch and returns the completed booking ids.
func (s *CompletionSweeper) SweepOnce(ctx context.Context) ([]string, error) {
	if s.Commands == nil {
		return nil, ErrSweeperNotConfigured
	}
	res, err := commands.Dispatch[bookingapp.CompleteDueBookingsCommand, *bookingapp.CompleteDueBookingsResult](
		ctx, s.Commands, bookingapp.CompleteDueBookingsCommand{Limit: s.BatchSize})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	if len(res.Completed) > 0 {
		s.logger().Debug("sweep finished", "count", len(res.Completed))
	}
	return res.Completed, nil
}

func (s *CompletionSweeper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
