package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookinghandlers "staybook/internal/app/handlers/booking"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

var ErrInvalidEvent = errors.New("payments: invalid payment event")

// Event is a payment collaborator notification about one booking.
type Event struct {
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// Inbox de-duplicates deliveries by event id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

var statusActions = map[string]domainbooking.Action{
	"paid":     domainbooking.ActionMarkPaid,
	"refunded": domainbooking.ActionMarkRefunded,
	"failed":   domainbooking.ActionMarkPaymentFailed,
}

func ActionFor(status string) (domainbooking.Action, error) {
	action, ok := statusActions[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, status)
	}
	return action, nil
}

// Handler turns payment events into booking status commands.
type Handler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

// Handle returns an error only for failures worth redelivering. Business
// rejections (unknown booking, invalid transition) are logged and acknowledged.
func (h *Handler) Handle(ctx context.Context, ev Event) error {
	if ev.EventID == "" || ev.BookingID == "" {
		h.logger().Warn("payment event dropped", "reason", "missing ids", "event_id", ev.EventID)
		return nil
	}
	action, err := ActionFor(ev.Status)
	if err != nil {
		h.logger().Warn("payment event dropped", "event_id", ev.EventID, "error", err)
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, ev.EventID)
		if err != nil {
			return err
		}
		if seen {
			h.logger().Debug("payment event already processed", "event_id", ev.EventID)
			return nil
		}
	}

	_, err = commands.Dispatch[bookinghandlers.UpdateBookingStatusCommand, *dto.Booking](ctx, h.Commands, bookinghandlers.UpdateBookingStatusCommand{
		BookingID: ev.BookingID,
		Action:    string(action),
	})
	switch {
	case err == nil:
		h.logger().Info("payment event applied", "event_id", ev.EventID, "booking_id", ev.BookingID, "action", action)
		return nil
	case isBusinessError(err):
		h.logger().Warn("payment event rejected", "event_id", ev.EventID, "booking_id", ev.BookingID, "action", action, "error", err)
		return nil
	default:
		if h.Inbox != nil {
			if relErr := h.Inbox.Release(ctx, ev.EventID); relErr != nil {
				return errors.Join(err, relErr)
			}
		}
		return err
	}
}

func isBusinessError(err error) bool {
	return errors.Is(err, domainbooking.ErrInvalidTransition) ||
		errors.Is(err, domainbooking.ErrBookingNotFound) ||
		errors.Is(err, domainproperty.ErrPropertyNotFound)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
