package booking

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingsvc "staybook/internal/app/services/booking"
	domainbooking "staybook/internal/domain/booking"
)

const (
	updateBookingStatusKey = "booking.update_status"
	completeDueBookingsKey = "booking.complete_due"
	defaultCompletionBatch = 100
)

type UpdateBookingStatusCommand struct {
	BookingID string `validate:"required"`
	Action    string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c UpdateBookingStatusCommand) Key() string { return updateBookingStatusKey }

type UpdateBookingStatusHandler struct {
	Service *bookingsvc.Service
}

func (h *UpdateBookingStatusHandler) Handle(ctx context.Context, cmd UpdateBookingStatusCommand) (*dto.Booking, error) {
	action, err := domainbooking.ParseAction(cmd.Action)
	if err != nil {
		return nil, err
	}
	updated, err := h.Service.UpdateBookingStatus(ctx, domainbooking.ID(cmd.BookingID), action, bookingsvc.Payload{Reason: cmd.Reason})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(updated)
	return &out, nil
}

// CompleteDueBookingsCommand closes confirmed stays whose check-out has passed.
type CompleteDueBookingsCommand struct {
	Limit int
}

func (c CompleteDueBookingsCommand) Key() string { return completeDueBookingsKey }

type CompleteDueBookingsResult struct {
	Completed []string `json:"completed"`
}

type CompleteDueBookingsHandler struct {
	Service *bookingsvc.Service
	Logger  *slog.Logger
}

func (h *CompleteDueBookingsHandler) Handle(ctx context.Context, cmd CompleteDueBookingsCommand) (*CompleteDueBookingsResult, error) {
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultCompletionBatch
	}
	ids, err := h.Service.CompleteDue(ctx, limit)
	if err != nil {
		return nil, err
	}
	res := &CompleteDueBookingsResult{Completed: make([]string, 0, len(ids))}
	for _, id := range ids {
		res.Completed = append(res.Completed, string(id))
	}
	if h.Logger != nil && len(ids) > 0 {
		h.Logger.Info("due bookings completed", "count", len(ids))
	}
	return res, nil
}

var _ commands.Handler[UpdateBookingStatusCommand, *dto.Booking] = (*UpdateBookingStatusHandler)(nil)
var _ commands.Handler[CompleteDueBookingsCommand, *CompleteDueBookingsResult] = (*CompleteDueBookingsHandler)(nil)
