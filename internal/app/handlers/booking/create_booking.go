package booking

import (
	"context"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/middleware"
	bookingsvc "staybook/internal/app/services/booking"
	"staybook/internal/domain/shared/money"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	BookingID       string
	PropertyID      string `validate:"required"`
	GuestID         string `validate:"required"`
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	SpecialRequests string `validate:"max=2000"`
	ServiceFeeRate  *money.Rate
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

type CreateBookingHandler struct {
	Service *bookingsvc.Service
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	created, err := h.Service.CreateBooking(ctx, bookingsvc.CreateParams{
		BookingID:       cmd.BookingID,
		PropertyID:      cmd.PropertyID,
		GuestID:         cmd.GuestID,
		CheckIn:         cmd.CheckIn,
		CheckOut:        cmd.CheckOut,
		GuestsCount:     cmd.Guests,
		SpecialRequests: cmd.SpecialRequests,
		Rates:           bookingsvc.RateInputs{ServiceFeeRate: cmd.ServiceFeeRate},
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(created)
	return &out, nil
}

var _ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
