package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

// Service runs booking creation and lifecycle transitions against the unit of
// work found in ctx, or a unit it begins and commits itself.
type Service struct {
	UoWFactory uow.UoWFactory
	Calculator domainpricing.Calculator
	Checker    domainavailability.Checker
	Pricing    domainpricing.Config
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	NewID      func() string
	Logger     *slog.Logger
}

// RateInputs override marketplace pricing settings for a single request.
type RateInputs struct {
	ServiceFeeRate *money.Rate
}

type CreateParams struct {
	BookingID       string
	PropertyID      string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	GuestsCount     int
	SpecialRequests string
	Rates           RateInputs
}

// Payload carries optional data for a lifecycle action.
type Payload struct {
	Reason string
}

func (s *Service) CreateBooking(ctx context.Context, params CreateParams) (*domainbooking.Booking, error) {
	dr, err := daterange.New(params.CheckIn, params.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainbooking.ErrInvalidDateRange, err)
	}
	if params.GuestsCount < 1 {
		return nil, fmt.Errorf("%w: at least one guest required", domainbooking.ErrInvalidGuestCount)
	}

	var created *domainbooking.Booking
	err = s.withUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		now := s.now()
		prop, err := unit.Properties().ByID(ctx, domainproperty.ID(params.PropertyID))
		if err != nil {
			return err
		}
		rules := domainbooking.StayRules{MinimumNights: prop.MinimumStayNights, MaximumNights: prop.MaximumStayNights}
		if err := domainbooking.ValidateStay(dr, rules, now); err != nil {
			return err
		}
		if params.GuestsCount > prop.MaxGuests {
			return fmt.Errorf("%w: %d guests exceeds limit of %d", domainbooking.ErrInvalidGuestCount, params.GuestsCount, prop.MaxGuests)
		}

		existing, err := unit.Bookings().ListByProperty(ctx, prop.ID)
		if err != nil {
			return err
		}
		if !s.Checker.IsAvailable(prop.ID, dr, domainavailability.FromBookings(existing)) {
			return fmt.Errorf("%w: %s on %s", domainbooking.ErrBookingConflict, prop.ID, dr)
		}

		rate := s.Pricing.ServiceFeeRate
		if params.Rates.ServiceFeeRate != nil {
			rate = *params.Rates.ServiceFeeRate
		}
		quote, err := s.Calculator.Compute(domainpricing.Input{
			PricePerNight:  prop.PricePerNight,
			Nights:         dr.Nights(),
			CleaningFee:    prop.CleaningFee,
			ServiceFeeRate: rate,
		})
		if err != nil {
			return err
		}

		id := strings.TrimSpace(params.BookingID)
		if id == "" {
			id = s.newID()
		}
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:              domainbooking.ID(id),
			PropertyID:      prop.ID,
			GuestID:         params.GuestID,
			Range:           dr,
			GuestsCount:     params.GuestsCount,
			SpecialRequests: params.SpecialRequests,
			Price:           quote,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		if err := unit.Bookings().Insert(ctx, b); err != nil {
			return err
		}
		s.emit(ctx, b)
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("booking requested",
		"booking_id", created.ID,
		"property_id", created.PropertyID,
		"nights", created.Price.Nights,
		"total", created.Price.Total.String(),
	)
	return created, nil
}

func (s *Service) UpdateBookingStatus(ctx context.Context, id domainbooking.ID, action domainbooking.Action, payload Payload) (*domainbooking.Booking, error) {
	var updated *domainbooking.Booking
	err := s.withUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(b, action, payload, s.now()); err != nil {
			return err
		}
		if err := unit.Bookings().Update(ctx, b); err != nil {
			return err
		}
		s.emit(ctx, b)
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("booking status updated",
		"booking_id", updated.ID,
		"action", action,
		"status", updated.Status,
		"payment_status", updated.PaymentStatus,
	)
	return updated, nil
}

// CompleteDue completes confirmed bookings whose check-out date is on or
// before today. Bookings that changed state concurrently are skipped.
func (s *Service) CompleteDue(ctx context.Context, limit int) ([]domainbooking.ID, error) {
	var done []domainbooking.ID
	err := s.withUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		now := s.now()
		due, err := unit.Bookings().ListDueForCompletion(ctx, daterange.DateOf(now).Add(24*time.Hour), limit)
		if err != nil {
			return err
		}
		for _, b := range due {
			if err := b.Complete(now); err != nil {
				if errors.Is(err, domainbooking.ErrInvalidTransition) {
					continue
				}
				return err
			}
			if err := unit.Bookings().Update(ctx, b); err != nil {
				if errors.Is(err, domainbooking.ErrConcurrentUpdate) {
					s.logger().Warn("booking changed during completion sweep", "booking_id", b.ID)
					continue
				}
				return err
			}
			s.emit(ctx, b)
			done = append(done, b.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

func apply(b *domainbooking.Booking, action domainbooking.Action, payload Payload, now time.Time) error {
	switch action {
	case domainbooking.ActionConfirm:
		return b.Confirm(now)
	case domainbooking.ActionReject:
		return b.Reject(payload.Reason, now)
	case domainbooking.ActionCancel:
		return b.Cancel(payload.Reason, now)
	case domainbooking.ActionComplete:
		return b.Complete(now)
	case domainbooking.ActionMarkPaid:
		return b.MarkPaid(now)
	case domainbooking.ActionMarkRefunded:
		return b.MarkRefunded(now)
	case domainbooking.ActionMarkPaymentFailed:
		return b.MarkPaymentFailed(now)
	case domainbooking.ActionRetryPayment:
		return b.RetryPayment(now)
	default:
		return fmt.Errorf("%w: unknown action %q", domainbooking.ErrInvalidTransition, action)
	}
}

func (s *Service) withUnit(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return uow.Within(ctx, s.UoWFactory, uow.TxOptions{}, fn)
}

// emit hands pending events to the outbox. Notification delivery must never
// undo a state change, so failures are only logged.
func (s *Service) emit(ctx context.Context, b *domainbooking.Booking) {
	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, s.Outbox, s.encoder(), pending); err != nil {
		s.logger().Warn("booking events not recorded", "booking_id", b.ID, "events", len(pending), "error", err)
	}
}

func (s *Service) encoder() outbox.EventEncoder {
	if s.Encoder != nil {
		return s.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
