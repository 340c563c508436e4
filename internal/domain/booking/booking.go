package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

var (
	ErrInvalidDateRange  = errors.New("booking: invalid date range")
	ErrInvalidGuestCount = errors.New("booking: invalid guest count")
	ErrBookingConflict   = errors.New("booking: dates conflict with an existing booking")
	ErrInvalidTransition = errors.New("booking: invalid state transition")
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrConcurrentUpdate  = errors.New("booking: concurrent update detected")
)

type ID string

type Booking struct {
	ID                 ID
	PropertyID         property.ID
	GuestID            string
	Range              daterange.DateRange
	GuestsCount        int
	Price              pricing.Breakdown
	Status             Status
	PaymentStatus      PaymentStatus
	SpecialRequests    string
	CancellationReason string
	RejectionReason    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	PaidAt             *time.Time
	RefundedAt         *time.Time
	Version            int64
	events.EventRecorder
}

// Repository is the storage contract. Implementations must make Insert fail
// with ErrBookingConflict when another pending or confirmed booking of the
// same property overlaps, even under concurrent inserts.
type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	ListByProperty(ctx context.Context, propertyID property.ID) ([]*Booking, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListDueForCompletion(ctx context.Context, checkOutBefore time.Time, limit int) ([]*Booking, error)
	Insert(ctx context.Context, booking *Booking) error
	Update(ctx context.Context, booking *Booking) error
}

type CreateParams struct {
	ID              ID
	PropertyID      property.ID
	GuestID         string
	Range           daterange.DateRange
	GuestsCount     int
	SpecialRequests string
	Price           pricing.Breakdown
	CreatedAt       time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id required")
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, errors.New("booking: guest id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDateRange, err)
	}
	if params.GuestsCount < 1 {
		return nil, fmt.Errorf("%w: at least one guest required", ErrInvalidGuestCount)
	}
	if params.Price.Nights != params.Range.Nights() {
		return nil, fmt.Errorf("%w: quote covers %d nights, stay has %d", pricing.ErrInvalidPricingInput, params.Price.Nights, params.Range.Nights())
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		PropertyID:      params.PropertyID,
		GuestID:         params.GuestID,
		Range:           params.Range,
		GuestsCount:     params.GuestsCount,
		Price:           params.Price,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		SpecialRequests: strings.TrimSpace(params.SpecialRequests),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingRequested{
		BookingID:   b.ID,
		PropertyID:  b.PropertyID,
		GuestID:     b.GuestID,
		Range:       b.Range,
		GuestsCount: b.GuestsCount,
		Total:       b.Price.Total,
		At:          now,
	})
	return b, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if err := b.moveTo(StatusConfirmed, now); err != nil {
		return err
	}
	b.ConfirmedAt = timePtr(b.UpdatedAt)
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, GuestID: b.GuestID, Range: b.Range, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Reject(reason string, now time.Time) error {
	if err := b.moveTo(StatusRejected, now); err != nil {
		return err
	}
	b.RejectionReason = strings.TrimSpace(reason)
	b.Record(BookingRejected{BookingID: b.ID, PropertyID: b.PropertyID, GuestID: b.GuestID, Reason: b.RejectionReason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if err := b.moveTo(StatusCancelled, now); err != nil {
		return err
	}
	b.CancelledAt = timePtr(b.UpdatedAt)
	b.CancellationReason = strings.TrimSpace(reason)
	b.Record(BookingCancelled{BookingID: b.ID, PropertyID: b.PropertyID, GuestID: b.GuestID, Range: b.Range, Reason: b.CancellationReason, At: b.UpdatedAt})
	return nil
}

// Complete closes a confirmed stay. Whether the check-out date has passed is
// the caller's policy.
func (b *Booking) Complete(now time.Time) error {
	if err := b.moveTo(StatusCompleted, now); err != nil {
		return err
	}
	b.CompletedAt = timePtr(b.UpdatedAt)
	b.Record(BookingCompleted{BookingID: b.ID, PropertyID: b.PropertyID, GuestID: b.GuestID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkPaid(now time.Time) error {
	if err := b.movePaymentTo(PaymentPaid, now); err != nil {
		return err
	}
	b.PaidAt = timePtr(b.UpdatedAt)
	b.Record(PaymentReceived{BookingID: b.ID, GuestID: b.GuestID, Amount: b.Price.Total, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkRefunded(now time.Time) error {
	if err := b.movePaymentTo(PaymentRefunded, now); err != nil {
		return err
	}
	b.RefundedAt = timePtr(b.UpdatedAt)
	b.Record(PaymentRefundedEvent{BookingID: b.ID, GuestID: b.GuestID, Amount: b.Price.Total, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkPaymentFailed(now time.Time) error {
	if b.PaymentStatus != PaymentPending {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, b.PaymentStatus, PaymentFailed)
	}
	if err := b.movePaymentTo(PaymentFailed, now); err != nil {
		return err
	}
	b.Record(PaymentFailedEvent{BookingID: b.ID, GuestID: b.GuestID, At: b.UpdatedAt})
	return nil
}

// RetryPayment moves a failed payment back to pending.
func (b *Booking) RetryPayment(now time.Time) error {
	if b.PaymentStatus != PaymentFailed {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, b.PaymentStatus, PaymentPending)
	}
	if err := b.movePaymentTo(PaymentPending, now); err != nil {
		return err
	}
	b.Record(PaymentRetryRequested{BookingID: b.ID, GuestID: b.GuestID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) moveTo(target Status, now time.Time) error {
	if !b.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, target)
	}
	b.Status = target
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) movePaymentTo(target PaymentStatus, now time.Time) error {
	if !b.PaymentStatus.CanTransitionTo(target) {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, b.PaymentStatus, target)
	}
	b.PaymentStatus = target
	b.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a copy without pending events, safe to hand to another owner.
func (b *Booking) Clone() *Booking {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func timePtr(t time.Time) *time.Time {
	return &t
}
