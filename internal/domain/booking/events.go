package booking

import (
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID   ID                  `json:"booking_id"`
	PropertyID  property.ID         `json:"property_id"`
	GuestID     string              `json:"guest_id"`
	Range       daterange.DateRange `json:"range"`
	GuestsCount int                 `json:"guests_count"`
	Total       money.Money         `json:"total"`
	At          time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  ID                  `json:"booking_id"`
	PropertyID property.ID         `json:"property_id"`
	GuestID    string              `json:"guest_id"`
	Range      daterange.DateRange `json:"range"`
	Total      money.Money         `json:"total"`
	At         time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID  ID          `json:"booking_id"`
	PropertyID property.ID `json:"property_id"`
	GuestID    string      `json:"guest_id"`
	Reason     string      `json:"reason,omitempty"`
	At         time.Time   `json:"at"`
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  ID                  `json:"booking_id"`
	PropertyID property.ID         `json:"property_id"`
	GuestID    string              `json:"guest_id"`
	Range      daterange.DateRange `json:"range"`
	Reason     string              `json:"reason,omitempty"`
	At         time.Time           `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID  ID          `json:"booking_id"`
	PropertyID property.ID `json:"property_id"`
	GuestID    string      `json:"guest_id"`
	At         time.Time   `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type PaymentReceived struct {
	GuestID   string      `json:"guest_id"`
	BookingID ID          `json:"booking_id"`
	Amount    money.Money `json:"amount"`
	At        time.Time   `json:"at"`
}

func (e PaymentReceived) EventName() string     { return "booking.payment_received" }
func (e PaymentReceived) AggregateID() string   { return string(e.BookingID) }
func (e PaymentReceived) OccurredAt() time.Time { return e.At }

type PaymentRefundedEvent struct {
	GuestID   string      `json:"guest_id"`
	BookingID ID          `json:"booking_id"`
	Amount    money.Money `json:"amount"`
	At        time.Time   `json:"at"`
}

func (e PaymentRefundedEvent) EventName() string     { return "booking.payment_refunded" }
func (e PaymentRefundedEvent) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRefundedEvent) OccurredAt() time.Time { return e.At }

type PaymentFailedEvent struct {
	GuestID   string    `json:"guest_id"`
	BookingID ID        `json:"booking_id"`
	At        time.Time `json:"at"`
}

func (e PaymentFailedEvent) EventName() string     { return "booking.payment_failed" }
func (e PaymentFailedEvent) AggregateID() string   { return string(e.BookingID) }
func (e PaymentFailedEvent) OccurredAt() time.Time { return e.At }

type PaymentRetryRequested struct {
	GuestID   string    `json:"guest_id"`
	BookingID ID        `json:"booking_id"`
	At        time.Time `json:"at"`
}

func (e PaymentRetryRequested) EventName() string     { return "booking.payment_retry_requested" }
func (e PaymentRetryRequested) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRetryRequested) OccurredAt() time.Time { return e.At }
