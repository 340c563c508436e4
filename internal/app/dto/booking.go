package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

type PriceBreakdown struct {
	PricePerNight MoneyDTO `json:"price_per_night"`
	Nights        int      `json:"nights"`
	Subtotal      MoneyDTO `json:"subtotal"`
	CleaningFee   MoneyDTO `json:"cleaning_fee"`
	ServiceFee    MoneyDTO `json:"service_fee"`
	Total         MoneyDTO `json:"total"`
}

type Booking struct {
	ID                 string         `json:"id"`
	PropertyID         string         `json:"property_id"`
	GuestID            string         `json:"guest_id"`
	CheckIn            string         `json:"check_in"`
	CheckOut           string         `json:"check_out"`
	Guests             int            `json:"guests"`
	Status             string         `json:"status"`
	PaymentStatus      string         `json:"payment_status"`
	Price              PriceBreakdown `json:"price"`
	SpecialRequests    string         `json:"special_requests,omitempty"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	RejectionReason    string         `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	ConfirmedAt        *time.Time     `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	PaidAt             *time.Time     `json:"paid_at,omitempty"`
	RefundedAt         *time.Time     `json:"refunded_at,omitempty"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:    value.Amount,
		Currency:  value.Currency,
		Formatted: value.String(),
	}
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:            string(b.ID),
		PropertyID:    string(b.PropertyID),
		GuestID:       b.GuestID,
		CheckIn:       b.Range.CheckIn.Format(daterange.DateLayout),
		CheckOut:      b.Range.CheckOut.Format(daterange.DateLayout),
		Guests:        b.GuestsCount,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Price: PriceBreakdown{
			PricePerNight: MapMoney(b.Price.PricePerNight),
			Nights:        b.Price.Nights,
			Subtotal:      MapMoney(b.Price.Subtotal),
			CleaningFee:   MapMoney(b.Price.CleaningFee),
			ServiceFee:    MapMoney(b.Price.ServiceFee),
			Total:         MapMoney(b.Price.Total),
		},
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		RejectionReason:    b.RejectionReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
		CompletedAt:        b.CompletedAt,
		PaidAt:             b.PaidAt,
		RefundedAt:         b.RefundedAt,
	}
}

func MapBookings(list []*domainbooking.Booking) BookingCollection {
	items := make([]Booking, 0, len(list))
	for _, b := range list {
		items = append(items, MapBooking(b))
	}
	return BookingCollection{Items: items}
}
