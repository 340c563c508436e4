package pricing

import (
	"errors"
	"fmt"

	"staybook/internal/domain/shared/money"
)

var ErrInvalidPricingInput = errors.New("pricing: invalid pricing input")

// Config carries marketplace-wide pricing settings injected at construction.
type Config struct {
	ServiceFeeRate money.Rate
	Currency       string
}

type Input struct {
	PricePerNight  money.Money
	Nights         int
	CleaningFee    money.Money
	ServiceFeeRate money.Rate
}

// Breakdown is the pricing snapshot stored on a booking.
type Breakdown struct {
	PricePerNight money.Money
	Nights        int
	Subtotal      money.Money
	CleaningFee   money.Money
	ServiceFee    money.Money
	Total         money.Money
}

// Calculator is a pure function object: no state, no side effects.
type Calculator struct{}

// Compute derives subtotal, service fee and total from the nightly rate.
//
//	subtotal   = pricePerNight * nights
//	serviceFee = round_half_up(subtotal * serviceFeeRate)
//	total      = subtotal + cleaningFee + serviceFee
func (Calculator) Compute(in Input) (Breakdown, error) {
	if in.Nights < 1 {
		return Breakdown{}, invalid("nights must be at least 1, got %d", in.Nights)
	}
	if in.PricePerNight.Currency == "" {
		return Breakdown{}, invalid("price per night has no currency")
	}
	if in.PricePerNight.IsNegative() {
		return Breakdown{}, invalid("price per night must be non-negative")
	}
	cleaning := in.CleaningFee
	if cleaning.Currency == "" && cleaning.IsZero() {
		cleaning = money.Zero(in.PricePerNight.Currency)
	}
	if cleaning.IsNegative() {
		return Breakdown{}, invalid("cleaning fee must be non-negative")
	}
	if !in.ServiceFeeRate.InUnitInterval() {
		return Breakdown{}, invalid("service fee rate %s outside [0,1]", in.ServiceFeeRate)
	}

	subtotal, err := in.PricePerNight.Multiply(int64(in.Nights))
	if err != nil {
		return Breakdown{}, fmt.Errorf("%w: subtotal: %w", ErrInvalidPricingInput, err)
	}
	serviceFee, err := subtotal.MulRate(in.ServiceFeeRate)
	if err != nil {
		return Breakdown{}, fmt.Errorf("%w: service fee: %w", ErrInvalidPricingInput, err)
	}
	total, err := subtotal.Add(cleaning)
	if err != nil {
		return Breakdown{}, fmt.Errorf("%w: cleaning fee: %w", ErrInvalidPricingInput, err)
	}
	total, err = total.Add(serviceFee)
	if err != nil {
		return Breakdown{}, fmt.Errorf("%w: service fee: %w", ErrInvalidPricingInput, err)
	}
	return Breakdown{
		PricePerNight: in.PricePerNight,
		Nights:        in.Nights,
		Subtotal:      subtotal,
		CleaningFee:   cleaning,
		ServiceFee:    serviceFee,
		Total:         total,
	}, nil
}

// Consistent reports whether the stored components still add up; used when
// rehydrating snapshots from storage.
func (b Breakdown) Consistent() bool {
	subtotal, err := b.PricePerNight.Multiply(int64(b.Nights))
	if err != nil || subtotal != b.Subtotal {
		return false
	}
	total, err := subtotal.Add(b.CleaningFee)
	if err != nil {
		return false
	}
	total, err = total.Add(b.ServiceFee)
	return err == nil && total == b.Total
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPricingInput, fmt.Sprintf(format, args...))
}
