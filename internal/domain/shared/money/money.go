package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidAmount    = errors.New("money: invalid amount")
	ErrOverflow         = errors.New("money: amount out of range")
)

// minorUnitExp assumes two-decimal currencies; conversion between
// currencies is handled outside this service.
const minorUnitExp = 2

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Money keeps amounts in integer minor units (cents) to avoid floating point issues.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	currency = strings.ToUpper(currency)
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the provided currency.
func Zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency)}
}

// Parse reads a decimal major-unit amount such as "100.00" or "19.9".
// Amounts with more precision than the minor unit are rejected, never rounded.
func Parse(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	minor := d.Shift(minorUnitExp)
	if !minor.IsInteger() {
		return Money{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, value, minorUnitExp)
	}
	amount, err := toMinor(minor)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return New(amount, currency)
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, fmt.Errorf("%w: %d + %d", ErrOverflow, m.Amount, other.Amount)
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) (Money, error) {
	amount, err := toMinor(decimal.NewFromInt(m.Amount).Mul(decimal.NewFromInt(times)))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %d x %d", err, m.Amount, times)
	}
	return Money{Amount: amount, Currency: m.Currency}, nil
}

// MulRate multiplies the amount by a decimal rate, rounding half up to the
// nearest minor unit. Negative products round half away from zero.
func (m Money) MulRate(rate Rate) (Money, error) {
	amount, err := toMinor(decimal.NewFromInt(m.Amount).Mul(rate.d).Round(0))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %d x %s", err, m.Amount, rate)
	}
	return Money{Amount: amount, Currency: m.Currency}, nil
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// String renders the amount in major units, e.g. "350.00 USD".
func (m Money) String() string {
	return m.Decimal() + " " + m.Currency
}

// Decimal renders the amount in major units without the currency code.
func (m Money) Decimal() string {
	return decimal.New(m.Amount, -minorUnitExp).StringFixed(minorUnitExp)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

func toMinor(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxMinor) || d.LessThan(minMinor) {
		return 0, ErrOverflow
	}
	return d.IntPart(), nil
}
