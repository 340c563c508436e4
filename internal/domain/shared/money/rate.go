package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidRate = errors.New("money: invalid rate")

// rateExp caps rate precision at parts per million.
const rateExp = 6

var one = decimal.NewFromInt(1)

// Rate is an exact decimal fraction such as a service fee percentage.
// The zero value is a zero rate.
type Rate struct {
	d decimal.Decimal
}

// RateFromPPM builds a rate from parts per million (100000 == 0.10).
func RateFromPPM(ppm int64) Rate {
	return Rate{d: decimal.New(ppm, -rateExp)}
}

// ParseRate reads a decimal such as "0.1" or "0.125". More than six fractional
// digits is rejected instead of silently truncated.
func ParseRate(value string) (Rate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, value)
	}
	if !d.Shift(rateExp).IsInteger() {
		return Rate{}, fmt.Errorf("%w: %q exceeds six decimal places", ErrInvalidRate, value)
	}
	return Rate{d: d}, nil
}

func MustRate(value string) Rate {
	r, err := ParseRate(value)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rate) PPM() int64 {
	return r.d.Shift(rateExp).IntPart()
}

// InUnitInterval reports whether 0 <= r <= 1.
func (r Rate) InUnitInterval() bool {
	return !r.d.IsNegative() && r.d.LessThanOrEqual(one)
}

func (r Rate) String() string {
	return r.d.String()
}
