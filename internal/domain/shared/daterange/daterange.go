package daterange

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrInvalidDate  = errors.New("daterange: invalid date")
)

// DateLayout is the wire format for stay dates.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DateRange represents a half-open interval [checkIn, checkOut) of calendar dates.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New builds a range from two instants, keeping only their calendar dates.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: DateOf(checkIn), CheckOut: DateOf(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse reads two dates in DateLayout format.
func Parse(checkIn, checkOut string) (DateRange, error) {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: check-in %q", ErrInvalidDate, checkIn)
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: check-out %q", ErrInvalidDate, checkOut)
	}
	return New(in, out)
}

// MustParse is Parse that panics; intended for fixtures and tests.
func MustParse(checkIn, checkOut string) DateRange {
	dr, err := Parse(checkIn, checkOut)
	if err != nil {
		panic(err)
	}
	return dr
}

// DateOf truncates t to midnight UTC of its own calendar date.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Round(day) / day)
}

// Overlaps is the half-open overlap test; a checkout on the other's check-in day does not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Contains(other DateRange) bool {
	return (dr.CheckIn.Before(other.CheckIn) || dr.CheckIn.Equal(other.CheckIn)) &&
		(dr.CheckOut.After(other.CheckOut) || dr.CheckOut.Equal(other.CheckOut))
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.CheckOut.Equal(other.CheckIn) || dr.CheckIn.Equal(other.CheckOut)
}

func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !(dr.Overlaps(other) || dr.Adjacent(other)) {
		return DateRange{}, false
	}
	start := dr.CheckIn
	if other.CheckIn.Before(start) {
		start = other.CheckIn
	}
	end := dr.CheckOut
	if other.CheckOut.After(end) {
		end = other.CheckOut
	}
	return DateRange{CheckIn: start, CheckOut: end}, true
}

// Clip returns the intersection of dr and window.
func (dr DateRange) Clip(window DateRange) (DateRange, bool) {
	if !dr.Overlaps(window) {
		return DateRange{}, false
	}
	out := dr
	if window.CheckIn.After(out.CheckIn) {
		out.CheckIn = window.CheckIn
	}
	if window.CheckOut.Before(out.CheckOut) {
		out.CheckOut = window.CheckOut
	}
	return out, true
}

func (dr DateRange) String() string {
	return dr.CheckIn.Format(DateLayout) + ".." + dr.CheckOut.Format(DateLayout)
}
