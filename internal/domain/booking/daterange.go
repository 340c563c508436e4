package booking

import (
	"fmt"
	"time"

	"staybook/internal/domain/shared/daterange"
)

// StayRules are the property constraints a requested stay is checked against.
type StayRules struct {
	MinimumNights int
	MaximumNights int // 0 means unlimited
}

// ValidateStay rejects ranges that are malformed, start before today or break
// the stay-length rules. Every failure wraps ErrInvalidDateRange.
func ValidateStay(dr daterange.DateRange, rules StayRules, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDateRange, err)
	}
	today := daterange.DateOf(now.UTC())
	if dr.CheckIn.Before(today) {
		return fmt.Errorf("%w: check-in %s is in the past", ErrInvalidDateRange, dr.CheckIn.Format(daterange.DateLayout))
	}
	nights := dr.Nights()
	if rules.MinimumNights > 0 && nights < rules.MinimumNights {
		return fmt.Errorf("%w: stay of %d nights is below minimum %d", ErrInvalidDateRange, nights, rules.MinimumNights)
	}
	if rules.MaximumNights > 0 && nights > rules.MaximumNights {
		return fmt.Errorf("%w: stay of %d nights exceeds maximum %d", ErrInvalidDateRange, nights, rules.MaximumNights)
	}
	return nil
}
