package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound = errors.New("property: not found")
	ErrGuestsLimit      = errors.New("property: max guests must be at least 1")
	ErrNightsRange      = errors.New("property: minimum stay must be <= maximum stay")
	ErrNightlyRate      = errors.New("property: nightly rate must be non-negative")
	ErrCleaningFee      = errors.New("property: cleaning fee must be non-negative")
)

type ID string

// Property is the read model of a rental unit owned by the listings side of the
// marketplace. The booking core only reads stay rules and rates from it.
type Property struct {
	ID                ID
	HostID            string
	Title             string
	MinimumStayNights int
	MaximumStayNights int // 0 means unlimited
	MaxGuests         int
	PricePerNight     money.Money
	CleaningFee       money.Money
	UpdatedAt         time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
	Save(ctx context.Context, p *Property) error
}

func (p Property) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return errors.New("property: id is required")
	}
	if p.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	if p.MinimumStayNights < 0 || p.MaximumStayNights < 0 {
		return ErrNightsRange
	}
	if p.MaximumStayNights > 0 && p.MinimumStayNights > p.MaximumStayNights {
		return ErrNightsRange
	}
	if p.PricePerNight.IsNegative() {
		return ErrNightlyRate
	}
	if p.CleaningFee.IsNegative() {
		return ErrCleaningFee
	}
	return nil
}
