package availability

import (
	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

// Reservation is the slice of a booking the availability rule looks at.
type Reservation struct {
	BookingID  booking.ID
	PropertyID property.ID
	Range      daterange.DateRange
	Status     booking.Status
}

// Blocks reports whether a reservation in the given status occupies its dates.
func Blocks(status booking.Status) bool {
	return status.HoldsDates()
}

func FromBooking(b *booking.Booking) Reservation {
	return Reservation{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Status: b.Status}
}

func FromBookings(list []*booking.Booking) []Reservation {
	out := make([]Reservation, 0, len(list))
	for _, b := range list {
		if b == nil {
			continue
		}
		out = append(out, FromBooking(b))
	}
	return out
}

// Checker decides whether a candidate stay fits around existing reservations.
// It holds no state; the caller supplies a consistent snapshot.
type Checker struct{}

func (c Checker) IsAvailable(propertyID property.ID, candidate daterange.DateRange, existing []Reservation) bool {
	return len(c.Conflicts(propertyID, candidate, existing)) == 0
}

// Conflicts lists the blocking reservations overlapping candidate.
func (Checker) Conflicts(propertyID property.ID, candidate daterange.DateRange, existing []Reservation) []Reservation {
	var out []Reservation
	for _, r := range existing {
		if r.PropertyID != "" && r.PropertyID != propertyID {
			continue
		}
		if !Blocks(r.Status) {
			continue
		}
		if r.Range.Overlaps(candidate) {
			out = append(out, r)
		}
	}
	return out
}
