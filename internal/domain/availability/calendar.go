package availability

import (
	"sort"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

// Occupied returns the merged ranges held by blocking reservations of the
// property, clipped to window and ordered by check-in.
func Occupied(propertyID property.ID, existing []Reservation, window daterange.DateRange) []daterange.DateRange {
	var held []daterange.DateRange
	for _, r := range existing {
		if r.PropertyID != "" && r.PropertyID != propertyID {
			continue
		}
		if !Blocks(r.Status) {
			continue
		}
		if clipped, ok := r.Range.Clip(window); ok {
			held = append(held, clipped)
		}
	}
	sort.Slice(held, func(i, j int) bool {
		return held[i].CheckIn.Before(held[j].CheckIn)
	})

	merged := make([]daterange.DateRange, 0, len(held))
	for _, r := range held {
		if n := len(merged); n > 0 {
			if joined, ok := merged[n-1].Merge(r); ok {
				merged[n-1] = joined
				continue
			}
		}
		merged = append(merged, r)
	}
	return merged
}
