package dto

import (
	"staybook/internal/domain/shared/daterange"
)

type CalendarRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Calendar struct {
	PropertyID string          `json:"property_id"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	Occupied   []CalendarRange `json:"occupied"`
}

type Availability struct {
	PropertyID string   `json:"property_id"`
	CheckIn    string   `json:"check_in"`
	CheckOut   string   `json:"check_out"`
	Available  bool     `json:"available"`
	Conflicts  []string `json:"conflicts,omitempty"`
}

func MapCalendar(propertyID string, window daterange.DateRange, occupied []daterange.DateRange) Calendar {
	ranges := make([]CalendarRange, 0, len(occupied))
	for _, r := range occupied {
		ranges = append(ranges, CalendarRange{
			From: r.CheckIn.Format(daterange.DateLayout),
			To:   r.CheckOut.Format(daterange.DateLayout),
		})
	}
	return Calendar{
		PropertyID: propertyID,
		From:       window.CheckIn.Format(daterange.DateLayout),
		To:         window.CheckOut.Format(daterange.DateLayout),
		Occupied:   ranges,
	}
}
