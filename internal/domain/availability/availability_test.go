package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

func TestBackToBackStayIsAvailable(t *testing.T) {
	existing := []Reservation{{
		BookingID:  "bk-1",
		PropertyID: "prop-1",
		Range:      daterange.MustParse("2024-06-01", "2024-06-05"),
		Status:     booking.StatusConfirmed,
	}}
	checker := Checker{}

	assert.True(t, checker.IsAvailable("prop-1", daterange.MustParse("2024-06-05", "2024-06-08"), existing))
	assert.True(t, checker.IsAvailable("prop-1", daterange.MustParse("2024-05-28", "2024-06-01"), existing))

	conflicts := checker.Conflicts("prop-1", daterange.MustParse("2024-06-03", "2024-06-06"), existing)
	require.Len(t, conflicts, 1)
	assert.Equal(t, booking.ID("bk-1"), conflicts[0].BookingID)
}

func TestOnlyPendingAndConfirmedBlock(t *testing.T) {
	dr := daterange.MustParse("2024-06-01", "2024-06-05")
	candidate := daterange.MustParse("2024-06-02", "2024-06-03")
	cases := map[booking.Status]bool{
		booking.StatusPending:   false,
		booking.StatusConfirmed: false,
		booking.StatusCancelled: true,
		booking.StatusRejected:  true,
		booking.StatusCompleted: true,
	}
	for status, available := range cases {
		existing := []Reservation{{PropertyID: "prop-1", Range: dr, Status: status}}
		assert.Equal(t, available, Checker{}.IsAvailable("prop-1", candidate, existing), status)
	}
}

func TestOtherPropertiesAreIgnored(t *testing.T) {
	existing := []Reservation{{PropertyID: "prop-2", Range: daterange.MustParse("2024-06-01", "2024-06-05"), Status: booking.StatusConfirmed}}
	assert.True(t, Checker{}.IsAvailable("prop-1", daterange.MustParse("2024-06-02", "2024-06-03"), existing))
}

func TestOccupiedMergesAndClips(t *testing.T) {
	existing := []Reservation{
		{PropertyID: "prop-1", Range: daterange.MustParse("2024-06-05", "2024-06-08"), Status: booking.StatusPending},
		{PropertyID: "prop-1", Range: daterange.MustParse("2024-05-28", "2024-06-05"), Status: booking.StatusConfirmed},
		{PropertyID: "prop-1", Range: daterange.MustParse("2024-06-10", "2024-06-12"), Status: booking.StatusCancelled},
		{PropertyID: "prop-1", Range: daterange.MustParse("2024-06-20", "2024-07-10"), Status: booking.StatusConfirmed},
		{PropertyID: "prop-2", Range: daterange.MustParse("2024-06-12", "2024-06-14"), Status: booking.StatusConfirmed},
	}
	got := Occupied("prop-1", existing, daterange.MustParse("2024-06-01", "2024-07-01"))
	assert.Equal(t, []daterange.DateRange{
		daterange.MustParse("2024-06-01", "2024-06-08"),
		daterange.MustParse("2024-06-20", "2024-07-01"),
	}, got)
}
