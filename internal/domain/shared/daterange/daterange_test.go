package daterange

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewRejectsEmptyAndInvertedRanges(t *testing.T) {
	_, err := New(date("2024-06-05"), date("2024-06-05"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(date("2024-06-05"), date("2024-06-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, date("2024-06-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNewKeepsCalendarDates(t *testing.T) {
	dr, err := New(time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC), time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, date("2024-06-01"), dr.CheckIn)
	assert.Equal(t, date("2024-06-04"), dr.CheckOut)
	assert.Equal(t, 3, dr.Nights())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("06/01/2024", "2024-06-05")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestOverlapsIsSymmetric(t *testing.T) {
	ranges := []DateRange{
		MustParse("2024-06-01", "2024-06-05"),
		MustParse("2024-06-05", "2024-06-08"),
		MustParse("2024-06-03", "2024-06-06"),
		MustParse("2024-05-20", "2024-07-01"),
		MustParse("2024-06-04", "2024-06-05"),
		MustParse("2024-08-01", "2024-08-02"),
	}
	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)
		}
	}
}

func TestBackToBackRangesDoNotOverlap(t *testing.T) {
	d1 := date("2024-06-01")
	for gap := 1; gap <= 10; gap++ {
		d2 := d1.AddDate(0, 0, gap)
		d3 := d2.AddDate(0, 0, gap)
		a := DateRange{CheckIn: d1, CheckOut: d2}
		b := DateRange{CheckIn: d2, CheckOut: d3}
		assert.False(t, a.Overlaps(b))
		assert.True(t, a.Adjacent(b))
	}
}

func TestOverlapCases(t *testing.T) {
	booked := MustParse("2024-06-01", "2024-06-05")
	assert.True(t, booked.Overlaps(MustParse("2024-06-03", "2024-06-06")))
	assert.True(t, booked.Overlaps(MustParse("2024-05-30", "2024-06-02")))
	assert.True(t, booked.Overlaps(MustParse("2024-06-02", "2024-06-03")))
	assert.False(t, booked.Overlaps(MustParse("2024-05-28", "2024-06-01")))
}

func TestMergeAndClip(t *testing.T) {
	merged, ok := MustParse("2024-06-01", "2024-06-05").Merge(MustParse("2024-06-05", "2024-06-08"))
	require.True(t, ok)
	assert.Equal(t, MustParse("2024-06-01", "2024-06-08"), merged)

	_, ok = MustParse("2024-06-01", "2024-06-05").Merge(MustParse("2024-06-06", "2024-06-08"))
	assert.False(t, ok)

	clipped, ok := MustParse("2024-05-28", "2024-06-03").Clip(MustParse("2024-06-01", "2024-07-01"))
	require.True(t, ok)
	assert.Equal(t, MustParse("2024-06-01", "2024-06-03"), clipped)
}

func TestJSONRoundTripUsesDateLayout(t *testing.T) {
	raw, err := json.Marshal(MustParse("2024-06-01", "2024-06-05"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"check_in":"2024-06-01","check_out":"2024-06-05"}`, string(raw))

	var dr DateRange
	require.NoError(t, json.Unmarshal(raw, &dr))
	assert.Equal(t, 4, dr.Nights())

	assert.Error(t, json.Unmarshal([]byte(`{"check_in":"2024-06-05","check_out":"2024-06-01"}`), &dr))
}
