package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayUsesLocation(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	// 03:00 UTC on June 2 is still June 1 in Omaha.
	now := time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-01", Today(now, chicago))
	assert.Equal(t, "2024-06-02", Today(now, time.UTC))
}

func TestCalendarArithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"add week across month", AddDays("2024-06-28", 7), "2024-07-05"},
		{"minus 30 days", AddDays("2024-03-01", -30), "2024-01-31"},
		{"leap year back one year", AddYears("2024-02-29", -1), "2023-03-01"},
		{"start of year", StartOfYear("2024-06-15"), "2024-01-01"},
		{"garbage unchanged", AddDays("soon", 3), "soon"},
		{"month key", MonthKey("2024-06-15"), "2024-06"},
		{"month label", MonthLabel("2024-06"), "June 2024"},
		{"day label", DayLabel("2024-06-01"), "Saturday, June 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-06-01T12:00:00Z", true},
		{"2024-06-01T12:00:00.123456+00:00", true},
		{"2024-06-01T12:00:00.123456", true},
		{"", false},
		{"yesterday", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
