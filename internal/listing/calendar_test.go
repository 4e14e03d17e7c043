package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omahashows/internal/model"
)

func TestBucketByDayRoundTrip(t *testing.T) {
	snap := snapshotOf(t, []model.Event{
		ev("c", "2024-06-03", "admiral"),
		ev("a", "2024-06-01", "admiral"),
		ev("b", "2024-06-03", "theslowdown"),
		ev("x", "2024-06-05", "reverblounge"),
		ev("old", "2024-05-01", "admiral"),
	}, nil)
	c := clockAt("2024-06-01")
	venues := NewVenueSet("admiral", "theslowdown")

	input := CalendarEvents(snap.Events, venues, snap.KnownVenues(), c)
	b := BucketByDay(input)

	var union []string
	for _, d := range b.Days {
		union = append(union, ids(d.Events)...)
	}
	assert.ElementsMatch(t, ids(input), union)
	assert.Len(t, union, len(input))

	assert.Equal(t, []string{"2024-06-01", "2024-06-03"}, b.Dates())
	assert.Equal(t, []string{"c", "b"}, ids(b.Events("2024-06-03")), "insertion order kept")
	assert.Equal(t, 0, b.Count("2024-06-02"))
}

func TestNeighborsSkipEmptyDays(t *testing.T) {
	b := BucketByDay([]EventEntry{
		{Event: ev("1", "2024-06-01", "admiral")},
		{Event: ev("2", "2024-06-09", "admiral")},
		{Event: ev("3", "2024-07-02", "admiral")},
	})

	tests := []struct {
		date, prev, next string
	}{
		{"2024-06-01", "", "2024-06-09"},
		{"2024-06-09", "2024-06-01", "2024-07-02"},
		{"2024-07-02", "2024-06-09", ""},
		{"2024-06-05", "2024-06-01", "2024-06-09"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			prev, next := b.Neighbors(tt.date)
			assert.Equal(t, tt.prev, prev)
			assert.Equal(t, tt.next, next)
		})
	}
}

func TestBuildMonthGrid(t *testing.T) {
	b := BucketByDay([]EventEntry{
		{Event: ev("1", "2024-06-01", "admiral")},
		{Event: ev("2", "2024-06-01", "admiral")},
		{Event: ev("3", "2024-06-20", "admiral")},
	})

	g := BuildMonthGrid("2024-06", time.Sunday, b, "2024-06-10", "2024-06-20")

	require.Len(t, g.Cells, GridCells)
	assert.Equal(t, "June 2024", g.Label)
	assert.Equal(t, "2024-05", g.Prev)
	assert.Equal(t, "2024-07", g.Next)
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, g.Weekdays)

	// June 1 2024 is a Saturday: six leading blanks.
	for i := 0; i < 6; i++ {
		assert.False(t, g.Cells[i].InMonth, i)
	}
	first := g.Cells[6]
	assert.Equal(t, "2024-06-01", first.Date)
	assert.Equal(t, 2, first.Count)
	assert.True(t, first.Selectable)

	inert := g.Cells[7]
	assert.Equal(t, "2024-06-02", inert.Date)
	assert.False(t, inert.Selectable)

	assert.True(t, g.Cells[6+9].Today)
	assert.True(t, g.Cells[6+19].Selected)

	inMonth := 0
	for _, c := range g.Cells {
		if c.InMonth {
			inMonth++
		}
	}
	assert.Equal(t, 30, inMonth)
}

func TestBuildMonthGridMondayStart(t *testing.T) {
	g := BuildMonthGrid("2024-06", time.Monday, CalendarBuckets{}, "2024-06-10", "")
	assert.Equal(t, "Mon", g.Weekdays[0])
	// Saturday is the sixth column when weeks start on Monday.
	assert.Equal(t, "2024-06-01", g.Cells[5].Date)
}

func TestBuildMonthGridBadMonthFallsBackToToday(t *testing.T) {
	g := BuildMonthGrid("not-a-month", time.Sunday, CalendarBuckets{}, "2024-02-10", "")
	assert.Equal(t, "2024-02", g.Month)
}

func TestSelectInertDate(t *testing.T) {
	b := BucketByDay([]EventEntry{{Event: ev("1", "2024-06-01", "admiral")}})
	assert.Nil(t, b.Select("2024-06-02"))

	sel := b.Select("2024-06-01")
	require.NotNil(t, sel)
	assert.Equal(t, "Saturday, June 1", sel.Label)
	assert.Empty(t, sel.Prev)
	assert.Empty(t, sel.Next)
}

func TestGridDaysAcrossDST(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	start := time.Date(2024, 3, 3, 0, 0, 0, 0, chicago)
	days := gridDays(start)
	require.Len(t, days, GridCells)
	for i, d := range days {
		want := start.AddDate(0, 0, i)
		assert.Equal(t, want.Format("2006-01-02"), d.Format("2006-01-02"))
		assert.Equal(t, 0, d.Hour(), "midnight kept on %s", d.Format("2006-01-02"))
	}
}
