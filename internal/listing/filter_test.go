package listing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omahashows/internal/model"
	"omahashows/internal/venue"
)

func TestScenarioA_UpcomingStableAscending(t *testing.T) {
	snap := snapshotOf(t, []model.Event{
		ev("b", "2024-01-02", "theslowdown"),
		ev("a1", "2024-01-01", "theslowdown"),
		ev("a2", "2024-01-01", "admiral"),
	}, nil)

	got := FilterEvents(snap.Events, DefaultFilterState(), snap.KnownVenues(), clockAt("2024-01-01"))

	assert.Equal(t, []string{"a1", "a2", "b"}, ids(got))
}

func TestScenarioB_History30Days(t *testing.T) {
	shows := []model.HistoricalShow{
		{Date: "2024-06-15", Title: "today", Venue: "The Slowdown"},
		{Date: "2024-06-14", Title: "yesterday", Venue: "The Slowdown"},
		{Date: "2024-05-16", Title: "lower bound", Venue: "The Slowdown"},
		{Date: "2024-05-15", Title: "too old", Venue: "The Slowdown"},
	}
	snap := snapshotOf(t, nil, shows)
	fs := DefaultFilterState()
	fs.Mode = ModeHistory
	fs.HistoryTime = History30Days

	got := FilterHistory(snap.Shows, fs, snap.KnownVenues(), clockAt("2024-06-15"))

	assert.Equal(t, []string{"yesterday", "lower bound"}, titles(got))
}

func TestScenarioC_SearchMatchesTitleAndOpeners(t *testing.T) {
	jazzNight := ev("1", "2024-02-01", "theslowdown")
	jazzNight.Title = "Jazz Night"
	opener := ev("2", "2024-02-01", "theslowdown")
	opener.Title = "Headliner"
	opener.SupportingArtists = []string{"Jazz Trio"}
	rock := ev("3", "2024-02-01", "theslowdown")
	rock.Title = "Rock Show"
	rock.Venue = "Reverb Lounge"

	snap := snapshotOf(t, []model.Event{jazzNight, opener, rock}, nil)
	fs := DefaultFilterState()
	fs.Query = "  jazz "

	got := FilterEvents(snap.Events, fs, snap.KnownVenues(), clockAt("2024-01-01"))
	assert.Equal(t, []string{"1", "2"}, ids(got))

	fs.Query = "reverb"
	got = FilterEvents(snap.Events, fs, snap.KnownVenues(), clockAt("2024-01-01"))
	assert.Equal(t, []string{"3"}, ids(got), "venue display name is searchable")
}

func TestScenarioD_EmptyVenueSetEqualsAll(t *testing.T) {
	snap := snapshotOf(t, []model.Event{
		ev("1", "2024-03-01", "theslowdown"),
		ev("2", "2024-03-02", "admiral"),
		ev("3", "2024-03-03", "unknownplace"),
	}, nil)
	known := snap.KnownVenues()
	c := clockAt("2024-03-01")

	empty := DefaultFilterState()
	all := DefaultFilterState()
	all.Venues = NewVenueSet(known...)

	assert.Equal(t,
		ids(FilterEvents(snap.Events, empty, known, c)),
		ids(FilterEvents(snap.Events, all, known, c)))
	assert.Len(t, FilterEvents(snap.Events, empty, known, c), 3)
}

func TestScenarioE_RevealPaging(t *testing.T) {
	r := NewReveal(15, 40)
	assert.Equal(t, 15, r.Count)

	require.True(t, r.LoadMore())
	assert.Equal(t, 30, r.Count)

	require.True(t, r.LoadMore())
	assert.Equal(t, 40, r.Count)
	assert.True(t, r.FullyRevealed())

	assert.False(t, r.LoadMore())
	assert.Equal(t, 40, r.Count)
}

func TestUnknownSourceFilterableAsOther(t *testing.T) {
	snap := snapshotOf(t, []model.Event{
		ev("known", "2024-03-01", "theslowdown"),
		ev("stray", "2024-03-01", "sokol"),
	}, nil)
	fs := DefaultFilterState()
	fs.Venues = NewVenueSet(venue.OtherID)

	got := FilterEvents(snap.Events, fs, snap.KnownVenues(), clockAt("2024-03-01"))
	assert.Equal(t, []string{"stray"}, ids(got))
}

func TestUnmappedHistoryOnlyMatchesUnrestricted(t *testing.T) {
	snap := snapshotOf(t, nil, []model.HistoricalShow{
		{Date: "2024-05-01", Title: "mapped", Venue: "Slowdown"},
		{Date: "2024-05-01", Title: "unmapped", Venue: "Sokol Auditorium"},
	})
	require.Equal(t, []string{"Sokol Auditorium"}, snap.Unmapped)

	fs := DefaultFilterState()
	fs.HistoryTime = HistoryAll
	c := clockAt("2024-06-01")

	assert.Len(t, FilterHistory(snap.Shows, fs, snap.KnownVenues(), c), 2)

	fs.Venues = NewVenueSet("theslowdown", venue.OtherID)
	assert.Equal(t, []string{"mapped"}, titles(FilterHistory(snap.Shows, fs, snap.KnownVenues(), c)))
}

func TestEventTimeWindows(t *testing.T) {
	today := "2024-03-10"
	c := clockAt(today)
	recent := ev("recent", "2024-04-01", "admiral")
	recent.AddedAt = c.Now.Add(-6 * 24 * time.Hour).Format(time.RFC3339)
	stale := ev("stale", "2024-04-01", "admiral")
	stale.AddedAt = c.Now.Add(-7 * 24 * time.Hour).Format(time.RFC3339)
	garbled := ev("garbled", "2024-04-01", "admiral")
	garbled.AddedAt = "last tuesday"

	snap := snapshotOf(t, []model.Event{
		ev("today", today, "admiral"),
		ev("week-end", "2024-03-17", "admiral"),
		ev("after-week", "2024-03-18", "admiral"),
		recent, stale, garbled,
	}, nil)

	tests := []struct {
		filter TimeFilter
		want   []string
	}{
		{TimeAll, []string{"today", "week-end", "after-week", "recent", "stale", "garbled"}},
		{TimeToday, []string{"today"}},
		{TimeWeek, []string{"today", "week-end"}},
		{TimeJustAdded, []string{"recent"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			fs := DefaultFilterState()
			fs.Time = tt.filter
			assert.Equal(t, tt.want, ids(FilterEvents(snap.Events, fs, snap.KnownVenues(), c)))
		})
	}
}

func TestMissingTimeNeverExcludes(t *testing.T) {
	e := ev("tba", "2024-03-10", "admiral")
	e.Time = ""
	for _, f := range TimeFilters() {
		if f == TimeJustAdded {
			continue
		}
		assert.True(t, f.Includes(e, clockAt("2024-03-10")), f)
	}
}

func TestHistoryLowerBounds(t *testing.T) {
	tests := []struct {
		filter HistoryTimeFilter
		want   string
	}{
		{HistoryAll, ""},
		{History30Days, "2024-05-16"},
		{History90Days, "2024-03-17"},
		{HistoryYear, "2023-06-15"},
		{HistoryThisYear, "2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.LowerBound("2024-06-15"))
			assert.False(t, tt.filter.Includes("2024-06-15", "2024-06-15"))
		})
	}
}

func TestDirectionPartitionsEvents(t *testing.T) {
	var events []model.Event
	for i := 0; i < 30; i++ {
		events = append(events, ev(fmt.Sprint(i), fmt.Sprintf("2024-01-%02d", i+1), "admiral"))
	}
	snap := snapshotOf(t, events, nil)
	known := snap.KnownVenues()

	for _, today := range []string{"2023-12-31", "2024-01-01", "2024-01-15", "2024-01-30", "2024-02-01"} {
		c := clockAt(today)
		up := DefaultFilterState()
		past := DefaultFilterState()
		past.Direction = DirectionPast

		u := ids(FilterEvents(snap.Events, up, known, c))
		p := ids(FilterEvents(snap.Events, past, known, c))

		assert.Len(t, append(u, p...), len(events), today)
		for _, id := range u {
			assert.NotContains(t, p, id, today)
		}
	}
}

func TestTodayIsUpcomingNeverPast(t *testing.T) {
	assert.True(t, IsUpcoming("2024-06-15", "2024-06-15"))
	assert.False(t, IsPast("2024-06-15", "2024-06-15"))
	for _, f := range HistoryTimeFilters() {
		assert.False(t, f.Includes("2024-06-15", "2024-06-15"), f)
	}
}

func TestSortStableBothDirections(t *testing.T) {
	snap := snapshotOf(t, []model.Event{
		ev("x1", "2024-01-05", "admiral"),
		ev("y1", "2024-01-03", "admiral"),
		ev("x2", "2024-01-05", "admiral"),
		ev("y2", "2024-01-03", "admiral"),
		ev("x3", "2024-01-05", "admiral"),
	}, nil)
	known := snap.KnownVenues()

	up := FilterEvents(snap.Events, DefaultFilterState(), known, clockAt("2024-01-01"))
	assert.Equal(t, []string{"y1", "y2", "x1", "x2", "x3"}, ids(up))

	past := DefaultFilterState()
	past.Direction = DirectionPast
	down := FilterEvents(snap.Events, past, known, clockAt("2024-02-01"))
	assert.Equal(t, []string{"x1", "x2", "x3", "y1", "y2"}, ids(down))
}

func TestFilterIsIdempotentAndPure(t *testing.T) {
	snap := snapshotOf(t, []model.Event{
		ev("3", "2024-01-09", "admiral"),
		ev("1", "2024-01-02", "theslowdown"),
		ev("2", "2024-01-05", "admiral"),
	}, nil)
	before := ids(snap.Events)
	fs := DefaultFilterState()
	fs.Venues = NewVenueSet("admiral")
	fs.Query = "show"
	c := clockAt("2024-01-01")

	once := FilterEvents(snap.Events, fs, snap.KnownVenues(), c)
	twice := FilterEvents(once, fs, snap.KnownVenues(), c)

	assert.Equal(t, ids(once), ids(twice))
	assert.Equal(t, before, ids(snap.Events), "input order untouched")
}

func TestCalendarIgnoresTimeAndSearch(t *testing.T) {
	snap := snapshotOf(t, []model.Event{
		ev("past", "2024-01-01", "admiral"),
		ev("a", "2024-02-01", "admiral"),
		ev("b", "2024-02-20", "theslowdown"),
	}, nil)

	got := CalendarEvents(snap.Events, NewVenueSet("admiral"), snap.KnownVenues(), clockAt("2024-01-15"))
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestHistoryFoldsPastEvents(t *testing.T) {
	archived := ev("gone", "2024-05-20", "theslowdown")
	archived.Title = "Already Archived"
	archived.Venue = "The Slowdown"
	fresh := ev("fresh", "2024-05-21", "admiral")
	upcoming := ev("soon", "2024-06-20", "admiral")

	snap := snapshotOf(t, []model.Event{archived, fresh, upcoming}, []model.HistoricalShow{
		{Date: "2024-05-20", Title: "Already Archived", Venue: "The Slowdown"},
	})

	items := snap.historyItems(clockAt("2024-06-01"))
	assert.Equal(t, []string{"Already Archived", "Show fresh"}, titles(items))
	assert.True(t, items[1].Archived)
	assert.Equal(t, "admiral", items[1].VenueKey)
}
