package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"omahashows/internal/dates"
	"omahashows/internal/model"
)

// JustAddedWindow is how recently an event must have been first seen to
// count as "just added".
const JustAddedWindow = 7 * 24 * time.Hour

// item is what the generic filter and sort helpers need from an entry.
type item interface {
	day() string
	venueKey() string
	venueMatchable() bool
	searchText() []string
}

func (e EventEntry) day() string          { return e.Date }
func (e EventEntry) venueKey() string     { return e.VenueKey }
func (e EventEntry) venueMatchable() bool { return true }
func (e EventEntry) searchText() []string {
	return append([]string{e.Title, e.Venue}, e.SupportingArtists...)
}

func (s ShowEntry) day() string          { return s.Date }
func (s ShowEntry) venueKey() string     { return s.VenueKey }
func (s ShowEntry) venueMatchable() bool { return s.Mapped }
func (s ShowEntry) searchText() []string {
	return append([]string{s.Title, s.Venue}, s.SupportingArtists...)
}

// IsUpcoming: today's shows are upcoming.
func IsUpcoming(day, today string) bool { return day >= today }

// IsPast: today's shows are never past.
func IsPast(day, today string) bool { return day < today }

// Includes applies the direction predicate to a day.
func (d Direction) Includes(day, today string) bool {
	switch d {
	case DirectionUpcoming:
		return IsUpcoming(day, today)
	case DirectionPast:
		return IsPast(day, today)
	default:
		return true
	}
}

// IsJustAdded reports whether the event was first seen less than seven days
// before now. Missing or unparseable addedAt never matches.
func IsJustAdded(e model.Event, now time.Time) bool {
	added, ok := dates.ParseTimestamp(e.AddedAt)
	if !ok {
		return false
	}
	return now.Sub(added) < JustAddedWindow
}

// Includes applies the events-mode time window.
func (f TimeFilter) Includes(e model.Event, c Clock) bool {
	switch f {
	case TimeToday:
		return e.Date == c.Today
	case TimeWeek:
		return e.Date >= c.Today && e.Date <= dates.AddDays(c.Today, 7)
	case TimeJustAdded:
		return IsJustAdded(e, c.Now)
	default:
		return true
	}
}

// LowerBound returns the inclusive first day of the window, or "" when the
// window has no lower bound.
func (f HistoryTimeFilter) LowerBound(today string) string {
	switch f {
	case History30Days:
		return dates.AddDays(today, -30)
	case History90Days:
		return dates.AddDays(today, -90)
	case HistoryYear:
		return dates.AddYears(today, -1)
	case HistoryThisYear:
		return dates.StartOfYear(today)
	default:
		return ""
	}
}

// Includes applies the history window: lower bound inclusive, today
// exclusive.
func (f HistoryTimeFilter) Includes(day, today string) bool {
	if !IsPast(day, today) {
		return false
	}
	lower := f.LowerBound(today)
	return lower == "" || day >= lower
}

// NormalizeQuery trims and lowercases search text.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// MatchesQuery is a case-insensitive substring test over the given fields.
// An empty query matches everything. q must already be normalized.
func MatchesQuery(q string, fields ...string) bool {
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func venueAllows[T item](set VenueSet, known []string, it T) bool {
	if set.Unrestricted(known) {
		return true
	}
	return it.venueMatchable() && set.Contains(it.venueKey())
}

// filterItems returns a fresh slice; the input is never touched.
func filterItems[T item](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// sortByDay stable-sorts in place, ascending or descending by day.
func sortByDay[T item](items []T, descending bool) {
	slices.SortStableFunc(items, func(a, b T) int {
		c := cmp.Compare(a.day(), b.day())
		if descending {
			return -c
		}
		return c
	})
}

// FilterEvents runs the events-mode pipeline: direction, venue, time window
// and search, then a stable date sort (descending when looking at the past).
func FilterEvents(events []EventEntry, fs FilterState, known []string, c Clock) []EventEntry {
	q := NormalizeQuery(fs.Query)
	out := filterItems(events, func(e EventEntry) bool {
		return fs.Direction.Includes(e.Date, c.Today) &&
			venueAllows(fs.Venues, known, e) &&
			fs.Time.Includes(e.Event, c) &&
			MatchesQuery(q, e.searchText()...)
	})
	sortByDay(out, fs.Direction == DirectionPast)
	return out
}

// FilterHistory runs the history-mode pipeline: history window (always
// before today), venue and search, then a stable descending sort.
func FilterHistory(shows []ShowEntry, fs FilterState, known []string, c Clock) []ShowEntry {
	q := NormalizeQuery(fs.Query)
	out := filterItems(shows, func(s ShowEntry) bool {
		return fs.HistoryTime.Includes(s.Date, c.Today) &&
			venueAllows(fs.Venues, known, s) &&
			MatchesQuery(q, s.searchText()...)
	})
	sortByDay(out, true)
	return out
}

// CalendarEvents is the calendar input: upcoming and venue-filtered only.
// Time window and search are deliberately not applied.
func CalendarEvents(events []EventEntry, venues VenueSet, known []string, c Clock) []EventEntry {
	out := filterItems(events, func(e EventEntry) bool {
		return IsUpcoming(e.Date, c.Today) && venueAllows(venues, known, e)
	})
	sortByDay(out, false)
	return out
}
