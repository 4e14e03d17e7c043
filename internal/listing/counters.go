package listing

import (
	"omahashows/internal/venue"
)

// JustAddedCount counts upcoming events first seen within the last week,
// ignoring the venue filter.
func JustAddedCount(events []EventEntry, c Clock) int {
	n := 0
	for _, e := range events {
		if IsUpcoming(e.Date, c.Today) && IsJustAdded(e.Event, c.Now) {
			n++
		}
	}
	return n
}

// ActiveFilterCount counts filter axes that deviate from the mode's
// default. Search text is not an axis.
func ActiveFilterCount(fs FilterState, known []string) int {
	n := 0
	if !fs.Venues.Unrestricted(known) {
		n++
	}
	switch fs.Mode {
	case ModeHistory:
		if fs.HistoryTime != DefaultHistoryTimeFilter {
			n++
		}
	case ModeEvents, ModeCalendar, ModeDashboard:
		if fs.Time != "" && fs.Time != TimeAll {
			n++
		}
	}
	return n
}

// VenueCount is one chip of the venue filter UI.
type VenueCount struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Count   int    `json:"count"`
	Enabled bool   `json:"enabled"`
}

// VenueCounts tallies items per registered venue, "other" included, before
// the venue filter is applied. keys yields each item's venue key.
func VenueCounts(reg *venue.Registry, set VenueSet, keys []string) []VenueCount {
	if reg == nil {
		return nil
	}
	tally := make(map[string]int, reg.Len())
	for _, k := range keys {
		if !reg.Known(k) {
			k = venue.OtherID
		}
		tally[k]++
	}
	known := reg.IDs()
	out := make([]VenueCount, 0, reg.Len())
	for _, v := range reg.Venues() {
		out = append(out, VenueCount{
			ID:      v.ID,
			Name:    v.Name,
			Color:   v.Color,
			Count:   tally[v.ID],
			Enabled: set.Allows(v.ID, known),
		})
	}
	return out
}

func eventKeys(events []EventEntry) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.VenueKey
	}
	return out
}

func showKeys(shows []ShowEntry) []string {
	out := make([]string, len(shows))
	for i, s := range shows {
		out[i] = s.VenueKey
	}
	return out
}
