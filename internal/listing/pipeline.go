package listing

import (
	"fmt"
	"time"

	"omahashows/internal/dates"
)

// Request carries everything one recomputation needs besides the data.
type Request struct {
	Filter FilterState
	Clock  Clock

	// Revealed restores a previous reveal count. Zero means the first page.
	Revealed        int
	EventsPageSize  int
	HistoryPageSize int

	// Calendar presentation state.
	Month     string // "YYYY-MM"; empty means the selected date's month, else today's
	Selected  string // "YYYY-MM-DD"
	WeekStart time.Weekday

	// Collapsed overrides the default collapse state of history month
	// ("YYYY-MM") and day ("YYYY-MM-DD") groups.
	Collapsed map[string]bool
}

type CalendarView struct {
	Grid     MonthGrid     `json:"grid"`
	Dates    []string      `json:"dates"`
	Selected *DaySelection `json:"selected,omitempty"`
	Total    int           `json:"total"`
}

// View is the read-only result of one pass. Only the fields relevant to
// Mode are populated.
type View struct {
	Mode  Mode   `json:"-"`
	Today string `json:"today"`

	Events    []EventEntry   `json:"events,omitempty"`
	History   []HistoryMonth `json:"history,omitempty"`
	Calendar  *CalendarView  `json:"calendar,omitempty"`
	Dashboard *Dashboard     `json:"dashboard,omitempty"`
	Reveal    Reveal         `json:"reveal"`

	Venues        []VenueCount `json:"venues"`
	JustAdded     int          `json:"justAdded"`
	ActiveFilters int          `json:"activeFilters"`
	Empty         string       `json:"empty,omitempty"`
	Unmapped      []string     `json:"unmappedVenues,omitempty"`
}

// Compute is the single dispatch point from filter state to view data.
func Compute(s Snapshot, req Request) View {
	fs := req.Filter
	c := req.Clock
	if c.Today == "" {
		c = NewClock(time.Now(), time.Local)
	}
	known := s.KnownVenues()

	v := View{
		Mode:          fs.Mode,
		Today:         c.Today,
		JustAdded:     JustAddedCount(s.Events, c),
		ActiveFilters: ActiveFilterCount(fs, known),
		Unmapped:      s.Unmapped,
	}

	switch fs.Mode {
	case ModeEvents:
		base := filterItems(s.Events, func(e EventEntry) bool {
			return fs.Direction.Includes(e.Date, c.Today)
		})
		filtered := FilterEvents(s.Events, fs, known, c)

		v.Reveal = NewReveal(orDefault(req.EventsPageSize, DefaultEventsPageSize), len(filtered))
		v.Reveal.ShowAtLeast(req.Revealed)
		v.Events = Window(filtered, v.Reveal)
		v.Venues = VenueCounts(s.Venues, fs.Venues, eventKeys(base))
		v.Empty = emptyMessage(fs, len(filtered), len(base))

	case ModeHistory:
		items := s.historyItems(c)
		base := filterItems(items, func(sh ShowEntry) bool {
			return IsPast(sh.Date, c.Today)
		})
		filtered := FilterHistory(items, fs, known, c)

		v.Reveal = NewReveal(orDefault(req.HistoryPageSize, DefaultHistoryPageSize), len(filtered))
		v.Reveal.ShowAtLeast(req.Revealed)
		v.History = GroupHistory(filtered, v.Reveal.Count, c, req.Collapsed)
		v.Venues = VenueCounts(s.Venues, fs.Venues, showKeys(base))
		v.Empty = emptyMessage(fs, len(filtered), len(base))

	case ModeCalendar:
		upcoming := filterItems(s.Events, func(e EventEntry) bool {
			return IsUpcoming(e.Date, c.Today)
		})
		events := CalendarEvents(s.Events, fs.Venues, known, c)
		buckets := BucketByDay(events)

		month := req.Month
		if month == "" && req.Selected != "" {
			month = dates.MonthKey(req.Selected)
		}
		if month == "" {
			month = dates.MonthKey(c.Today)
		}
		v.Calendar = &CalendarView{
			Grid:     BuildMonthGrid(month, req.WeekStart, buckets, c.Today, req.Selected),
			Dates:    buckets.Dates(),
			Selected: buckets.Select(req.Selected),
			Total:    len(events),
		}
		v.Reveal = Reveal{PageSize: len(events), Count: len(events), Total: len(events)}
		v.Venues = VenueCounts(s.Venues, fs.Venues, eventKeys(upcoming))
		v.Empty = emptyMessage(fs, len(events), len(upcoming))

	case ModeDashboard:
		d := BuildDashboard(s, c.Now)
		v.Dashboard = &d
		v.Empty = emptyMessage(fs, len(d.Sources), len(d.Sources))

	default:
		panic(fmt.Sprintf("listing: unhandled mode %v", fs.Mode))
	}
	return v
}

func orDefault(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}
