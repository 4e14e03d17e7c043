package listing

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"omahashows/internal/dates"
)

// GridCells is the fixed size of a month grid: six weeks.
const GridCells = 42

// DayBucket holds the events of one date in insertion order.
type DayBucket struct {
	Date   string       `json:"date"`
	Events []EventEntry `json:"events"`
}

// CalendarBuckets groups events by exact date. Buckets are ordered by date;
// events inside a bucket keep their input order.
type CalendarBuckets struct {
	Days  []DayBucket `json:"days"`
	index map[string]int
}

func BucketByDay(events []EventEntry) CalendarBuckets {
	b := CalendarBuckets{index: make(map[string]int)}
	for _, e := range events {
		i, ok := b.index[e.Date]
		if !ok {
			i = len(b.Days)
			b.index[e.Date] = i
			b.Days = append(b.Days, DayBucket{Date: e.Date})
		}
		b.Days[i].Events = append(b.Days[i].Events, e)
	}
	slices.SortStableFunc(b.Days, func(x, y DayBucket) int {
		switch {
		case x.Date < y.Date:
			return -1
		case x.Date > y.Date:
			return 1
		}
		return 0
	})
	for i, d := range b.Days {
		b.index[d.Date] = i
	}
	return b
}

func (b CalendarBuckets) Events(date string) []EventEntry {
	if i, ok := b.index[date]; ok {
		return b.Days[i].Events
	}
	return nil
}

func (b CalendarBuckets) Count(date string) int {
	return len(b.Events(date))
}

// Dates returns the sorted distinct dates that have at least one event.
func (b CalendarBuckets) Dates() []string {
	out := make([]string, len(b.Days))
	for i, d := range b.Days {
		out[i] = d.Date
	}
	return out
}

// Neighbors returns the nearest earlier and later dates with events, skipping
// empty days. Either is "" at the ends. date itself need not have events.
func (b CalendarBuckets) Neighbors(date string) (prev, next string) {
	ds := b.Dates()
	i, found := slices.BinarySearch(ds, date)
	if i > 0 {
		prev = ds[i-1]
	}
	if found {
		i++
	}
	if i < len(ds) {
		next = ds[i]
	}
	return prev, next
}

// Cell is one square of the month grid.
type Cell struct {
	Date string `json:"date,omitempty"`
	Day  int    `json:"day,omitempty"`
	// InMonth is false for leading/trailing blanks.
	InMonth    bool `json:"inMonth"`
	Count      int  `json:"count"`
	Selectable bool `json:"selectable"`
	Today      bool `json:"today"`
	Selected   bool `json:"selected"`
}

type MonthGrid struct {
	Month    string   `json:"month"` // "2024-06"
	Label    string   `json:"label"` // "June 2024"
	Weekdays []string `json:"weekdays"`
	Cells    []Cell   `json:"cells"`
	Prev     string   `json:"prev"`
	Next     string   `json:"next"`
}

// BuildMonthGrid lays out month ("YYYY-MM") as 42 cells starting on
// weekStart. Days outside the month are blank; days without events are
// inert. An unparseable month falls back to today's month.
func BuildMonthGrid(month string, weekStart time.Weekday, b CalendarBuckets, today, selected string) MonthGrid {
	first, err := time.Parse(dates.MonthLayout, month)
	if err != nil {
		first, _ = time.Parse(dates.MonthLayout, dates.MonthKey(today))
	}
	month = first.Format(dates.MonthLayout)

	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	start := first.AddDate(0, 0, -lead)

	g := MonthGrid{
		Month:    month,
		Label:    dates.MonthLabel(month),
		Weekdays: weekdayHeaders(weekStart),
		Cells:    make([]Cell, 0, GridCells),
		Prev:     first.AddDate(0, -1, 0).Format(dates.MonthLayout),
		Next:     first.AddDate(0, 1, 0).Format(dates.MonthLayout),
	}

	for _, d := range gridDays(start) {
		if d.Month() != first.Month() || d.Year() != first.Year() {
			g.Cells = append(g.Cells, Cell{})
			continue
		}
		date := d.Format(dates.Layout)
		n := b.Count(date)
		g.Cells = append(g.Cells, Cell{
			Date:       date,
			Day:        d.Day(),
			InMonth:    true,
			Count:      n,
			Selectable: n > 0,
			Today:      date == today,
			Selected:   date == selected && n > 0,
		})
	}
	return g
}

// gridDays enumerates GridCells consecutive days from start, keeping the
// wall-clock time across DST changes.
func gridDays(start time.Time) []time.Time {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Count:   GridCells,
	})
	if err != nil {
		panic(fmt.Sprintf("listing: daily grid rule: %v", err))
	}
	return r.All()
}

func weekdayHeaders(weekStart time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return out
}

// DaySelection is the detail panel for a selected calendar date.
type DaySelection struct {
	Date   string       `json:"date"`
	Label  string       `json:"label"`
	Events []EventEntry `json:"events"`
	Prev   string       `json:"prev,omitempty"`
	Next   string       `json:"next,omitempty"`
}

// Select returns the detail for date, or nil when the date has no events.
func (b CalendarBuckets) Select(date string) *DaySelection {
	evs := b.Events(date)
	if len(evs) == 0 {
		return nil
	}
	prev, next := b.Neighbors(date)
	return &DaySelection{
		Date:   date,
		Label:  dates.DayLabel(date),
		Events: evs,
		Prev:   prev,
		Next:   next,
	}
}
