// Package dates works with the calendar-day strings ("YYYY-MM-DD") used by
// the feeds. Day strings compare correctly as plain strings, so most of the
// listing code never parses them; the helpers here do the calendar
// arithmetic that cannot be done lexically.
package dates

import (
	"strings"
	"time"
)

const (
	Layout      = "2006-01-02"
	MonthLayout = "2006-01"
)

// Today formats now as a day string in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(Layout)
}

// Parse returns the UTC midnight of a day string.
func Parse(day string) (time.Time, bool) {
	t, err := time.Parse(Layout, strings.TrimSpace(day))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func Valid(day string) bool {
	_, ok := Parse(day)
	return ok
}

// AddDays shifts a day string by whole calendar days. Unparseable input is
// returned unchanged.
func AddDays(day string, n int) string {
	t, ok := Parse(day)
	if !ok {
		return day
	}
	return t.AddDate(0, 0, n).Format(Layout)
}

// AddYears shifts a day string by whole calendar years.
func AddYears(day string, n int) string {
	t, ok := Parse(day)
	if !ok {
		return day
	}
	return t.AddDate(n, 0, 0).Format(Layout)
}

// StartOfYear returns January 1 of the day's year.
func StartOfYear(day string) string {
	t, ok := Parse(day)
	if !ok {
		return day
	}
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format(Layout)
}

// MonthKey returns "YYYY-MM" for a day string, or "" if it cannot be parsed.
func MonthKey(day string) string {
	t, ok := Parse(day)
	if !ok {
		return ""
	}
	return t.Format(MonthLayout)
}

// MonthLabel renders "2024-06" as "June 2024".
func MonthLabel(key string) string {
	t, err := time.Parse(MonthLayout, key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}

// DayLabel renders "2024-06-01" as "Saturday, June 1".
func DayLabel(day string) string {
	t, ok := Parse(day)
	if !ok {
		return day
	}
	return t.Format("Monday, January 2")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts the ISO timestamps written by the scraper. Values
// without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
