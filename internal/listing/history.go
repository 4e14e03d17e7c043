package listing

import (
	"omahashows/internal/dates"
)

// RecentWindowDays keeps a month expanded by default when it holds a show
// this recent.
const RecentWindowDays = 7

type HistoryDay struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	// Count is the day's true size in the filtered set.
	Count     int         `json:"count"`
	Collapsed bool        `json:"collapsed"`
	Shows     []ShowEntry `json:"shows"`
}

type HistoryMonth struct {
	Key   string `json:"key"` // "2024-06"
	Label string `json:"label"`
	// Count is the month's true size in the filtered set.
	Count     int          `json:"count"`
	Collapsed bool         `json:"collapsed"`
	Days      []HistoryDay `json:"days"`
}

// GroupHistory groups a filtered, descending-sorted history slice by month
// and then by day. Counts cover the full slice; only the first revealed
// shows are materialized, and months or days with nothing materialized are
// left out. overrides maps a month key or a date to its collapsed state.
func GroupHistory(sorted []ShowEntry, revealed int, c Clock, overrides map[string]bool) []HistoryMonth {
	recent := recentSince(c)

	monthCount := make(map[string]int)
	dayCount := make(map[string]int)
	monthRecent := make(map[string]bool)
	for _, s := range sorted {
		mk := monthKeyOf(s.Date)
		monthCount[mk]++
		dayCount[s.Date]++
		if s.Date >= recent {
			monthRecent[mk] = true
		}
	}

	var months []HistoryMonth
	for _, s := range Window(sorted, Reveal{Count: revealed}) {
		mk := monthKeyOf(s.Date)
		if len(months) == 0 || months[len(months)-1].Key != mk {
			collapsed := !monthRecent[mk]
			if v, ok := overrides[mk]; ok {
				collapsed = v
			}
			months = append(months, HistoryMonth{
				Key:       mk,
				Label:     dates.MonthLabel(mk),
				Count:     monthCount[mk],
				Collapsed: collapsed,
			})
		}
		m := &months[len(months)-1]
		if len(m.Days) == 0 || m.Days[len(m.Days)-1].Date != s.Date {
			m.Days = append(m.Days, HistoryDay{
				Date:      s.Date,
				Label:     dates.DayLabel(s.Date),
				Count:     dayCount[s.Date],
				Collapsed: overrides[s.Date],
			})
		}
		d := &m.Days[len(m.Days)-1]
		d.Shows = append(d.Shows, s)
	}
	return months
}

func recentSince(c Clock) string {
	return dates.AddDays(c.Today, -RecentWindowDays)
}

// MonthCollapsedByDefault reports the collapse state GroupHistory gives
// month when no override exists: collapsed unless one of shows falls in it
// within the recent window.
func MonthCollapsedByDefault(shows []ShowEntry, month string, c Clock) bool {
	recent := recentSince(c)
	for _, s := range shows {
		if s.Date >= recent && monthKeyOf(s.Date) == month {
			return false
		}
	}
	return true
}

// monthKeyOf tolerates malformed dates by grouping them under their own
// first seven characters.
func monthKeyOf(day string) string {
	if k := dates.MonthKey(day); k != "" {
		return k
	}
	if len(day) >= 7 {
		return day[:7]
	}
	return day
}
