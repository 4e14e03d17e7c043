package listing

import (
	"strconv"
	"time"

	"omahashows/internal/dates"
	"omahashows/internal/model"
)

type SourceRow struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	URL         string            `json:"url,omitempty"`
	Status      model.SourceState `json:"status"`
	EventCount  int               `json:"eventCount"`
	LastScraped string            `json:"lastScraped"`
	Ago         string            `json:"ago"`
	Error       string            `json:"error,omitempty"`
}

// Dashboard summarizes scraper health per source.
type Dashboard struct {
	LastUpdated    string      `json:"lastUpdated"`
	LastUpdatedAgo string      `json:"lastUpdatedAgo"`
	TotalEvents    int         `json:"totalEvents"`
	OK             int         `json:"ok"`
	Errored        int         `json:"errored"`
	Sources        []SourceRow `json:"sources"`
}

func BuildDashboard(s Snapshot, now time.Time) Dashboard {
	d := Dashboard{
		LastUpdated:    s.EventsUpdated,
		LastUpdatedAgo: TimeSince(s.EventsUpdated, now),
		TotalEvents:    len(s.Events),
		Sources:        make([]SourceRow, 0, len(s.Sources)),
	}
	for _, src := range s.Sources {
		if src.Status == model.SourceError {
			d.Errored++
		} else {
			d.OK++
		}
		d.Sources = append(d.Sources, SourceRow{
			ID:          src.ID,
			Name:        src.Name,
			URL:         src.URL,
			Status:      src.Status,
			EventCount:  src.EventCount,
			LastScraped: src.LastScraped,
			Ago:         TimeSince(src.LastScraped, now),
			Error:       src.Error,
		})
	}
	return d
}

// TimeSince humanizes how long ago an ISO timestamp was, in whole hours or
// days. Unparseable input yields "unknown".
func TimeSince(iso string, now time.Time) string {
	t, ok := dates.ParseTimestamp(iso)
	if !ok {
		return "unknown"
	}
	return Humanize(now.Sub(t))
}

func Humanize(d time.Duration) string {
	hours := int(d / time.Hour)
	switch {
	case hours < 1:
		return "less than an hour ago"
	case hours == 1:
		return "1 hour ago"
	case hours < 24:
		return strconv.Itoa(hours) + " hours ago"
	}
	days := hours / 24
	if days == 1 {
		return "1 day ago"
	}
	return strconv.Itoa(days) + " days ago"
}
