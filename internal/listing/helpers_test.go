package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"omahashows/internal/config"
	"omahashows/internal/model"
	"omahashows/internal/venue"
)

func testRegistry(t *testing.T) *venue.Registry {
	t.Helper()
	reg, err := venue.FromConfig(config.DefaultVenues(), nil)
	require.NoError(t, err)
	return reg
}

func clockAt(today string) Clock {
	now, err := time.Parse("2006-01-02 15:04", today+" 12:00")
	if err != nil {
		panic(err)
	}
	return Clock{Now: now, Today: today}
}

func ev(id, date, source string) model.Event {
	return model.Event{ID: id, Title: "Show " + id, Date: date, Venue: source + " hall", Source: source}
}

func ids(events []EventEntry) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func titles(shows []ShowEntry) []string {
	out := make([]string, len(shows))
	for i, s := range shows {
		out[i] = s.Title
	}
	return out
}

func snapshotOf(t *testing.T, events []model.Event, shows []model.HistoricalShow) Snapshot {
	t.Helper()
	return NewSnapshot(
		model.EventsFeed{Events: events},
		model.HistoryFeed{Shows: shows},
		testRegistry(t),
	)
}
