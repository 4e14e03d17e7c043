package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omahashows/internal/config"
	"omahashows/internal/listing"
	"omahashows/internal/metrics"
	"omahashows/internal/venue"
)

const historyBody = `{"shows":[
  {"date":"2023-05-01","title":"Old Band","venue":"The Admiral"},
  {"date":"2023-05-01","title":"old band ","venue":"the admiral"},
  {"date":"2023-04-01","title":"Somewhere","venue":"Unknown Hall"}
],"lastUpdated":"2024-01-01"}`

func writeFeeds(t *testing.T, events, history string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Feeds.CacheDir = filepath.Join(dir, "cache")
	cfg.Feeds.EventsURL = filepath.Join(dir, "events.json")
	cfg.Feeds.EventsFallbackURL = ""
	cfg.Feeds.HistoryURL = filepath.Join(dir, "history.json")
	cfg.Feeds.Retries = 1
	if events != "" {
		require.NoError(t, os.WriteFile(cfg.Feeds.EventsURL, []byte(events), 0o600))
	}
	if history != "" {
		require.NoError(t, os.WriteFile(cfg.Feeds.HistoryURL, []byte(history), 0o600))
	}
	return *cfg
}

func TestStoreRefresh(t *testing.T) {
	cfg := writeFeeds(t, eventsBody, historyBody)
	m := metrics.New()
	store := NewStore(cfg, NewFetcher(cfg.Feeds, m), m)

	var notified listing.Snapshot
	store.Subscribe(func(s listing.Snapshot) { notified = s })

	_, ok := store.Snapshot()
	require.False(t, ok)

	require.NoError(t, store.Refresh(context.Background()))

	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Events, 1)
	assert.Equal(t, "admiral", snap.Events[0].VenueKey)
	assert.Len(t, snap.Shows, 2, "duplicate history rows collapse")
	assert.Equal(t, []string{"Unknown Hall"}, snap.Unmapped)
	assert.Equal(t, snap.Events, notified.Events)

	st := store.Status()
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastSuccess.IsZero())
	assert.Equal(t, cfg.Feeds.EventsURL, st.EventsFrom)
}

func TestSubscribersSeeEveryRefresh(t *testing.T) {
	cfg := writeFeeds(t, eventsBody, "")
	store := NewStore(cfg, NewFetcher(cfg.Feeds, nil), nil)

	var first, second []listing.Snapshot
	store.Subscribe(func(s listing.Snapshot) { first = append(first, s) })
	store.Subscribe(func(s listing.Snapshot) { second = append(second, s) })

	require.NoError(t, store.Refresh(context.Background()))
	require.NoError(t, os.WriteFile(cfg.Feeds.EventsURL, []byte(`{"events":[]}`), 0o600))
	require.NoError(t, store.Refresh(context.Background()))

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Len(t, first[0].Events, 1)
	assert.Empty(t, first[1].Events)
	assert.Empty(t, second[1].Events)
}

func TestStoreHistoryIsOptional(t *testing.T) {
	cfg := writeFeeds(t, eventsBody, "")
	store := NewStore(cfg, NewFetcher(cfg.Feeds, nil), nil)

	require.NoError(t, store.Refresh(context.Background()))
	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Empty(t, snap.Shows)
	assert.Len(t, snap.Events, 1)
}

func TestStoreEventsFailureKeepsPreviousSnapshot(t *testing.T) {
	cfg := writeFeeds(t, eventsBody, historyBody)
	store := NewStore(cfg, NewFetcher(cfg.Feeds, nil), nil)
	require.NoError(t, store.Refresh(context.Background()))

	require.NoError(t, os.WriteFile(cfg.Feeds.EventsURL, []byte("{not json"), 0o600))
	err := store.Refresh(context.Background())
	require.Error(t, err)

	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Events, 1)

	st := store.Status()
	assert.NotEmpty(t, st.LastError)
	assert.WithinDuration(t, time.Now(), st.LastSuccess, time.Minute)
}

func TestStoreRegistryIncludesFeedSources(t *testing.T) {
	events := `{"events":[{"id":"x","title":"T","date":"2024-06-01","venue":"Pop-Up","source":"popup"}],
	"sources":[{"id":"popup","name":"Pop-Up Space","status":"ok","eventCount":1}]}`
	cfg := writeFeeds(t, events, "")
	store := NewStore(cfg, NewFetcher(cfg.Feeds, nil), nil)
	require.NoError(t, store.Refresh(context.Background()))

	snap, _ := store.Snapshot()
	assert.True(t, snap.Venues.Known("popup"))
	assert.Equal(t, "popup", snap.Events[0].VenueKey)
	assert.True(t, snap.Venues.Known(venue.OtherID))
}
