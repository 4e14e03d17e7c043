package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omahashows/internal/config"
	"omahashows/internal/feed"
)

func TestBrowseSessionFollowsRefresh(t *testing.T) {
	dir := t.TempDir()
	conf := config.DefaultConfig()
	conf.Feeds.CacheDir = filepath.Join(dir, "cache")
	conf.Feeds.EventsURL = filepath.Join(dir, "events.json")
	conf.Feeds.EventsFallbackURL = ""
	conf.Feeds.HistoryURL = ""
	conf.Feeds.Retries = 1
	conf.Metrics.Enabled = false

	write := func(body string) {
		require.NoError(t, os.WriteFile(conf.Feeds.EventsURL, []byte(body), 0o600))
	}
	write(`{"events":[{"id":"a","title":"First","date":"2999-01-01","venue":"The Admiral","source":"admiral"}]}`)

	store := feed.NewStore(*conf, feed.NewFetcher(conf.Feeds, nil), nil)
	require.NoError(t, store.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	session, done, err := browseSession(ctx, conf, store)
	require.NoError(t, err)
	t.Cleanup(session.Close)

	require.Len(t, session.View().Events, 1)
	assert.Equal(t, "First", session.View().Events[0].Title)

	write(`{"events":[
		{"id":"a","title":"First","date":"2999-01-01","venue":"The Admiral","source":"admiral"},
		{"id":"b","title":"Second","date":"2999-01-02","venue":"The Admiral","source":"admiral"}]}`)
	require.NoError(t, store.Refresh(context.Background()))
	assert.Len(t, session.View().Events, 2)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh schedule kept running after cancel")
	}
}

func TestBrowseSessionRejectsBadSchedule(t *testing.T) {
	conf := config.DefaultConfig()
	conf.RefreshCron = "whenever"
	store := feed.NewStore(*conf, feed.NewFetcher(conf.Feeds, nil), nil)

	_, _, err := browseSession(context.Background(), conf, store)
	assert.Error(t, err)
}
