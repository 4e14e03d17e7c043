package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omahashows/internal/config"
	"omahashows/internal/metrics"
)

const eventsBody = `{"events":[{"id":"a1","title":"Band","date":"2024-06-01","venue":"The Admiral","source":"admiral"}],"lastUpdated":"2024-06-01T12:00:00Z","sources":[{"id":"admiral","name":"The Admiral","status":"ok","eventCount":1}]}`

func newTestFetcher(t *testing.T, retries int) *Fetcher {
	t.Helper()
	f := NewFetcher(config.FeedsConfig{CacheDir: t.TempDir(), Timeout: 2 * time.Second, Retries: retries}, metrics.New())
	f.backoff = time.Millisecond
	return f
}

func TestFetchUsesETagAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(eventsBody))
	}))
	defer srv.Close()

	f := newTestFetcher(t, 1)
	ctx := context.Background()

	first, err := f.FetchFirst(ctx, "events", srv.URL)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.JSONEq(t, eventsBody, string(first.Body))

	second, err := f.FetchFirst(ctx, "events", srv.URL)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.EqualValues(t, 2, hits.Load())
}

func TestFetchFallsBackToCacheOnServerError(t *testing.T) {
	var broken atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if broken.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(eventsBody))
	}))
	defer srv.Close()

	f := newTestFetcher(t, 2)
	_, err := f.FetchFirst(context.Background(), "events", srv.URL)
	require.NoError(t, err)

	broken.Store(true)
	res, err := f.FetchFirst(context.Background(), "events", srv.URL)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.JSONEq(t, eventsBody, string(res.Body))
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(eventsBody))
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	res, err := f.FetchFirst(context.Background(), "events", srv.URL)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.EqualValues(t, 3, hits.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	_, err := f.FetchFirst(context.Background(), "events", srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestFetchFirstPrefersLiveLocation(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(static, []byte(`{"events":[]}`), 0o600))

	t.Run("api up", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(eventsBody))
		}))
		defer srv.Close()

		res, err := newTestFetcher(t, 1).FetchFirst(context.Background(), "events", srv.URL, static)
		require.NoError(t, err)
		assert.Equal(t, srv.URL, res.Source.URL)
	})

	t.Run("api down uses static file", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		res, err := newTestFetcher(t, 1).FetchFirst(context.Background(), "events", url, "file://"+static)
		require.NoError(t, err)
		assert.Equal(t, "file://"+static, res.Source.URL)
		assert.JSONEq(t, `{"events":[]}`, string(res.Body))
	})

	t.Run("nothing reachable", func(t *testing.T) {
		_, err := newTestFetcher(t, 1).FetchFirst(context.Background(), "events", filepath.Join(dir, "missing.json"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("no locations", func(t *testing.T) {
		_, err := newTestFetcher(t, 1).FetchFirst(context.Background(), "events", "", " ")
		assert.ErrorContains(t, err, "no location configured")
	})
}

func TestNotModifiedWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 3).FetchFirst(context.Background(), "events", srv.URL)
	assert.ErrorIs(t, err, ErrNotModifiedNoCache)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRedactURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com":                  "https://example.com",
		"https://example.com/api?token=secret": "https://example.com/...(redacted)",
		"data/events.json":                     "data/events.json",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, redactURL(in))
		})
	}
}
