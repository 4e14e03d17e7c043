package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"omahashows/internal/config"
	"omahashows/internal/listing"
	appLog "omahashows/internal/log"
	"omahashows/internal/metrics"
	"omahashows/internal/model"
	"omahashows/internal/venue"
)

// Status describes the outcome of the most recent refresh.
type Status struct {
	LastAttempt time.Time `json:"lastAttempt"`
	LastSuccess time.Time `json:"lastSuccess"`
	LastError   string    `json:"lastError,omitempty"`
	EventsFrom  string    `json:"eventsFrom,omitempty"`
	HistoryFrom string    `json:"historyFrom,omitempty"`
	FromCache   bool      `json:"fromCache"`
}

// Store owns the current snapshot. Refresh replaces it atomically; readers
// always see either the old or the new snapshot, never a mix.
type Store struct {
	cfg     config.Config
	fetcher *Fetcher
	metrics *metrics.Metrics

	mu      sync.RWMutex
	snap    listing.Snapshot
	loaded  bool
	events  model.EventsFeed
	history model.HistoryFeed
	status  Status
	subs    []func(listing.Snapshot)

	refreshMu sync.Mutex
}

func NewStore(cfg config.Config, fetcher *Fetcher, m *metrics.Metrics) *Store {
	return &Store{cfg: cfg, fetcher: fetcher, metrics: m}
}

// Subscribe registers fn to be called with every new snapshot.
func (s *Store) Subscribe(fn func(listing.Snapshot)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Snapshot returns the current snapshot and whether one has been loaded.
func (s *Store) Snapshot() (listing.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.loaded
}

// Feeds returns the raw decoded feeds behind the current snapshot.
func (s *Store) Feeds() (model.EventsFeed, model.HistoryFeed) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events, s.history
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Refresh fetches both feeds and swaps in a new snapshot. A failing events
// feed fails the refresh; a failing history feed only logs, and history is
// treated as empty.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	st := Status{LastAttempt: start}

	evRes, err := s.fetcher.FetchFirst(ctx, "events", s.cfg.Feeds.EventsURL, s.cfg.Feeds.EventsFallbackURL)
	if err != nil {
		return s.fail(st, fmt.Errorf("fetch events: %w", err))
	}
	events, err := DecodeEvents(evRes.Body)
	if err != nil {
		return s.fail(st, fmt.Errorf("decode events from %s: %w", redactURL(evRes.Source.URL), err))
	}
	st.EventsFrom = redactURL(evRes.Source.URL)
	st.FromCache = evRes.FromCache

	var history model.HistoryFeed
	if hRes, err := s.fetcher.FetchFirst(ctx, "history", s.cfg.Feeds.HistoryURL); err != nil {
		appLog.Warn("history feed unavailable; continuing without history", "err", err)
	} else if history, err = DecodeHistory(hRes.Body); err != nil {
		appLog.Warn("history feed malformed; continuing without history", "err", err)
		history = model.HistoryFeed{}
	} else {
		st.HistoryFrom = redactURL(hRes.Source.URL)
	}

	reg, err := venue.FromConfig(s.cfg.Venues, events.Sources)
	if err != nil {
		appLog.Error("venue registry from feed sources failed; using configured venues only", err)
		if reg, err = venue.FromConfig(s.cfg.Venues, nil); err != nil {
			return s.fail(st, fmt.Errorf("venue registry: %w", err))
		}
	}

	snap := listing.NewSnapshot(events, history, reg)
	if len(snap.Unmapped) > 0 {
		appLog.Warn("history venues without a venue id", "count", len(snap.Unmapped), "names", fmt.Sprint(snap.Unmapped))
	}

	st.LastSuccess = time.Now()
	s.mu.Lock()
	s.snap = snap
	s.loaded = true
	s.events = events
	s.history = history
	s.status = st
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	s.metrics.ObserveRefresh(time.Since(start), len(snap.Events), len(snap.Shows), len(snap.Unmapped), sourceHealth(events.Sources))
	appLog.Info("feeds refreshed",
		"events", len(snap.Events),
		"shows", len(snap.Shows),
		"venues", reg.Len(),
		"took", time.Since(start).Round(time.Millisecond).String(),
	)

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

func (s *Store) fail(st Status, err error) error {
	st.LastError = err.Error()
	s.mu.Lock()
	st.LastSuccess = s.status.LastSuccess
	s.status = st
	s.mu.Unlock()
	appLog.Error("feed refresh failed", err)
	return err
}

func sourceHealth(sources []model.SourceStatus) []metrics.SourceHealth {
	out := make([]metrics.SourceHealth, 0, len(sources))
	for _, src := range sources {
		out = append(out, metrics.SourceHealth{
			ID:         src.ID,
			OK:         src.Status != model.SourceError,
			EventCount: src.EventCount,
		})
	}
	return out
}

// DecodeEvents parses an events.json document. Unknown fields are ignored.
func DecodeEvents(body []byte) (model.EventsFeed, error) {
	var feed model.EventsFeed
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return model.EventsFeed{}, err
	}
	return feed, nil
}

// DecodeHistory parses a history.json document.
func DecodeHistory(body []byte) (model.HistoryFeed, error) {
	var feed model.HistoryFeed
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return model.HistoryFeed{}, err
	}
	return feed, nil
}
