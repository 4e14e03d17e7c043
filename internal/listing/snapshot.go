package listing

import (
	"slices"
	"strings"
	"time"

	"omahashows/internal/dates"
	"omahashows/internal/model"
	"omahashows/internal/venue"
)

// Clock pins "now" and "today" for one recomputation pass so every item is
// judged against the same instant.
type Clock struct {
	Now   time.Time
	Today string
}

func NewClock(now time.Time, loc *time.Location) Clock {
	return Clock{Now: now, Today: dates.Today(now, loc)}
}

// EventEntry is an event annotated with its filterable venue key.
type EventEntry struct {
	model.Event
	VenueKey string `json:"venueKey"`
}

// ShowEntry is a historical show annotated with its resolved venue key.
// Mapped is false when the venue name did not resolve; such shows are
// counted under "other" but match no venue restriction.
type ShowEntry struct {
	model.HistoricalShow
	VenueKey string `json:"venueKey"`
	Mapped   bool   `json:"mapped"`
	// Archived marks shows taken from past-dated events in the events feed.
	Archived bool `json:"archived,omitempty"`
}

// Snapshot is an immutable, annotated copy of both feeds plus the registry
// that produced the venue keys. Compute never mutates it.
type Snapshot struct {
	Events         []EventEntry
	Shows          []ShowEntry
	Sources        []model.SourceStatus
	Venues         *venue.Registry
	EventsUpdated  string
	HistoryUpdated string
	// Unmapped holds the distinct history venue names the registry could
	// not resolve, sorted.
	Unmapped []string

	showKeys  map[string]struct{}
	eventKeys []string
}

// NewSnapshot annotates the feeds against reg. A nil registry falls back to
// one holding only the "other" bucket.
func NewSnapshot(events model.EventsFeed, history model.HistoryFeed, reg *venue.Registry) Snapshot {
	if reg == nil {
		reg, _ = venue.New(nil)
	}
	s := Snapshot{
		Events:         make([]EventEntry, len(events.Events)),
		Shows:          make([]ShowEntry, 0, len(history.Shows)),
		Sources:        slices.Clone(events.Sources),
		Venues:         reg,
		EventsUpdated:  events.LastUpdated,
		HistoryUpdated: history.LastUpdated,
		showKeys:       make(map[string]struct{}, len(history.Shows)),
		eventKeys:      make([]string, len(events.Events)),
	}

	for i, e := range events.Events {
		s.Events[i] = EventEntry{Event: e, VenueKey: reg.EventKey(e.Source)}
		s.eventKeys[i] = e.AsHistory().Key()
	}

	unmapped := map[string]struct{}{}
	for _, h := range history.Shows {
		key := h.Key()
		if _, dup := s.showKeys[key]; dup {
			continue
		}
		s.showKeys[key] = struct{}{}

		entry := ShowEntry{HistoricalShow: h, VenueKey: venue.OtherID}
		if id, err := reg.Resolve(h.Venue); err == nil {
			entry.VenueKey = id
			entry.Mapped = true
		} else if name := strings.TrimSpace(h.Venue); name != "" {
			unmapped[name] = struct{}{}
		}
		s.Shows = append(s.Shows, entry)
	}
	for name := range unmapped {
		s.Unmapped = append(s.Unmapped, name)
	}
	slices.Sort(s.Unmapped)
	return s
}

// KnownVenues returns the registry's ids.
func (s Snapshot) KnownVenues() []string {
	if s.Venues == nil {
		return nil
	}
	return s.Venues.IDs()
}

// historyItems is the history-mode input: the history feed plus events dated
// before today that the history feed does not already hold.
func (s Snapshot) historyItems(c Clock) []ShowEntry {
	out := slices.Clone(s.Shows)
	seen := make(map[string]struct{})
	for i, e := range s.Events {
		if !IsPast(e.Date, c.Today) {
			continue
		}
		key := s.eventKey(i)
		if _, ok := s.showKeys[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ShowEntry{
			HistoricalShow: e.AsHistory(),
			VenueKey:       e.VenueKey,
			Mapped:         true,
			Archived:       true,
		})
	}
	return out
}

func (s Snapshot) eventKey(i int) string {
	if i < len(s.eventKeys) && s.eventKeys[i] != "" {
		return s.eventKeys[i]
	}
	return s.Events[i].AsHistory().Key()
}
