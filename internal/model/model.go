package model

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Event is one upcoming (or recently past) show as published in events.json.
// Events are read-only once loaded.
type Event struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
	// Date is a calendar day, "YYYY-MM-DD".
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	// Time is "HH:MM" (24h) when the venue publishes one.
	Time  string `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	Venue string `json:"venue" validate:"required"`
	// Source is the venue id the scraper used; it drives venue filtering.
	Source string `json:"source" validate:"required"`

	EventURL          string   `json:"eventUrl,omitempty" validate:"omitempty,url"`
	TicketURL         string   `json:"ticketUrl,omitempty" validate:"omitempty,url"`
	VenueURL          string   `json:"venueUrl,omitempty" validate:"omitempty,url"`
	ImageURL          string   `json:"imageUrl,omitempty"`
	Price             string   `json:"price,omitempty"`
	AgeRestriction    string   `json:"ageRestriction,omitempty"`
	SupportingArtists []string `json:"supportingArtists,omitempty"`

	// AddedAt is the ISO timestamp when the scraper first saw the event.
	AddedAt string `json:"addedAt,omitempty"`
}

// DisplayTime renders Time as "8:00 PM", or "TBA" when absent or unparseable.
func (e Event) DisplayTime() string {
	return FormatClock(e.Time)
}

// ListingURL picks the most specific link for the event.
func (e Event) ListingURL() string {
	switch {
	case e.EventURL != "":
		return e.EventURL
	case e.TicketURL != "":
		return e.TicketURL
	default:
		return e.VenueURL
	}
}

// FormatClock converts "20:00" to "8:00 PM".
func FormatClock(hhmm string) string {
	hh, mm, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return "TBA"
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return "TBA"
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return "TBA"
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return strconv.Itoa(h12) + ":" + mm + " " + suffix
}

// HistoricalShow is an archived past performance. It carries only the venue
// display name; mapping to a venue id happens through the venue registry.
type HistoricalShow struct {
	Date              string   `json:"date" validate:"required,datetime=2006-01-02"`
	Title             string   `json:"title" validate:"required"`
	Venue             string   `json:"venue" validate:"required"`
	SupportingArtists []string `json:"supportingArtists,omitempty"`
}

var historyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("omahashows/history"))

// Key returns a deterministic identifier derived from (date, title, venue).
// Two shows with the same key are considered the same performance.
func (h HistoricalShow) Key() string {
	name := h.Date + "\x00" + strings.ToLower(strings.TrimSpace(h.Title)) + "\x00" + strings.ToLower(strings.TrimSpace(h.Venue))
	return uuid.NewSHA1(historyNamespace, []byte(name)).String()
}

// AsHistory converts a past-dated event to its archived form.
func (e Event) AsHistory() HistoricalShow {
	return HistoricalShow{
		Date:              e.Date,
		Title:             e.Title,
		Venue:             e.Venue,
		SupportingArtists: e.SupportingArtists,
	}
}

type SourceState string

const (
	SourceOK    SourceState = "ok"
	SourceError SourceState = "error"
)

// SourceStatus is the scraper's health report for one venue.
type SourceStatus struct {
	ID          string      `json:"id" validate:"required"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Status      SourceState `json:"status" validate:"omitempty,oneof=ok error"`
	LastScraped string      `json:"lastScraped"`
	EventCount  int         `json:"eventCount" validate:"gte=0"`
	Error       string      `json:"error,omitempty"`
}

// EventsFeed is the whole events.json document.
type EventsFeed struct {
	Events      []Event        `json:"events" validate:"dive"`
	LastUpdated string         `json:"lastUpdated"`
	Sources     []SourceStatus `json:"sources" validate:"dive"`
}

// HistoryFeed is the whole history.json document.
type HistoryFeed struct {
	Shows       []HistoricalShow `json:"shows" validate:"dive"`
	LastUpdated string           `json:"lastUpdated"`
}
