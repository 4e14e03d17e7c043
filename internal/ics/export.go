// Package ics renders listings as an iCalendar feed and reads such feeds
// back into events.
package ics

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"omahashows/internal/dates"
	appLog "omahashows/internal/log"
	"omahashows/internal/model"
)

// DefaultShowLength is the assumed length of a show with a start time.
const DefaultShowLength = 3 * time.Hour

const productID = "-//omahashows//listings//EN"

// ExportOptions controls calendar rendering.
type ExportOptions struct {
	Name     string
	Location *time.Location
	// Stamp is written as DTSTAMP on every event. Zero means time.Now().
	Stamp time.Time
}

// Export writes events as a VCALENDAR. Events with a time become timed
// VEVENTs of DefaultShowLength in opts.Location; events without one become
// all-day VEVENTs. Events whose date does not parse are skipped and logged.
func Export(w io.Writer, events []model.Event, opts ExportOptions) error {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	skipped := 0
	for _, e := range events {
		day, ok := dates.Parse(e.Date)
		if !ok {
			skipped++
			continue
		}

		ve := cal.AddEvent(e.ID + "@omahashows")
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title)
		ve.SetLocation(e.Venue)
		if u := e.ListingURL(); u != "" {
			ve.SetURL(u)
		}
		if desc := description(e); desc != "" {
			ve.SetDescription(desc)
		}

		if start, ok := startTime(day, e.Time, loc); ok {
			ve.SetStartAt(start)
			ve.SetEndAt(start.Add(DefaultShowLength))
		} else {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			ve.SetTimeTransparency(ical.TransparencyTransparent)
		}
	}
	if skipped > 0 {
		appLog.Warn("ics export skipped events with bad dates", "count", skipped)
	}

	return cal.SerializeTo(w)
}

func startTime(day time.Time, hhmm string, loc *time.Location) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), true
}

func description(e model.Event) string {
	var parts []string
	if len(e.SupportingArtists) > 0 {
		parts = append(parts, "With "+strings.Join(e.SupportingArtists, ", "))
	}
	if e.Price != "" {
		parts = append(parts, "Price: "+e.Price)
	}
	if e.AgeRestriction != "" {
		parts = append(parts, "Ages: "+e.AgeRestriction)
	}
	if e.TicketURL != "" && e.TicketURL != e.ListingURL() {
		parts = append(parts, "Tickets: "+e.TicketURL)
	}
	return strings.Join(parts, "\n")
}

// Decode reads VEVENTs back into events tagged with source. Dates are
// taken in loc; the VEVENT UID (minus the export suffix) becomes the id.
func Decode(body []byte, source string, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []model.Event
	for _, ve := range cal.Events() {
		e := model.Event{
			ID:     strings.TrimSuffix(ve.Id(), "@omahashows"),
			Source: source,
		}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			e.Title = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
			e.Venue = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
			e.EventURL = p.Value
		}

		if isAllDay(ve) {
			start, err := ve.GetAllDayStartAt()
			if err != nil {
				appLog.Warn("ics vevent without start skipped", "uid", ve.Id())
				continue
			}
			e.Date = start.Format(dates.Layout)
		} else {
			start, err := ve.GetStartAt()
			if err != nil {
				appLog.Warn("ics vevent without start skipped", "uid", ve.Id())
				continue
			}
			start = start.In(loc)
			e.Date = start.Format(dates.Layout)
			e.Time = start.Format("15:04")
		}
		out = append(out, e)
	}
	return out, nil
}

func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
