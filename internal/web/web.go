package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"omahashows/internal/config"
	"omahashows/internal/feed"
	"omahashows/internal/ics"
	"omahashows/internal/listing"
	appLog "omahashows/internal/log"
	"omahashows/internal/metrics"
	"omahashows/internal/model"
)

// Store is the snapshot provider the server reads from. *feed.Store
// satisfies it.
type Store interface {
	Snapshot() (listing.Snapshot, bool)
	Feeds() (model.EventsFeed, model.HistoryFeed)
	Status() feed.Status
	Refresh(ctx context.Context) error
}

// Server provides the listing API, the iCalendar export and the embedded UI.
type Server struct {
	cfg     *config.Config
	store   Store
	metrics *metrics.Metrics
	mux     *http.ServeMux

	// now is replaceable for tests.
	now func() time.Time
}

// embeddedStatic contains the single-page UI served at /.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server. m may be nil.
func NewServer(cfg *config.Config, store Store, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		metrics: m,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server, wrapped in
// security headers, compression and (when configured) basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return WithSecurityHeaders(WithCompression(h))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Omaha Shows", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.handle("/health", s.handleHealth)
	s.handle("GET /api/events", s.handleMode(listing.ModeEvents))
	s.handle("GET /api/history", s.handleMode(listing.ModeHistory))
	s.handle("GET /api/calendar", s.handleMode(listing.ModeCalendar))
	s.handle("GET /api/dashboard", s.handleMode(listing.ModeDashboard))
	s.handle("GET /api/venues", s.handleVenues)
	s.handle("GET /api/feed", s.handleFeed)
	s.handle("GET /api/status", s.handleStatus)
	s.handle("POST /api/refresh", s.handleRefresh)
	s.handle("GET /calendar.ics", s.handleICS)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Everything else is the embedded UI.
	s.mux.Handle("/", s.staticFileServer())
}

// handle registers h under pattern and counts requests by route and status.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	route := pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		route = path
	}
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		s.metrics.ObserveRequest(route, sw.status)
	}))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// envelope is the response shape for listing endpoints.
type envelope struct {
	Data any  `json:"data"`
	Meta meta `json:"meta"`
}

type meta struct {
	Mode           string   `json:"mode"`
	Today          string   `json:"today"`
	Venues         []string `json:"venues,omitempty"`
	Time           string   `json:"time,omitempty"`
	Query          string   `json:"q,omitempty"`
	EventsUpdated  string   `json:"eventsUpdated,omitempty"`
	HistoryUpdated string   `json:"historyUpdated,omitempty"`
	FromCache      bool     `json:"fromCache"`
}

// handleMode serves one listing mode.
//
// GET /api/events?venues=admiral,theslowdown&time=week&q=jazz&limit=30&direction=past
// GET /api/history?time=90days&open=2024-03
// GET /api/calendar?month=2024-06&date=2024-06-14
func (s *Server) handleMode(mode listing.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.store.Snapshot()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "feeds not loaded yet")
			return
		}

		q := r.URL.Query()
		req, err := s.parseRequest(q, mode, snap.KnownVenues())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		view := listing.Compute(snap, req)

		m := meta{
			Mode:           mode.String(),
			Today:          view.Today,
			Venues:         req.Filter.Venues.IDs(),
			Query:          req.Filter.Query,
			EventsUpdated:  snap.EventsUpdated,
			HistoryUpdated: snap.HistoryUpdated,
			FromCache:      s.store.Status().FromCache,
		}
		switch mode {
		case listing.ModeEvents:
			m.Time = string(req.Filter.Time)
		case listing.ModeHistory:
			m.Time = string(req.Filter.HistoryTime)
		}
		writeJSON(w, http.StatusOK, envelope{Data: view, Meta: m})
	}
}

// parseRequest maps query parameters onto a listing request.
func (s *Server) parseRequest(q url.Values, mode listing.Mode, known []string) (listing.Request, error) {
	filter := listing.DefaultFilterState()
	filter.Mode = mode

	venues, err := parseVenues(q.Get("venues"), known)
	if err != nil {
		return listing.Request{}, err
	}
	filter.Venues = venues
	filter.Query = listing.NormalizeQuery(q.Get("q"))

	switch mode {
	case listing.ModeEvents:
		if filter.Time, err = listing.ParseTimeFilter(q.Get("time")); err != nil {
			return listing.Request{}, err
		}
		if filter.Direction, err = listing.ParseDirection(q.Get("direction")); err != nil {
			return listing.Request{}, err
		}
	case listing.ModeHistory:
		if filter.HistoryTime, err = listing.ParseHistoryTimeFilter(q.Get("time")); err != nil {
			return listing.Request{}, err
		}
	}

	req := listing.Request{
		Filter:          filter,
		Clock:           listing.NewClock(s.now(), s.cfg.Location()),
		Revealed:        max(parseIntDefault(q.Get("limit"), 0), 0),
		EventsPageSize:  s.cfg.Listing.EventsPageSize,
		HistoryPageSize: s.cfg.Listing.HistoryPageSize,
		WeekStart:       s.cfg.FirstWeekday(),
	}

	if mode == listing.ModeCalendar {
		if month := q.Get("month"); month != "" {
			if _, err := time.Parse("2006-01", month); err != nil {
				return listing.Request{}, errors.New("month must be YYYY-MM")
			}
			req.Month = month
		}
		if date := q.Get("date"); date != "" {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return listing.Request{}, errors.New("date must be YYYY-MM-DD")
			}
			req.Selected = date
		}
	}

	if mode == listing.ModeHistory {
		for _, key := range splitList(q.Get("open")) {
			if req.Collapsed == nil {
				req.Collapsed = make(map[string]bool)
			}
			req.Collapsed[key] = false
		}
		for _, key := range splitList(q.Get("closed")) {
			if req.Collapsed == nil {
				req.Collapsed = make(map[string]bool)
			}
			req.Collapsed[key] = true
		}
	}
	return req, nil
}

func parseVenues(raw string, known []string) (listing.VenueSet, error) {
	ids := splitList(raw)
	if len(ids) == 0 || (len(ids) == 1 && ids[0] == "all") {
		return listing.VenueSet{}, nil
	}
	for _, id := range ids {
		if !slices.Contains(known, id) {
			return listing.VenueSet{}, errors.New("unknown venue " + strconv.Quote(id))
		}
	}
	return listing.NewVenueSet(ids...), nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type venueResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Color   string   `json:"color,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

func (s *Server) handleVenues(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.store.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "feeds not loaded yet")
		return
	}
	venues := snap.Venues.Venues()
	out := make([]venueResponse, 0, len(venues))
	for _, v := range venues {
		out = append(out, venueResponse{ID: v.ID, Name: v.Name, Color: v.Color, Aliases: v.Aliases})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"venues":         out,
		"unmappedVenues": snap.Unmapped,
	})
}

// handleFeed returns the raw events document behind the current snapshot.
func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	if _, ok := s.store.Snapshot(); !ok {
		writeError(w, http.StatusServiceUnavailable, "feeds not loaded yet")
		return
	}
	events, _ := s.store.Feeds()
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := s.store.Refresh(ctx); err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, s.store.Status())
}

// handleICS exports upcoming events, honouring the venues and q filters.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.store.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "feeds not loaded yet")
		return
	}
	q := r.URL.Query()
	venues, err := parseVenues(q.Get("venues"), snap.KnownVenues())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := listing.DefaultFilterState()
	filter.Venues = venues
	filter.Query = listing.NormalizeQuery(q.Get("q"))
	clock := listing.NewClock(s.now(), s.cfg.Location())

	entries := listing.FilterEvents(snap.Events, filter, snap.KnownVenues(), clock)
	events := make([]model.Event, len(entries))
	for i, e := range entries {
		events[i] = e.Event
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="omahashows.ics"`)
	err = ics.Export(w, events, ics.ExportOptions{
		Name:     "Omaha Shows",
		Location: s.cfg.Location(),
		Stamp:    clock.Now,
	})
	if err != nil {
		appLog.Error("ics export failed", err)
	}
}

// staticFileServer serves the embedded UI from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown /api/* paths are 404s, never HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
