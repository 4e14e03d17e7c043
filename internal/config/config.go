package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedsConfig describes where the events and history documents come from.
// Each location may be an http(s) URL or a local file path.
type FeedsConfig struct {
	// EventsURL is tried first (typically the local scraper API).
	EventsURL string `yaml:"events_url" json:"events_url"`
	// EventsFallbackURL is used when EventsURL is unreachable or not OK
	// (typically the published static events.json).
	EventsFallbackURL string `yaml:"events_fallback_url" json:"events_fallback_url"`
	// HistoryURL is optional; an empty value disables history.
	HistoryURL string `yaml:"history_url" json:"history_url"`

	CacheDir string        `yaml:"cache_dir" json:"cache_dir"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	Retries  int           `yaml:"retries" json:"retries"`
}

// ListingConfig tunes the presentation pipeline.
type ListingConfig struct {
	EventsPageSize  int           `yaml:"events_page_size" json:"events_page_size"`
	HistoryPageSize int           `yaml:"history_page_size" json:"history_page_size"`
	SearchDebounce  time.Duration `yaml:"search_debounce" json:"search_debounce"`
}

// VenueConfig is one entry of the authoritative venue enumeration.
type VenueConfig struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Color   string   `yaml:"color,omitempty" json:"color,omitempty"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// SnapshotConfig controls the headless-browser PNG capture of the calendar page.
type SnapshotConfig struct {
	// URL overrides the page to capture. Empty means the local server's /?view=calendar.
	URL     string        `yaml:"url,omitempty" json:"url,omitempty"`
	Output  string        `yaml:"output" json:"output"`
	Width   int           `yaml:"width" json:"width"`
	Height  int           `yaml:"height" json:"height"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that defines "today" (e.g. "America/Chicago").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls the first column of the calendar grid.
	// Supported values: "sunday" (default), "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// used for periodic feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Feeds    FeedsConfig    `yaml:"feeds" json:"feeds"`
	Listing  ListingConfig  `yaml:"listing" json:"listing"`
	Venues   []VenueConfig  `yaml:"venues" json:"venues"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultVenues is the venue enumeration shipped with the app.
func DefaultVenues() []VenueConfig {
	return []VenueConfig{
		{ID: "theslowdown", Name: "The Slowdown", Color: "#f59e0b", Aliases: []string{"Slowdown"}},
		{ID: "waitingroom", Name: "Waiting Room", Color: "#f97316", Aliases: []string{"Waiting Room Lounge"}},
		{ID: "reverblounge", Name: "Reverb Lounge", Color: "#f43f5e", Aliases: []string{"Reverb"}},
		{ID: "bourbontheatre", Name: "Bourbon Theatre", Color: "#ec4899", Aliases: []string{"Bourbon Theater"}},
		{ID: "admiral", Name: "Admiral", Color: "#d946ef", Aliases: []string{"The Admiral"}},
		{ID: "astrotheater", Name: "The Astro", Color: "#a855f7", Aliases: []string{"Astro Theater", "The Astro Theater"}},
		{ID: "steelhouse", Name: "Steel House Omaha", Color: "#06b6d4", Aliases: []string{"Steel House"}},
		{ID: "holland", Name: "Holland Center", Color: "#84cc16", Aliases: []string{"Holland Performing Arts Center"}},
		{ID: "orpheum", Name: "Orpheum Theater", Color: "#eab308", Aliases: []string{"Orpheum"}},
		{ID: "barnato", Name: "Barnato", Color: "#14b8a6"},
		{ID: "other", Name: "Other", Color: "#10b981"},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "America/Chicago",
		WeekStart:   "sunday",
		RefreshCron: "*/30 * * * *",
		LogLevel:    "info",
		Feeds: FeedsConfig{
			EventsURL:         "http://localhost:8000/api/events",
			EventsFallbackURL: "data/events.json",
			HistoryURL:        "data/history.json",
			CacheDir:          "cache",
			Timeout:           15 * time.Second,
			Retries:           3,
		},
		Listing: ListingConfig{
			EventsPageSize:  15,
			HistoryPageSize: 25,
			SearchDebounce:  300 * time.Millisecond,
		},
		Venues:  DefaultVenues(),
		Metrics: MetricsConfig{Enabled: true},
		Snapshot: SnapshotConfig{
			Output:  "calendar.png",
			Width:   1280,
			Height:  960,
			Timeout: 30 * time.Second,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday":
		c.WeekStart = "monday"
	case "sunday":
		c.WeekStart = "sunday"
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = def.WeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	if c.Feeds.CacheDir == "" {
		c.Feeds.CacheDir = def.Feeds.CacheDir
	}
	if c.Feeds.Timeout <= 0 {
		c.Feeds.Timeout = def.Feeds.Timeout
	}
	if c.Feeds.Retries <= 0 {
		c.Feeds.Retries = 1
	}

	if c.Listing.EventsPageSize <= 0 {
		c.Listing.EventsPageSize = def.Listing.EventsPageSize
	}
	if c.Listing.HistoryPageSize <= 0 {
		c.Listing.HistoryPageSize = def.Listing.HistoryPageSize
	}
	if c.Listing.SearchDebounce <= 0 {
		c.Listing.SearchDebounce = def.Listing.SearchDebounce
	}

	if len(c.Venues) == 0 {
		c.Venues = def.Venues
	}

	if c.Snapshot.Output == "" {
		c.Snapshot.Output = def.Snapshot.Output
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = def.Snapshot.Width
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = def.Snapshot.Height
	}
	if c.Snapshot.Timeout <= 0 {
		c.Snapshot.Timeout = def.Snapshot.Timeout
	}
}

// Location resolves Timezone, falling back to the local zone when the name
// is unknown to the tz database.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c != nil && c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded over the defaults and normalized, so
//     omitted sections keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with final permissions 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".omahashows-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
