package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"omahashows/internal/capture"
	"omahashows/internal/config"
	"omahashows/internal/feed"
	"omahashows/internal/ics"
	"omahashows/internal/listing"
	appLog "omahashows/internal/log"
	"omahashows/internal/metrics"
	"omahashows/internal/tui"
	"omahashows/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	validate   bool
	snapshot   bool
	browse     bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("omahashows starting", "version", version)
	appLog.Debug("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"venues", len(conf.Venues),
		"metrics", conf.Metrics.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if conf.Metrics.Enabled {
		m = metrics.New()
	}
	store := feed.NewStore(*conf, feed.NewFetcher(conf.Feeds, m), m)

	if err := store.Refresh(ctx); err != nil {
		if flags.once || flags.validate || flags.browse {
			appLog.Error("initial refresh failed", err)
			os.Exit(1)
		}
		// The server keeps running and retries on schedule.
		appLog.Warn("initial refresh failed", "err", err.Error())
	}

	switch {
	case flags.validate:
		os.Exit(runValidate(conf, store))
	case flags.once:
		runOnce(store)
	case flags.browse:
		if err := runBrowse(ctx, conf, store); err != nil {
			appLog.Error("terminal UI failed", err)
			os.Exit(1)
		}
	case flags.snapshot:
		if err := runSnapshot(ctx, conf, store, m); err != nil {
			appLog.Error("snapshot failed", err)
			os.Exit(1)
		}
	default:
		if err := serve(ctx, conf, store, m); err != nil {
			appLog.Error("server failed", err)
			os.Exit(1)
		}
	}
	appLog.Info("omahashows exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", envOr("OMAHASHOWS_CONFIG", "config.yaml"), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", os.Getenv("OMAHASHOWS_LISTEN"), "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch the feeds once, print a summary and exit")
	flag.BoolVar(&cfg.validate, "validate", false, "Validate the feeds and exit non-zero on errors")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Serve the UI, capture the calendar view to PNG and exit")
	flag.BoolVar(&cfg.browse, "browse", false, "Browse the listings in the terminal")

	flag.Parse()

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runValidate(conf *config.Config, store *feed.Store) int {
	events, history := store.Feeds()
	snap, _ := store.Snapshot()
	report := feed.Validate(events, history, snap.Venues)
	report.Write(os.Stdout)

	// The calendar export must parse back with every event.
	var buf bytes.Buffer
	if err := ics.Export(&buf, events.Events, ics.ExportOptions{Location: conf.Location()}); err != nil {
		fmt.Printf("ERROR calendar export: %v\n", err)
		return 1
	}
	decoded, err := ics.Decode(buf.Bytes(), "export", conf.Location())
	if err != nil {
		fmt.Printf("ERROR calendar export does not parse: %v\n", err)
		return 1
	}
	if len(decoded) != len(events.Events) {
		fmt.Printf("WARN  calendar export holds %d of %d events\n", len(decoded), len(events.Events))
	}

	if !report.OK() {
		return 1
	}
	return 0
}

func runOnce(store *feed.Store) {
	snap, _ := store.Snapshot()
	st := store.Status()
	fmt.Printf("events:   %d (from %s, updated %s)\n", len(snap.Events), st.EventsFrom, snap.EventsUpdated)
	fmt.Printf("history:  %d (updated %s)\n", len(snap.Shows), snap.HistoryUpdated)
	fmt.Printf("sources:  %d\n", len(snap.Sources))
	if st.FromCache {
		fmt.Println("warning:  served from cache")
	}
	for _, name := range snap.Unmapped {
		fmt.Printf("unmapped: %s\n", name)
	}
}

func runBrowse(ctx context.Context, conf *config.Config, store *feed.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session, done, err := browseSession(ctx, conf, store)
	if err != nil {
		return err
	}
	defer func() {
		cancel()
		<-done
		session.Close()
	}()

	// The terminal UI owns the screen.
	appLog.SetOutput(io.Discard)
	defer appLog.SetOutput(os.Stderr)
	return tui.Run(session)
}

// browseSession builds a Session over the current snapshot and keeps it fed
// by the scheduled refresh until ctx is canceled.
func browseSession(ctx context.Context, conf *config.Config, store *feed.Store) (*listing.Session, <-chan struct{}, error) {
	snap, _ := store.Snapshot()
	session := listing.NewSession(snap, listing.Options{
		EventsPageSize:  conf.Listing.EventsPageSize,
		HistoryPageSize: conf.Listing.HistoryPageSize,
		WeekStart:       conf.FirstWeekday(),
		Location:        conf.Location(),
		Debounce:        conf.Listing.SearchDebounce,
	})
	store.Subscribe(session.SetSnapshot)

	done, err := feed.Schedule(ctx, conf.RefreshCron, store)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return session, done, nil
}

func runSnapshot(ctx context.Context, conf *config.Config, store *feed.Store, m *metrics.Metrics) error {
	opts := capture.OptionsFromConfig(conf.Snapshot, conf.Listen)
	if conf.Snapshot.URL != "" {
		return capture.CalendarPNG(ctx, opts)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- serveHTTP(srvCtx, conf, store, m) }()

	// Let the listener come up before Chromium navigates.
	time.Sleep(200 * time.Millisecond)
	captureErr := capture.CalendarPNG(ctx, opts)

	cancel()
	return errors.Join(captureErr, <-errCh)
}

func serve(ctx context.Context, conf *config.Config, store *feed.Store, m *metrics.Metrics) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done, err := feed.Schedule(ctx, conf.RefreshCron, store)
	if err != nil {
		return err
	}
	err = serveHTTP(ctx, conf, store, m)
	cancel()
	<-done
	return err
}

// serveHTTP runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func serveHTTP(ctx context.Context, conf *config.Config, store *feed.Store, m *metrics.Metrics) error {
	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, store, m).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", "addr", conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
