// Package metrics exposes Prometheus collectors for feed refreshes and the
// HTTP API. Every method is safe on a nil *Metrics, so callers that run
// without metrics can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "omahashows"

type Metrics struct {
	reg *prometheus.Registry

	feedFetches     *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	lastRefresh     prometheus.Gauge
	events          prometheus.Gauge
	shows           prometheus.Gauge
	unmappedVenues  prometheus.Gauge
	sourceEvents    *prometheus.GaugeVec
	sourceUp        *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
}

// New builds collectors on a private registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.feedFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_fetches_total",
		Help:      "Feed fetch attempts by feed and result (fresh, cache, error)",
	}, []string{"feed", "result"})
	m.refreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Time spent refreshing both feeds",
		Buckets:   prometheus.DefBuckets,
	})
	m.lastRefresh = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix timestamp of the last successful refresh",
	})
	m.events = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_loaded",
		Help:      "Events in the current snapshot",
	})
	m.shows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_shows_loaded",
		Help:      "Historical shows in the current snapshot",
	})
	m.unmappedVenues = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_unmapped_venues",
		Help:      "Distinct history venue names with no venue id mapping",
	})
	m.sourceEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_event_count",
		Help:      "Event count reported by the scraper per source",
	}, []string{"source"})
	m.sourceUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_up",
		Help:      "1 when the scraper reported the source ok, 0 on error",
	}, []string{"source"})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests by route and status code",
	}, []string{"route", "code"})

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.feedFetches, m.refreshDuration, m.lastRefresh,
		m.events, m.shows, m.unmappedVenues,
		m.sourceEvents, m.sourceUp, m.httpRequests,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	// Response compression is left to the HTTP middleware.
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{DisableCompression: true})
}

func (m *Metrics) ObserveFetch(feed, result string) {
	if m == nil {
		return
	}
	m.feedFetches.WithLabelValues(feed, result).Inc()
}

// SourceHealth is one row of scraper health as reported in the feed.
type SourceHealth struct {
	ID         string
	OK         bool
	EventCount int
}

// ObserveRefresh records a completed refresh.
func (m *Metrics) ObserveRefresh(took time.Duration, events, shows, unmapped int, sources []SourceHealth) {
	if m == nil {
		return
	}
	m.refreshDuration.Observe(took.Seconds())
	m.lastRefresh.SetToCurrentTime()
	m.events.Set(float64(events))
	m.shows.Set(float64(shows))
	m.unmappedVenues.Set(float64(unmapped))

	m.sourceEvents.Reset()
	m.sourceUp.Reset()
	for _, s := range sources {
		m.sourceEvents.WithLabelValues(s.ID).Set(float64(s.EventCount))
		up := 0.0
		if s.OK {
			up = 1
		}
		m.sourceUp.WithLabelValues(s.ID).Set(up)
	}
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
