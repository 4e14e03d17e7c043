package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"omahashows/internal/config"
	appLog "omahashows/internal/log"
	"omahashows/internal/metrics"
)

// ErrNotModifiedNoCache is returned when the server answers 304 but there is
// no cached body to reuse.
var ErrNotModifiedNoCache = errors.New("feed: 304 Not Modified but no cached body available")

// Source is one feed location. URL may be http(s), file://, or a plain path.
type Source struct {
	// Feed names the document ("events", "history") for logs and metrics.
	Feed string
	URL  string
}

// Result is the body of a fetched feed.
type Result struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// cacheEntry holds HTTP cache metadata for a single feed URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher retrieves feeds with HTTP caching (ETag / Last-Modified), a
// disk-backed body cache and retries with exponential backoff.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	attempts int
	backoff  time.Duration
	metrics  *metrics.Metrics
}

// NewFetcher creates a Fetcher from the feeds config. m may be nil.
func NewFetcher(cfg config.FeedsConfig, m *metrics.Metrics) *Fetcher {
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = "./cache"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:   NewHTTPClient(timeout),
		cacheDir: cacheDir,
		attempts: max(cfg.Retries, 1),
		backoff:  500 * time.Millisecond,
		metrics:  m,
	}
}

// FetchFirst tries each URL in order and returns the first fresh body. Only
// when every location fails does it fall back to a cached body, again in
// order. This lets a local API win over the published static file while it
// is running without letting a stale API cache shadow the static file.
func (f *Fetcher) FetchFirst(ctx context.Context, feed string, urls ...string) (Result, error) {
	var errs []error
	var tried []Source
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		src := Source{Feed: feed, URL: u}
		tried = append(tried, src)

		res, err := f.fetch(ctx, src)
		if err == nil {
			f.metrics.ObserveFetch(feed, "fresh")
			return res, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		appLog.Warn("feed location failed", "feed", feed, "url", redactURL(u), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", redactURL(u), err))
	}

	if len(tried) == 0 {
		return Result{}, fmt.Errorf("feed %s: no location configured", feed)
	}

	for _, src := range tried {
		if body, ok := f.cachedBody(src.URL); ok {
			appLog.Warn("feed fetch failed, using cached body", "feed", feed, "url", redactURL(src.URL))
			f.metrics.ObserveFetch(feed, "cache")
			return Result{Source: src, Body: body, FromCache: true}, nil
		}
	}

	f.metrics.ObserveFetch(feed, "error")
	return Result{}, fmt.Errorf("feed %s: %w", feed, errors.Join(errs...))
}

// Fetch retrieves a single source, falling back to its cached body on error.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Result, error) {
	return f.FetchFirst(ctx, src.Feed, src.URL)
}

func (f *Fetcher) fetch(ctx context.Context, src Source) (Result, error) {
	if path, ok := localPath(src.URL); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			return Result{}, err
		}
		return Result{Source: src, Body: body}, nil
	}

	var res Result
	err := Retry(ctx, f.attempts, f.backoff, 8*f.backoff, func() error {
		r, err := f.fetchHTTP(ctx, src)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

// fetchHTTP performs one conditional GET.
func (f *Fetcher) fetchHTTP(ctx context.Context, src Source) (Result, error) {
	cachePath := f.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Result{}, Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	// Conditional headers only make sense when the body is still on disk.
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("feed fetch start", "feed", src.Feed, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return Result{}, readErr
		}

		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("feed cache save failed", err, "feed", src.Feed, "url", redactURL(src.URL))
		}

		appLog.Info("feed fetch success", "feed", src.Feed, "url", redactURL(src.URL), "bytes", len(body))
		return Result{Source: src, Body: body}, nil

	case resp.StatusCode == http.StatusNotModified:
		if len(cachedBody) == 0 {
			return Result{}, Permanent(ErrNotModifiedNoCache)
		}
		appLog.Info("feed not modified; using cache", "feed", src.Feed, "url", redactURL(src.URL))
		return Result{Source: src, Body: cachedBody, FromCache: true}, nil

	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, fmt.Errorf("unexpected status %s", resp.Status)

	default:
		return Result{}, Permanent(fmt.Errorf("unexpected status %s", resp.Status))
	}
}

func (f *Fetcher) cachedBody(rawURL string) ([]byte, bool) {
	if _, ok := localPath(rawURL); ok {
		return nil, false
	}
	body, err := f.loadCacheBody(f.cachePathForURL(rawURL))
	if err != nil || len(body) == 0 {
		return nil, false
	}
	return body, true
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	// Use first 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// localPath reports whether u names a file rather than an http(s) URL.
func localPath(u string) (string, bool) {
	if strings.HasPrefix(u, "file://") {
		parsed, err := url.Parse(u)
		if err != nil {
			return strings.TrimPrefix(u, "file://"), true
		}
		return parsed.Path, true
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return "", false
	}
	return u, true
}

// redactURL keeps only scheme and host so query tokens never reach logs.
func redactURL(u string) string {
	if _, ok := localPath(u); ok {
		return u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "feed://...(redacted)"
	}
	if parsed.Path == "" && parsed.RawQuery == "" {
		return parsed.Scheme + "://" + parsed.Host
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
