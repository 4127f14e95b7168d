// Package crawler fetches the raw HTML of sampled pages with bounded
// concurrency, a politeness delay, and an on-disk cache so repeated audits
// of the same site do not hammer it.
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults for page fetching.
const (
	// DefaultDelay is the pause after each fetch, per worker.
	DefaultDelay = time.Second

	// DefaultWorkers is the number of concurrent fetchers.
	DefaultWorkers = 3

	// DefaultMaxBodyBytes caps how much of a response body is read. Pages
	// larger than this are truncated rather than ballooning memory.
	DefaultMaxBodyBytes = 5 << 20
)

// defaultUserAgent mimics a real browser so bot-hostile sites serve the same
// HTML they serve users, while still identifying the tool at the end.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 HTMLephant/2.0"

// Crawler fetches pages for analysis.
type Crawler struct {
	client       *http.Client
	userAgent    string
	headers      map[string]string
	delay        time.Duration
	workers      int
	cacheDir     string
	maxBodyBytes int64
	logger       *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) { c.client = client }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) { c.userAgent = ua }
}

// WithHeaders sets extra headers sent with every page request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Crawler) { c.headers = headers }
}

// WithDelay sets the per-worker pause after each fetch.
func WithDelay(delay time.Duration) Option {
	return func(c *Crawler) { c.delay = delay }
}

// WithWorkers sets the number of concurrent fetchers.
func WithWorkers(n int) Option {
	return func(c *Crawler) { c.workers = n }
}

// WithCacheDir enables the on-disk HTML cache in the given directory.
// An empty dir disables caching.
func WithCacheDir(dir string) Option {
	return func(c *Crawler) { c.cacheDir = dir }
}

// WithMaxBodyBytes caps the response body size read per page.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Crawler) { c.maxBodyBytes = n }
}

// WithLogger sets the logger for fetch progress and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// New creates a Crawler with browser-like defaults.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		client:       &http.Client{Timeout: 30 * time.Second},
		userAgent:    defaultUserAgent,
		delay:        DefaultDelay,
		workers:      DefaultWorkers,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return c
}

// CrawlPages fetches every sampled URL and returns the HTML keyed by
// template and URL. A failed fetch stores an empty string for its URL so the
// caller can skip it; only context cancellation aborts the whole crawl.
func (c *Crawler) CrawlPages(ctx context.Context, samples map[string][]string) (map[string]map[string]string, error) {
	results := make(map[string]map[string]string, len(samples))
	for template := range samples {
		results[template] = make(map[string]string)
	}

	type task struct {
		template string
		url      string
	}
	var tasks []task
	for template, urls := range samples {
		for _, u := range urls {
			tasks = append(tasks, task{template: template, url: u})
		}
	}

	if c.cacheDir != "" {
		if err := os.MkdirAll(c.cacheDir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, t := range tasks {
		g.Go(func() error {
			html, err := c.fetchWithCache(ctx, t.template, t.url)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Warn("failed to fetch page", "url", t.url, "error", err)
				html = ""
			}
			mu.Lock()
			results[t.template][t.url] = html
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchWithCache returns cached HTML when available, otherwise fetches the
// page, stores it, and applies the politeness delay.
func (c *Crawler) fetchWithCache(ctx context.Context, template, pageURL string) (string, error) {
	cachePath := ""
	if c.cacheDir != "" {
		cachePath = filepath.Join(c.cacheDir, cacheFilename(template, pageURL))
		if data, err := os.ReadFile(cachePath); err == nil { //nolint:gosec // Path built from sanitized names
			c.logger.Debug("cache hit", "url", pageURL)
			return string(data), nil
		}
	}

	html, err := c.FetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if cachePath != "" {
		if err := os.WriteFile(cachePath, []byte(html), 0o600); err != nil {
			c.logger.Warn("failed to write cache file", "path", cachePath, "error", err)
		}
	}

	// Polite delay between requests on this worker.
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return html, nil
		}
	}
	return html, nil
}

// FetchPage fetches the raw HTML of a single page.
func (c *Crawler) FetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch page %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read page %s: %w", pageURL, err)
	}
	return string(body), nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// cacheFilename builds a filesystem-safe cache file name from the template
// and the page URL. Both parts are sanitized so neither can escape the cache
// directory.
func cacheFilename(template, pageURL string) string {
	safeTemplate := unsafeChars.ReplaceAllString(strings.Trim(template, "/"), "_")
	if safeTemplate == "" {
		safeTemplate = "root"
	}

	pathPart := "index"
	if parsed, err := url.Parse(pageURL); err == nil {
		if p := strings.ReplaceAll(strings.Trim(parsed.Path, "/"), "/", "_"); p != "" {
			pathPart = p
		}
	}
	return safeTemplate + "_" + unsafeChars.ReplaceAllString(pathPart, "_") + ".html"
}
