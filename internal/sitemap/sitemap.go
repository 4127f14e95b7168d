// Package sitemap fetches XML sitemaps, extracts page URLs, groups them by
// URL template, and selects sample pages per template for analysis.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// MaxChildSitemaps caps how many child sitemaps are followed from a sitemap
// index so a huge index cannot turn one audit into thousands of fetches.
const MaxChildSitemaps = 50

// Fetcher downloads sitemaps and resolves sitemap indexes into a flat,
// deduplicated URL list.
type Fetcher struct {
	client           *http.Client
	userAgent        string
	headers          map[string]string
	maxChildSitemaps int
	logger           *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client used for sitemap fetches.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = client }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithHeaders sets extra HTTP headers sent with every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) { f.headers = headers }
}

// WithMaxChildSitemaps overrides the child sitemap limit.
func WithMaxChildSitemaps(n int) FetcherOption {
	return func(f *Fetcher) { f.maxChildSitemaps = n }
}

// WithLogger sets the logger for fetch progress and failures.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher creates a sitemap fetcher with sane defaults.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:           &http.Client{Timeout: 30 * time.Second},
		userAgent:        "HTMLephant/2.0 (+https://github.com/htmlephant/htmlephant)",
		maxChildSitemaps: MaxChildSitemaps,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// sitemapDoc is the union of <urlset> and <sitemapindex> documents. The root
// element name tells which one was parsed.
type sitemapDoc struct {
	XMLName  xml.Name
	Sitemaps []locEntry `xml:"sitemap"`
	URLs     []locEntry `xml:"url"`
}

type locEntry struct {
	Loc string `xml:"loc"`
}

func (d *sitemapDoc) isIndex() bool {
	return d.XMLName.Local == "sitemapindex"
}

func (d *sitemapDoc) locs() []string {
	entries := d.URLs
	if d.isIndex() {
		entries = d.Sitemaps
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if loc := strings.TrimSpace(e.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls
}

// FetchAllURLs fetches the sitemap at sitemapURL and returns every page URL
// it lists, in order, deduplicated. Sitemap indexes are resolved one level
// deep; failed child fetches are logged and skipped so one broken child
// sitemap does not sink the audit.
func (f *Fetcher) FetchAllURLs(ctx context.Context, sitemapURL string) ([]string, error) {
	f.logger.Info("fetching sitemap", "url", sitemapURL)

	doc, err := f.fetchDoc(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	if !doc.isIndex() {
		urls := doc.locs()
		f.logger.Info("sitemap parsed", "urls", len(urls))
		return dedupe(urls), nil
	}

	children := doc.locs()
	f.logger.Info("sitemap index found", "children", len(children))
	if len(children) > f.maxChildSitemaps {
		children = children[:f.maxChildSitemaps]
	}

	var pageURLs []string
	for _, childURL := range children {
		child, err := f.fetchDoc(ctx, childURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("failed to fetch child sitemap", "url", childURL, "error", err)
			continue
		}
		pageURLs = append(pageURLs, child.locs()...)
	}
	return dedupe(pageURLs), nil
}

func (f *Fetcher) fetchDoc(ctx context.Context, url string) (*sitemapDoc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sitemap request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml, text/xml, */*")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch sitemap %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sitemap %s: %w", url, err)
	}

	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", url, err)
	}
	return &doc, nil
}

// dedupe removes duplicates while preserving first-seen order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
