package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/htmlephant/htmlephant/internal/aggregate"
	"github.com/htmlephant/htmlephant/internal/analyzer"
	"github.com/htmlephant/htmlephant/internal/config"
	"github.com/htmlephant/htmlephant/internal/crawler"
	"github.com/htmlephant/htmlephant/internal/model"
	"github.com/htmlephant/htmlephant/internal/sitemap"
)

// ParseSitemapStep fetches the sitemap, resolves sitemap indexes, and
// groups the URL inventory into path templates.
//
// Design decision: Fetching and grouping live in one step because the
// template groups are the unit every later step works in; a URL list
// without its grouping is never useful on its own.
type ParseSitemapStep struct {
	// fetcher retrieves and parses sitemap XML.
	fetcher *sitemap.Fetcher

	// logger for structured logging.
	logger *slog.Logger
}

// ParseSitemapStepOption configures a ParseSitemapStep.
type ParseSitemapStepOption func(*ParseSitemapStep)

// WithSitemapFetcher sets a custom sitemap fetcher.
func WithSitemapFetcher(fetcher *sitemap.Fetcher) ParseSitemapStepOption {
	return func(s *ParseSitemapStep) {
		s.fetcher = fetcher
	}
}

// WithParseSitemapLogger sets a custom logger for the sitemap step.
func WithParseSitemapLogger(logger *slog.Logger) ParseSitemapStepOption {
	return func(s *ParseSitemapStep) {
		s.logger = logger
	}
}

// NewParseSitemapStep creates a new sitemap parsing step.
func NewParseSitemapStep(opts ...ParseSitemapStepOption) *ParseSitemapStep {
	s := &ParseSitemapStep{
		fetcher: sitemap.NewFetcher(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ParseSitemapStep) Name() string {
	return "parse_sitemap"
}

// Do executes the sitemap parsing step.
func (s *ParseSitemapStep) Do(ctx context.Context, report *model.AuditReport) error {
	urls, err := s.fetcher.FetchAllURLs(ctx, report.SitemapURL)
	if err != nil {
		return fmt.Errorf("parse sitemap: %w", err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("parse sitemap: no URLs found in %s", report.SitemapURL)
	}

	report.AllURLs = urls
	report.TemplateGroups = sitemap.GroupByTemplate(urls)

	s.logger.Info("sitemap parsed",
		"urls", len(report.AllURLs),
		"templates", report.TemplateCount(),
	)

	return nil
}

// SelectSamplesStep picks the pages to crawl from each template group.
type SelectSamplesStep struct {
	// perTemplate is how many pages to sample from each template.
	perTemplate int

	// ignoreTemplates are template keys excluded from sampling entirely.
	ignoreTemplates []string

	// rng drives sample selection. Injectable so tests are reproducible.
	rng *rand.Rand

	// logger for structured logging.
	logger *slog.Logger
}

// SelectSamplesStepOption configures a SelectSamplesStep.
type SelectSamplesStepOption func(*SelectSamplesStep)

// WithSamplesPerTemplate sets how many pages to sample per template.
func WithSamplesPerTemplate(n int) SelectSamplesStepOption {
	return func(s *SelectSamplesStep) {
		if n > 0 {
			s.perTemplate = n
		}
	}
}

// WithIgnoreTemplates excludes template keys from sampling
// (e.g., "/search/{slug}" pages that are not worth auditing).
func WithIgnoreTemplates(templates []string) SelectSamplesStepOption {
	return func(s *SelectSamplesStep) {
		s.ignoreTemplates = templates
	}
}

// WithSampleRand sets the random source used for sampling.
func WithSampleRand(rng *rand.Rand) SelectSamplesStepOption {
	return func(s *SelectSamplesStep) {
		s.rng = rng
	}
}

// WithSelectSamplesLogger sets a custom logger for the sampling step.
func WithSelectSamplesLogger(logger *slog.Logger) SelectSamplesStepOption {
	return func(s *SelectSamplesStep) {
		s.logger = logger
	}
}

// NewSelectSamplesStep creates a new sample selection step.
func NewSelectSamplesStep(opts ...SelectSamplesStepOption) *SelectSamplesStep {
	s := &SelectSamplesStep{
		perTemplate: config.DefaultSamples,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // Sampling needs no crypto randomness
	}

	return s
}

// Name returns the step name.
func (s *SelectSamplesStep) Name() string {
	return "select_samples"
}

// Do executes the sample selection step.
func (s *SelectSamplesStep) Do(_ context.Context, report *model.AuditReport) error {
	groups := report.TemplateGroups
	if len(s.ignoreTemplates) > 0 {
		groups = make(map[string][]string, len(report.TemplateGroups))
		for template, urls := range report.TemplateGroups {
			groups[template] = urls
		}
		for _, template := range s.ignoreTemplates {
			delete(groups, template)
		}
	}

	baseURL, err := siteBaseURL(report.SitemapURL)
	if err != nil {
		return fmt.Errorf("select samples: %w", err)
	}

	report.Samples = sitemap.SelectSamples(groups, s.perTemplate, baseURL, s.rng)

	var total int
	for _, urls := range report.Samples {
		total += len(urls)
	}
	s.logger.Info("samples selected",
		"templates", len(report.Samples),
		"pages", total,
	)

	return nil
}

// siteBaseURL derives the site root from the sitemap URL, e.g.
// "https://example.com/sitemap.xml" -> "https://example.com".
func siteBaseURL(sitemapURL string) (string, error) {
	parsed, err := url.Parse(sitemapURL)
	if err != nil {
		return "", fmt.Errorf("invalid sitemap URL %q: %w", sitemapURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("sitemap URL %q has no scheme or host", sitemapURL)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

// CrawlPagesStep fetches the raw HTML of every sampled page.
type CrawlPagesStep struct {
	// crawler performs the concurrent fetching.
	crawler *crawler.Crawler

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlPagesStepOption configures a CrawlPagesStep.
type CrawlPagesStepOption func(*CrawlPagesStep)

// WithCrawler sets a custom crawler.
func WithCrawler(c *crawler.Crawler) CrawlPagesStepOption {
	return func(s *CrawlPagesStep) {
		s.crawler = c
	}
}

// WithCrawlPagesLogger sets a custom logger for the crawl step.
func WithCrawlPagesLogger(logger *slog.Logger) CrawlPagesStepOption {
	return func(s *CrawlPagesStep) {
		s.logger = logger
	}
}

// NewCrawlPagesStep creates a new page crawling step.
func NewCrawlPagesStep(opts ...CrawlPagesStepOption) *CrawlPagesStep {
	s := &CrawlPagesStep{
		crawler: crawler.New(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlPagesStep) Name() string {
	return "crawl_pages"
}

// Do executes the crawl step.
func (s *CrawlPagesStep) Do(ctx context.Context, report *model.AuditReport) error {
	if len(report.Samples) == 0 {
		s.logger.Debug("skipping crawl, no samples selected")
		return nil
	}

	pages, err := s.crawler.CrawlPages(ctx, report.Samples)
	if err != nil {
		return fmt.Errorf("crawl pages: %w", err)
	}

	report.RawPages = pages

	var fetched, failed int
	for _, byURL := range pages {
		for _, html := range byURL {
			if html == "" {
				failed++
			} else {
				fetched++
			}
		}
	}
	s.logger.Info("crawl completed",
		"fetched", fetched,
		"failed", failed,
	)

	return nil
}

// AnalyzePagesStep runs the heavy-element detectors over every crawled page.
type AnalyzePagesStep struct {
	// analyzer runs the detector registry.
	analyzer *analyzer.Analyzer

	// logger for structured logging.
	logger *slog.Logger
}

// AnalyzePagesStepOption configures an AnalyzePagesStep.
type AnalyzePagesStepOption func(*AnalyzePagesStep)

// WithAnalyzer sets a custom analyzer.
func WithAnalyzer(a *analyzer.Analyzer) AnalyzePagesStepOption {
	return func(s *AnalyzePagesStep) {
		s.analyzer = a
	}
}

// WithAnalyzePagesLogger sets a custom logger for the analysis step.
func WithAnalyzePagesLogger(logger *slog.Logger) AnalyzePagesStepOption {
	return func(s *AnalyzePagesStep) {
		s.logger = logger
	}
}

// NewAnalyzePagesStep creates a new page analysis step.
func NewAnalyzePagesStep(opts ...AnalyzePagesStepOption) *AnalyzePagesStep {
	s := &AnalyzePagesStep{
		analyzer: analyzer.New(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *AnalyzePagesStep) Name() string {
	return "analyze_pages"
}

// Do executes the analysis step. Pages whose fetch failed (empty HTML)
// are skipped; a page that fails to parse is logged and skipped so one
// broken page never sinks the audit.
func (s *AnalyzePagesStep) Do(ctx context.Context, report *model.AuditReport) error {
	if report.Pages == nil {
		report.Pages = make(map[string][]*model.PageAnalysis)
	}

	// Iterate the sample lists rather than the RawPages map so analyses
	// keep the sampling order. Aggregation picks its representative
	// finding from the first page it sees.
	for template, urls := range report.Samples {
		for _, pageURL := range urls {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			html := report.RawPages[template][pageURL]
			if html == "" {
				s.logger.Debug("skipping unfetched page", "url", pageURL)
				continue
			}

			analysis, err := s.analyzer.Analyze(pageURL, html)
			if err != nil {
				s.logger.Warn("failed to analyze page", "url", pageURL, "error", err)
				continue
			}

			report.Pages[template] = append(report.Pages[template], analysis)
		}
	}

	s.logger.Info("analysis completed",
		"pages", report.PageCount(),
	)

	return nil
}

// AggregateFindingsStep merges per-page findings across the whole run and
// infers each finding's scope.
type AggregateFindingsStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// AggregateFindingsStepOption configures an AggregateFindingsStep.
type AggregateFindingsStepOption func(*AggregateFindingsStep)

// WithAggregateLogger sets a custom logger for the aggregation step.
func WithAggregateLogger(logger *slog.Logger) AggregateFindingsStepOption {
	return func(s *AggregateFindingsStep) {
		s.logger = logger
	}
}

// NewAggregateFindingsStep creates a new aggregation step.
func NewAggregateFindingsStep(opts ...AggregateFindingsStepOption) *AggregateFindingsStep {
	s := &AggregateFindingsStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *AggregateFindingsStep) Name() string {
	return "aggregate_findings"
}

// Do executes the aggregation step.
func (s *AggregateFindingsStep) Do(_ context.Context, report *model.AuditReport) error {
	report.Aggregated = aggregate.Aggregate(report.Pages)

	s.logger.Info("aggregation completed",
		"findings", len(report.Aggregated),
	)

	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Samples is how many pages to sample per template.
	Samples int

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// IgnoreTemplates are template keys to skip during sampling.
	IgnoreTemplates []string

	// CrawlDelay is the delay between HTTP requests during crawling.
	// This is a "politeness" setting to avoid overwhelming sites.
	CrawlDelay time.Duration

	// Workers is the number of concurrent page fetchers.
	Workers int

	// CacheDir enables the on-disk HTML cache when non-empty.
	CacheDir string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	MaxBodySize int64

	// MaxChildSitemaps caps how many child sitemaps of an index are fetched.
	MaxChildSitemaps int

	// IncludeSecondary controls whether external-resource detectors run.
	IncludeSecondary bool

	// HTTPClient is shared by the sitemap fetcher and the crawler.
	HTTPClient *http.Client

	// SampleRand drives sample selection; nil seeds from the clock.
	SampleRand *rand.Rand

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineSamples sets how many pages to sample per template.
func WithPipelineSamples(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Samples = n
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineIgnoreTemplates sets template keys to skip during sampling.
func WithPipelineIgnoreTemplates(templates []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnoreTemplates = templates
	}
}

// WithPipelineCrawlDelay sets the delay between HTTP requests during
// crawling. A minimum of 500ms is recommended; 1s is the default.
func WithPipelineCrawlDelay(delay time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDelay = delay
	}
}

// WithPipelineWorkers sets the number of concurrent page fetchers.
func WithPipelineWorkers(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Workers = n
	}
}

// WithPipelineCacheDir enables the on-disk HTML cache.
func WithPipelineCacheDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CacheDir = dir
	}
}

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineMaxChildSitemaps caps how many child sitemaps are fetched.
func WithPipelineMaxChildSitemaps(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxChildSitemaps = n
	}
}

// WithPipelineSecondary controls whether external-resource detectors run.
func WithPipelineSecondary(include bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IncludeSecondary = include
	}
}

// WithPipelineHTTPClient sets the HTTP client shared by all network steps.
func WithPipelineHTTPClient(client *http.Client) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.HTTPClient = client
	}
}

// WithPipelineSampleRand sets the random source for sample selection.
func WithPipelineSampleRand(rng *rand.Rand) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SampleRand = rng
	}
}

// WithPipelineStepLogger sets the logger passed to every step.
func WithPipelineStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates a pipeline with all audit steps configured in
// the standard order: parse sitemap, select samples, crawl, analyze,
// aggregate.
//
// Design decision: We provide a default pipeline because:
// 1. Most users want the full audit
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineSamples, etc).
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		Samples:          config.DefaultSamples,
		CrawlDelay:       config.DefaultCrawlDelay,
		Workers:          config.DefaultWorkers,
		UserAgent:        config.DefaultUserAgent,
		MaxBodySize:      config.DefaultMaxBodySize,
		MaxChildSitemaps: config.DefaultMaxChildSitemaps,
		IncludeSecondary: true,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fetcherOpts := []sitemap.FetcherOption{
		sitemap.WithUserAgent(cfg.UserAgent),
		sitemap.WithMaxChildSitemaps(cfg.MaxChildSitemaps),
		sitemap.WithLogger(cfg.Logger),
	}
	if len(cfg.Headers) > 0 {
		fetcherOpts = append(fetcherOpts, sitemap.WithHeaders(cfg.Headers))
	}
	if cfg.HTTPClient != nil {
		fetcherOpts = append(fetcherOpts, sitemap.WithHTTPClient(cfg.HTTPClient))
	}

	crawlerOpts := []crawler.Option{
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithCacheDir(cfg.CacheDir),
		crawler.WithMaxBodyBytes(cfg.MaxBodySize),
		crawler.WithLogger(cfg.Logger),
	}
	if len(cfg.Headers) > 0 {
		crawlerOpts = append(crawlerOpts, crawler.WithHeaders(cfg.Headers))
	}
	if cfg.HTTPClient != nil {
		crawlerOpts = append(crawlerOpts, crawler.WithHTTPClient(cfg.HTTPClient))
	}

	analyzerOpts := []func(*analyzer.Options){
		analyzer.WithLogger(cfg.Logger),
	}
	if !cfg.IncludeSecondary {
		analyzerOpts = append(analyzerOpts, analyzer.WithoutSecondary())
	}

	sampleOpts := []SelectSamplesStepOption{
		WithSamplesPerTemplate(cfg.Samples),
		WithSelectSamplesLogger(cfg.Logger),
	}
	if len(cfg.IgnoreTemplates) > 0 {
		sampleOpts = append(sampleOpts, WithIgnoreTemplates(cfg.IgnoreTemplates))
	}
	if cfg.SampleRand != nil {
		sampleOpts = append(sampleOpts, WithSampleRand(cfg.SampleRand))
	}

	p.AddSteps(
		NewParseSitemapStep(
			WithSitemapFetcher(sitemap.NewFetcher(fetcherOpts...)),
			WithParseSitemapLogger(cfg.Logger),
		),
		NewSelectSamplesStep(sampleOpts...),
		NewCrawlPagesStep(
			WithCrawler(crawler.New(crawlerOpts...)),
			WithCrawlPagesLogger(cfg.Logger),
		),
		NewAnalyzePagesStep(
			WithAnalyzer(analyzer.New(analyzerOpts...)),
			WithAnalyzePagesLogger(cfg.Logger),
		),
		NewAggregateFindingsStep(
			WithAggregateLogger(cfg.Logger),
		),
	)

	return p
}
