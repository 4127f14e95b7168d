package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultSamples is the number of pages sampled per URL template.
	// Three pages are enough to tell template-wide weight from page-specific
	// weight without crawling the whole site.
	DefaultSamples = 3

	// MinSamples and MaxSamples bound the --samples flag. More than ten
	// samples per template rarely changes the verdict and multiplies crawl
	// time.
	MinSamples = 1
	MaxSamples = 10

	// DefaultTimeout is the HTTP timeout for each sitemap and page request.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDelay is the politeness delay between page fetches per
	// worker. 1 second is conservative and respectful of server resources.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultWorkers is the number of concurrent page fetchers. Three
	// workers combined with the politeness delay keeps the audit gentle.
	DefaultWorkers = 3

	// DefaultUserAgent identifies the auditor when fetching sitemaps.
	// Page fetches use a browser-like User-Agent instead, because many
	// sites serve different (often slimmer) HTML to obvious bots and the
	// point is to measure what users actually download.
	DefaultUserAgent = "HTMLephant/2.0 (+https://github.com/htmlephant/htmlephant)"

	// DefaultMaxBodySize limits the response body size read per page.
	// 5MB is far beyond any sane HTML document while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxChildSitemaps caps how many child sitemaps are followed
	// from a sitemap index.
	DefaultMaxChildSitemaps = 50

	// AppName is the application name used for XDG directory paths.
	AppName = "htmlephant"
)

// Config holds all configuration options for an audit run.
// This struct is populated from CLI flags and passed through the application
// via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// SitemapURLs is the list of sitemap URLs to audit.
	// Must contain at least one URL.
	SitemapURLs []string

	// Samples is the number of pages sampled per URL template.
	// Must be between MinSamples and MaxSamples.
	Samples int

	// Timeout is the HTTP timeout for each request.
	Timeout time.Duration

	// CrawlDelay is the delay between page fetches per worker.
	CrawlDelay time.Duration

	// Workers is the number of concurrent page fetchers.
	Workers int

	// CacheDir is the directory for cached page HTML. When empty, the XDG
	// cache directory is used. Cached pages make re-runs instant and leave
	// the raw HTML around for manual inspection.
	CacheDir string

	// NoCache disables the on-disk page cache entirely.
	NoCache bool

	// NoSecondary hides secondary findings (external resources) from the
	// analysis and the report.
	NoSecondary bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .htmlephant in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the
	// config file.
	SiteConfigs *File

	// DBDir is the directory path for the SQLite audit history database.
	// When empty, the XDG data directory is used.
	DBDir string

	// SaveToDB indicates whether to persist audit results for the
	// history subcommand.
	SaveToDB bool

	// UserAgent is the User-Agent header for sitemap requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// MaxChildSitemaps caps sitemap index expansion.
	MaxChildSitemaps int
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, samples).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Samples:          DefaultSamples,
		Timeout:          DefaultTimeout,
		CrawlDelay:       DefaultCrawlDelay,
		Workers:          DefaultWorkers,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		MaxChildSitemaps: DefaultMaxChildSitemaps,
		SaveToDB:         true,
	}
}

// XDGDataDir returns the XDG data directory for HTMLephant.
// On Linux: ~/.local/share/htmlephant
// On macOS: ~/Library/Application Support/htmlephant
// On Windows: %LOCALAPPDATA%\htmlephant
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for HTMLephant.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for HTMLephant. Crawled pages
// are cached here unless --cache-dir overrides it.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
func (c *Config) Validate() error {
	if len(c.SitemapURLs) == 0 {
		return ErrNoSitemap
	}
	if c.Samples < MinSamples || c.Samples > MaxSamples {
		return ErrInvalidSamples
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
