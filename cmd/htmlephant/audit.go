package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/htmlephant/htmlephant/internal/config"
	"github.com/htmlephant/htmlephant/internal/database"
	"github.com/htmlephant/htmlephant/internal/log"
	"github.com/htmlephant/htmlephant/internal/model"
	"github.com/htmlephant/htmlephant/internal/pipeline"
	"github.com/htmlephant/htmlephant/internal/report"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [sitemap-url]",
		Short: "Audit a site's page weight from its XML sitemap",
		Long: `Audit fetches an XML sitemap, groups its URLs into path templates, and
samples a few pages per template to find heavy embedded HTML elements.

It reports:
- Heavy inline scripts, styles, JSON data islands, and SVGs
- Base64-encoded images and fonts baked into the HTML
- Which third-party service each element belongs to (tag managers,
  analytics, A/B testing, chat widgets, ...)
- Whether each element is site-wide, template-wide, or page-specific

Examples:
  # Audit a single site
  htmlephant audit https://example.com/sitemap.xml

  # Audit several sites concurrently
  htmlephant audit https://a.example/sitemap.xml https://b.example/sitemap.xml

  # Sample five pages per template and output JSON
  htmlephant audit -s 5 --json https://example.com/sitemap.xml

  # Use a custom configuration file
  htmlephant audit -c myconfig.yaml https://example.com/sitemap.xml

Configuration file (.htmlephant) example:
  defaults:
    samples: 3
  sites:
    shop.example.com:
      delaySeconds: 2
      headers:
        Cookie: "session=abc123"
      ignoreTemplates:
        - /search/{slug}`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	// Sampling and crawl behavior flags
	cmd.Flags().IntP("samples", "s", config.DefaultSamples,
		"Number of pages to sample per URL template")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each request")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Politeness delay between page fetches per worker")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent page fetchers")

	// Cache flags
	cmd.Flags().String("cache-dir", "",
		"Directory for cached page HTML (default: XDG cache directory)")
	cmd.Flags().Bool("no-cache", false,
		"Disable the on-disk page cache")

	// Analysis flags
	cmd.Flags().Bool("no-secondary", false,
		"Hide secondary findings (external scripts, stylesheets, images)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .htmlephant in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not record this run in the audit history database")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAudit(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Samples, err = cmd.Flags().GetInt("samples")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.CacheDir, err = cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}

	cfg.NoCache, err = cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}

	cfg.NoSecondary, err = cmd.Flags().GetBool("no-secondary")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	// Get positional arguments (sitemap URLs)
	cfg.SitemapURLs = args

	return cfg, nil
}

// runAudit executes the audit.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting audit",
		"sitemaps", cfg.SitemapURLs,
		"samples", cfg.Samples,
		"workers", cfg.Workers,
		"saveToDB", cfg.SaveToDB,
	)

	// Validate all sitemap URLs before any network work
	for _, sitemapURL := range cfg.SitemapURLs {
		if _, err := sitemapHost(sitemapURL); err != nil {
			return err
		}
	}

	// Open database connection if saving is enabled
	var db *database.AuditDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Use batch processor for parallel auditing if multiple sitemaps
	if len(cfg.SitemapURLs) > 1 {
		return runBatchAudit(ctx, cfg, db, logger)
	}

	// Single sitemap
	return runSequentialAudit(ctx, cfg, db, logger)
}

// runSequentialAudit audits sitemaps one at a time.
func runSequentialAudit(ctx context.Context, cfg *config.Config, db *database.AuditDB, logger *slog.Logger) error {
	for _, sitemapURL := range cfg.SitemapURLs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Get site-specific configuration keyed by sitemap host
		siteConfig := getSiteConfig(cfg, sitemapURL)

		// Create pipeline with site-specific options
		p := createPipelineForSitemap(cfg, siteConfig, logger)

		auditReport := model.NewAuditReport(sitemapURL)

		fmt.Printf("Auditing %s...\n", sitemapURL)
		startTime := time.Now()

		// Execute the pipeline
		if err := p.Execute(ctx, auditReport); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("audit failed", "sitemap", sitemapURL, "error", err)
			fmt.Fprintf(os.Stderr, "Audit error for %s: %v\n", sitemapURL, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Audit completed in %s\n\n", elapsed.Round(time.Millisecond))

		// Generate and output report
		if err := outputReport(cfg, auditReport); err != nil {
			logger.Error("report failed", "sitemap", sitemapURL, "error", err)
		}

		// Save to database if enabled
		if err := saveAuditReport(ctx, db, auditReport, logger); err != nil {
			logger.Error("failed to save audit report", "sitemap", sitemapURL, "error", err)
		}
	}

	return nil
}

// runBatchAudit audits multiple sitemaps concurrently using BatchProcessor.
func runBatchAudit(ctx context.Context, cfg *config.Config, db *database.AuditDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch audit of %d sitemaps...\n\n", len(cfg.SitemapURLs))

	startTime := time.Now()

	// Warn user about batch processing limitation
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch processing uses default site config only; site-specific configs (headers, samples, delay) are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Audit sitemaps one at a time to apply per-site settings.\n\n")
	}

	// Create batch processor with pipeline factory
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			// Note: For batch processing, we use default site config
			// Site-specific configs would require per-sitemap pipeline creation
			var siteConfig config.SiteConfig
			if cfg.SiteConfigs != nil {
				siteConfig = cfg.SiteConfigs.Defaults
			}
			return createPipelineForSitemap(cfg, siteConfig, logger)
		},
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.SitemapURLs, func(auditReport *model.AuditReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Audit completed: %s\n", index+1, len(cfg.SitemapURLs), auditReport.SitemapURL)

		// Generate and output report
		if err := outputReport(cfg, auditReport); err != nil {
			logger.Error("report failed", "sitemap", auditReport.SitemapURL, "error", err)
		}

		// Save to database if enabled
		if err := saveAuditReport(ctx, db, auditReport, logger); err != nil {
			logger.Error("failed to save audit report", "sitemap", auditReport.SitemapURL, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch audit completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// sitemapHost extracts the hostname from a sitemap URL.
// Site-specific configuration is keyed by this hostname.
func sitemapHost(sitemapURL string) (string, error) {
	u, err := url.Parse(sitemapURL)
	if err != nil {
		return "", fmt.Errorf("invalid sitemap URL %q: %w", sitemapURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid sitemap URL %q: scheme must be http or https", sitemapURL)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid sitemap URL %q: missing host", sitemapURL)
	}
	return u.Hostname(), nil
}

// getSiteConfig returns the site-specific configuration for a sitemap URL.
// Falls back to defaults if no site-specific config exists.
func getSiteConfig(cfg *config.Config, sitemapURL string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}

	host, err := sitemapHost(sitemapURL)
	if err != nil {
		return cfg.SiteConfigs.Defaults
	}

	return cfg.SiteConfigs.GetSiteConfig(host)
}

// createPipelineForSitemap creates a pipeline with the given configuration.
func createPipelineForSitemap(cfg *config.Config, siteConfig config.SiteConfig, logger *slog.Logger) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
	}

	// Determine sample count (site-specific overrides global)
	samples := cfg.Samples
	if siteConfig.Samples > 0 {
		samples = siteConfig.Samples
	}

	// Determine crawl delay (site-specific overrides global)
	crawlDelay := cfg.CrawlDelay
	if siteConfig.DelaySeconds > 0 {
		crawlDelay = time.Duration(siteConfig.DelaySeconds * float64(time.Second))
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineSamples(samples),
		pipeline.WithPipelineCrawlDelay(crawlDelay),
		pipeline.WithPipelineWorkers(cfg.Workers),
		pipeline.WithPipelineUserAgent(cfg.UserAgent),
		pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
		pipeline.WithPipelineMaxChildSitemaps(cfg.MaxChildSitemaps),
		pipeline.WithPipelineSecondary(!cfg.NoSecondary),
		pipeline.WithPipelineHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		pipeline.WithPipelineStepLogger(logger),
	}

	// Enable the on-disk page cache unless disabled
	if !cfg.NoCache {
		cacheDir := cfg.CacheDir
		if cacheDir == "" {
			cacheDir = config.XDGCacheDir()
		}
		configOpts = append(configOpts, pipeline.WithPipelineCacheDir(cacheDir))
	}

	// Add custom headers if configured
	if len(siteConfig.Headers) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineHeaders(siteConfig.Headers))
	}

	// Add template filtering if configured
	if len(siteConfig.IgnoreTemplates) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineIgnoreTemplates(siteConfig.IgnoreTemplates))
	}

	return pipeline.DefaultPipeline(pipelineOpts, configOpts...)
}

// outputReport outputs the audit report in the requested format.
func outputReport(cfg *config.Config, auditReport *model.AuditReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with secure permissions (0600)
		// Reports may contain page snippets including auth'd content
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output
	if cfg.JSONReport {
		writer := report.NewJSONWriter(output, report.WithPrettyPrint())
		_, err := writer.Write(auditReport)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(auditReport)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output,
		report.WithShowSecondary(!cfg.NoSecondary),
	)
	_, err := writer.Write(auditReport)
	return err
}

// saveAuditReport saves the audit report to the database if enabled.
// If db is nil, this function is a no-op.
func saveAuditReport(ctx context.Context, db *database.AuditDB, auditReport *model.AuditReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveAuditReport(ctx, auditReport); err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	logger.Info("audit report saved to database",
		"sitemap", auditReport.SitemapURL,
		"runID", auditReport.RunID,
	)
	return nil
}
