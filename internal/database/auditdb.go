package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/htmlephant/htmlephant/internal/model"
)

// dbFileName is the SQLite database file name inside the data directory.
const dbFileName = "htmlephant.db"

// AuditDB provides SQLite-based storage for audit run history.
// It manages connection pooling and provides methods for saving and
// retrieving past audit reports.
//
// Design decision: We use a single database file for all audited sites
// rather than one file per sitemap. This keeps the history subcommand a
// single query and simplifies backup/restore operations.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; the history workload is tiny so a
	// single pooled connection is enough.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- Audit runs store complete audit reports as JSON plus summary
	-- columns so history listings never need to parse the full report.
	CREATE TABLE IF NOT EXISTS audit_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		sitemap_url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		pages_analyzed INTEGER NOT NULL DEFAULT 0,
		templates_found INTEGER NOT NULL DEFAULT 0,
		primary_findings INTEGER NOT NULL DEFAULT 0,
		secondary_findings INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_sitemap ON audit_runs(sitemap_url);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON audit_runs(timestamp);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAuditReport saves a complete audit report.
// The full report is stored as JSON alongside summary columns for listing.
// The stored payload uses the lossless storage form (see storage.go), not the
// report-facing marshalers, so a replayed run restores raw byte counts and
// subcomponent flags.
func (adb *AuditDB) SaveAuditReport(ctx context.Context, report *model.AuditReport) error {
	if report.RunID == "" {
		return errors.New("audit report has no run ID")
	}

	reportJSON, err := json.Marshal(newStoredReport(report))
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	var primary, secondary int
	for _, f := range report.Aggregated {
		if f.Priority == model.PriorityPrimary {
			primary++
		} else {
			secondary++
		}
	}

	query := `
	INSERT INTO audit_runs (run_id, sitemap_url, timestamp, pages_analyzed, templates_found, primary_findings, secondary_findings, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = adb.db.ExecContext(ctx, query,
		report.RunID,
		report.SitemapURL,
		report.DateAudited.UTC().Format("2006-01-02 15:04:05"),
		report.PageCount(),
		report.TemplateCount(),
		primary,
		secondary,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	return nil
}

// GetLatestAuditReport retrieves the most recent audit report for a sitemap.
// Returns nil without error when no run exists for the sitemap.
func (adb *AuditDB) GetLatestAuditReport(ctx context.Context, sitemapURL string) (*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audit_runs
	WHERE sitemap_url = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, sitemapURL).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var stored storedReport
	if err := json.Unmarshal([]byte(reportJSON), &stored); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return stored.toReport(), nil
}

// GetAuditReportByRunID retrieves a stored report by its run ID.
// Returns nil without error when no such run exists.
func (adb *AuditDB) GetAuditReportByRunID(ctx context.Context, runID string) (*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audit_runs
	WHERE run_id = ?
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var stored storedReport
	if err := json.Unmarshal([]byte(reportJSON), &stored); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return stored.toReport(), nil
}

// AuditRunMetadata contains summary information about a stored audit run.
// This is used for displaying run history without loading the full report.
type AuditRunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// RunID is the UUID assigned when the run started.
	RunID string

	// SitemapURL is the audited sitemap.
	SitemapURL string

	// Timestamp is when the audit was performed.
	Timestamp time.Time

	// PagesAnalyzed is the number of pages that were analyzed.
	PagesAnalyzed int

	// TemplatesFound is the number of URL templates found in the sitemap.
	TemplatesFound int

	// PrimaryFindings is the count of aggregated inline-weight findings.
	PrimaryFindings int

	// SecondaryFindings is the count of aggregated external-resource findings.
	SecondaryFindings int
}

// ListAuditRuns retrieves metadata for recent audit runs across all
// sitemaps, most recent first. If sitemapURL is non-empty, only runs for
// that sitemap are returned. A limit of 0 means no limit.
func (adb *AuditDB) ListAuditRuns(ctx context.Context, sitemapURL string, limit int) ([]AuditRunMetadata, error) {
	query := `
	SELECT id, run_id, sitemap_url, timestamp, pages_analyzed, templates_found, primary_findings, secondary_findings
	FROM audit_runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if sitemapURL != "" {
		query += " AND sitemap_url = ?"
		args = append(args, sitemapURL)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit runs: %w", err)
	}
	defer rows.Close()

	var results []AuditRunMetadata
	for rows.Next() {
		var meta AuditRunMetadata
		var timestamp string

		if err := rows.Scan(
			&meta.ID,
			&meta.RunID,
			&meta.SitemapURL,
			&timestamp,
			&meta.PagesAnalyzed,
			&meta.TemplatesFound,
			&meta.PrimaryFindings,
			&meta.SecondaryFindings,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListAuditedSitemaps returns the distinct sitemap URLs with stored runs.
func (adb *AuditDB) ListAuditedSitemaps(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT sitemap_url FROM audit_runs
	ORDER BY sitemap_url
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sitemaps: %w", err)
	}
	defer rows.Close()

	var sitemaps []string
	for rows.Next() {
		var sitemap string
		if err := rows.Scan(&sitemap); err != nil {
			return nil, fmt.Errorf("failed to scan sitemap: %w", err)
		}
		sitemaps = append(sitemaps, sitemap)
	}

	return sitemaps, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
