package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/htmlephant/htmlephant/internal/config"
	"github.com/htmlephant/htmlephant/internal/database"
	"github.com/htmlephant/htmlephant/internal/report"
)

// NewHistoryCmd creates the history command.
// This command lists and replays audit runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [sitemap-url]",
		Short: "Show past audit runs stored in the database",
		Long: `History lists audit runs recorded by previous 'htmlephant audit' invocations.

Without arguments it lists recent runs across all sitemaps. With a sitemap
URL it lists only the runs for that sitemap. A stored run can be replayed
in full with --run-id.

Examples:
  # List the most recent audit runs
  htmlephant history

  # List runs for a specific sitemap
  htmlephant history https://example.com/sitemap.xml

  # List all sitemaps with stored runs
  htmlephant history --list-sitemaps

  # Replay a stored run as a full report
  htmlephant history --run-id 9b2f1c4e-...

  # Replay a stored run as JSON
  htmlephant history --run-id 9b2f1c4e-... --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 for no limit)")
	cmd.Flags().BoolP("list-sitemaps", "L", false,
		"List all sitemaps with stored runs")
	cmd.Flags().StringP("run-id", "r", "",
		"Replay the stored report for a specific run ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output replayed report in JSON format")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// History only reads; never create an empty database here.
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return errors.New("no audit history found (run 'htmlephant audit' first)")
	}
	defer db.Close()

	ctx := cmd.Context()

	// Handle --list-sitemaps
	listSitemaps, err := cmd.Flags().GetBool("list-sitemaps")
	if err != nil {
		return err
	}
	if listSitemaps {
		sitemaps, err := db.ListAuditedSitemaps(ctx)
		if err != nil {
			return err
		}
		if len(sitemaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No audited sitemaps in the database.")
			return nil
		}
		for _, sitemap := range sitemaps {
			fmt.Fprintln(cmd.OutOrStdout(), sitemap)
		}
		return nil
	}

	// Handle --run-id: replay a stored report
	runID, err := cmd.Flags().GetString("run-id")
	if err != nil {
		return err
	}
	if runID != "" {
		return replayRun(cmd, db, runID)
	}

	// Default: list recent runs, optionally filtered by sitemap
	var sitemapURL string
	if len(args) == 1 {
		sitemapURL = args[0]
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	runs, err := db.ListAuditRuns(ctx, sitemapURL, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit runs found.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  (%s)\n",
			run.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Time(run.Timestamp),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "  sitemap:  %s\n", run.SitemapURL)
		fmt.Fprintf(cmd.OutOrStdout(), "  run ID:   %s\n", run.RunID)
		fmt.Fprintf(cmd.OutOrStdout(), "  pages: %d  templates: %d  primary: %d  secondary: %d\n\n",
			run.PagesAnalyzed,
			run.TemplatesFound,
			run.PrimaryFindings,
			run.SecondaryFindings,
		)
	}

	return nil
}

// replayRun renders the stored report for a run ID.
func replayRun(cmd *cobra.Command, db *database.AuditDB, runID string) error {
	auditReport, err := db.GetAuditReportByRunID(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if auditReport == nil {
		return fmt.Errorf("no audit run found with ID %s", runID)
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if asJSON {
		writer := report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
		_, err = writer.Write(auditReport)
		return err
	}

	writer := report.NewSimpleWriter(cmd.OutOrStdout())
	_, err = writer.Write(auditReport)
	return err
}
