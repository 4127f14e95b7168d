package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/htmlephant/htmlephant/internal/model"
)

// overweightPageBytes is the HTML size above which a page is called out
// in the summary. Pages past 2 MB of raw HTML parse noticeably slower.
const overweightPageBytes = 2 << 20

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showSecondary controls whether the external-resource section is shown.
	showSecondary bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowSecondary controls whether secondary (external resource)
// findings are included in the output.
func WithShowSecondary(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showSecondary = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:    newBaseWriter(output),
		showSecondary: true,
		verbose:       false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writePageSummary(&sb, report)
	w.writeScopeSummary(&sb, report)
	w.writeFindings(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        HTMLEPHANT AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Sitemap:         %s\n", report.SitemapURL))
	sb.WriteString(fmt.Sprintf("Audit Date:      %s\n", report.DateAudited.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("URLs in Sitemap: %d\n", len(report.AllURLs)))
	sb.WriteString(fmt.Sprintf("Templates:       %d\n", report.TemplateCount()))
	sb.WriteString(fmt.Sprintf("Pages Analyzed:  %d\n", report.PageCount()))

	switch {
	case report.TimedOut:
		sb.WriteString("Status:          TIMED OUT (partial results)\n")
	case report.Error:
		sb.WriteString(fmt.Sprintf("Status:          ERROR - %s\n", report.ErrorMessage))
	default:
		sb.WriteString("Status:          Complete\n")
	}

	sb.WriteString("\n")
}

// writePageSummary writes one line per analyzed page with its HTML size,
// flagged byte count, and flagged percentage. Templates are emitted in
// sorted order so output is stable across runs.
func (w *SimpleWriter) writePageSummary(sb *strings.Builder, report *model.AuditReport) {
	if report.PageCount() == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGE SIZE SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	templates := make([]string, 0, len(report.Pages))
	for template := range report.Pages {
		templates = append(templates, template)
	}
	sort.Strings(templates)

	for _, template := range templates {
		for _, analysis := range report.Pages[template] {
			marker := ""
			if analysis.TotalHTMLBytes > overweightPageBytes {
				marker = "  [OVERWEIGHT]"
			}
			sb.WriteString(fmt.Sprintf("  %s\n", template))
			sb.WriteString(fmt.Sprintf("    %s\n", analysis.URL))
			sb.WriteString(fmt.Sprintf("    HTML: %s | Flagged: %s (%.1f%%)%s\n",
				formatBytes(analysis.TotalHTMLBytes),
				formatBytes(analysis.TotalFlaggedBytes()),
				analysis.FlaggedPercent(),
				marker,
			))
		}
	}
	sb.WriteString("\n")
}

// writeScopeSummary writes the shared-element analysis: primary findings
// that appear on every page or on every page of a template.
func (w *SimpleWriter) writeScopeSummary(sb *strings.Builder, report *model.AuditReport) {
	var siteWide, templateWide []model.Finding
	for _, f := range report.Aggregated {
		if f.Priority != model.PriorityPrimary {
			continue
		}
		switch {
		case f.Scope == model.ScopeSiteWide:
			siteWide = append(siteWide, f)
		case strings.Contains(f.Scope, "template-wide"):
			templateWide = append(templateWide, f)
		}
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SHARED ELEMENT ANALYSIS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(siteWide) == 0 && len(templateWide) == 0 {
		sb.WriteString("  No shared heavy elements detected across pages or templates.\n\n")
		return
	}

	if len(siteWide) > 0 {
		var total int
		for _, f := range siteWide {
			total += f.SizeBytes
		}
		sb.WriteString(fmt.Sprintf("SITE-WIDE heavy elements (found on ALL pages): %d totaling %s\n",
			len(siteWide), formatBytes(total)))
		for _, f := range siteWide {
			sb.WriteString(fmt.Sprintf("  * %s - %s - %s\n",
				f.ElementIdentifier, formatBytes(f.SizeBytes), f.Description))
		}
		sb.WriteString("\n")
	}

	if len(templateWide) > 0 {
		var total int
		for _, f := range templateWide {
			total += f.SizeBytes
		}
		sb.WriteString(fmt.Sprintf("TEMPLATE-WIDE heavy elements (shared within a template): %d totaling %s\n",
			len(templateWide), formatBytes(total)))
		for _, f := range templateWide {
			sb.WriteString(fmt.Sprintf("  * [%s] %s - %s - %s\n",
				f.Scope, f.ElementIdentifier, formatBytes(f.SizeBytes), f.Description))
		}
		sb.WriteString("\n")
	}
}

// writeFindings writes the primary and secondary finding sections.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.AuditReport) {
	primary, secondary := splitByPriority(report.Aggregated)

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PRIMARY FINDINGS - Inline HTML Weight\n")
	sb.WriteString("These elements are embedded directly in the HTML file and\n")
	sb.WriteString("contribute to its total size.\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(primary) == 0 {
		sb.WriteString("  No significant primary findings.\n\n")
	} else {
		for _, f := range primary {
			w.writeFinding(sb, f, true)
		}
	}

	if !w.showSecondary || len(secondary) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SECONDARY FINDINGS - External Resources\n")
	sb.WriteString("These are references to external files. They add minimal bytes\n")
	sb.WriteString("to the HTML itself but trigger additional HTTP requests.\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, f := range secondary {
		w.writeFinding(sb, f, false)
	}
}

// writeFinding writes one aggregated finding. Size and percentage only
// matter for primary findings; external references are listed without them.
func (w *SimpleWriter) writeFinding(sb *strings.Builder, f model.Finding, withSize bool) {
	sb.WriteString(fmt.Sprintf("  * %s\n", f.ElementIdentifier))
	sb.WriteString(fmt.Sprintf("    Purpose: %s\n", f.Description))
	if f.Visibility == model.VisibilityUserVisible {
		sb.WriteString("    Visible: Yes\n")
	} else {
		sb.WriteString("    Visible: No\n")
	}
	if withSize {
		sb.WriteString(fmt.Sprintf("    Size: %s (%.1f%% of page)\n", formatBytes(f.SizeBytes), f.PercentOfPage))
	}
	sb.WriteString(fmt.Sprintf("    Scope: %s\n", f.Scope))
	for _, page := range f.PagesFoundOn {
		sb.WriteString(fmt.Sprintf("      - %s\n", page))
	}
	if w.verbose && f.SearchableSnippet != "" {
		sb.WriteString(fmt.Sprintf("    Snippet: %s\n", f.SearchableSnippet))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by HTMLephant\n")
	sb.WriteString("https://github.com/htmlephant/htmlephant\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
