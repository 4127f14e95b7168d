package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/htmlephant/htmlephant/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writePageSummary(md, report)
	w.writeFindings(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("HTMLephant Audit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Sitemap", "`" + report.SitemapURL + "`"},
			{"Audit Date", report.DateAudited.Format("2006-01-02 15:04:05 MST")},
			{"URLs in Sitemap", strconv.Itoa(len(report.AllURLs))},
			{"Templates", strconv.Itoa(report.TemplateCount())},
			{"Pages Analyzed", strconv.Itoa(report.PageCount())},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.AuditReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.Error {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writePageSummary writes the per-page size table, templates in sorted order.
func (w *MarkdownWriter) writePageSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Page Size Summary")
	md.PlainText("")

	if report.PageCount() == 0 {
		md.PlainText("No pages were analyzed.")
		md.PlainText("")
		return
	}

	templates := make([]string, 0, len(report.Pages))
	for template := range report.Pages {
		templates = append(templates, template)
	}
	sort.Strings(templates)

	var rows [][]string
	for _, template := range templates {
		for _, analysis := range report.Pages[template] {
			rows = append(rows, []string{
				"`" + template + "`",
				analysis.URL,
				formatBytes(analysis.TotalHTMLBytes),
				formatBytes(analysis.TotalFlaggedBytes()),
				fmt.Sprintf("%.1f%%", analysis.FlaggedPercent()),
			})
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Template", "URL", "HTML Size", "Flagged", "% Flagged"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes the primary and secondary finding sections with an
// alert reflecting how widespread the inline weight is.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.AuditReport) {
	primary, secondary := splitByPriority(report.Aggregated)

	w.writeAlert(md, primary)

	md.H2("Primary Findings: Inline HTML Weight")
	md.PlainText("")
	md.PlainText("These elements are embedded directly in the HTML file and contribute to its total size.")
	md.PlainText("")

	if len(primary) == 0 {
		md.PlainText("No significant primary findings.")
		md.PlainText("")
	} else {
		w.writePieChart(md, primary)
		w.writePrimaryTable(md, primary)
	}

	if len(secondary) == 0 {
		return
	}

	md.H2("Secondary Findings: External Resources")
	md.PlainText("")
	md.PlainText("References to external files. They add minimal bytes to the HTML itself but trigger additional HTTP requests.")
	md.PlainText("")
	w.writeSecondaryTable(md, secondary)
}

// writeAlert writes an alert based on how widely the primary findings are
// shared. A site-wide element is the highest-leverage fix: trimming it
// shrinks every page at once.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, primary []model.Finding) {
	var siteWide, templateWide int
	for _, f := range primary {
		switch {
		case f.Scope == model.ScopeSiteWide:
			siteWide++
		case strings.Contains(f.Scope, "template-wide"):
			templateWide++
		}
	}

	switch {
	case siteWide > 0:
		md.Cautionf(
			"%d heavy element(s) appear on every audited page. Fixing these shrinks the whole site.",
			siteWide,
		)
	case templateWide > 0:
		md.Warningf(
			"%d heavy element(s) are shared across all pages of a template.",
			templateWide,
		)
	case len(primary) > 0:
		md.Importantf(
			"%d heavy inline element(s) detected on individual pages.",
			len(primary),
		)
	default:
		md.Tip("No significant inline HTML weight detected.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of primary inline weight by
// element type.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, primary []model.Finding) {
	bytesByType := make(map[string]int)
	for _, f := range primary {
		bytesByType[string(f.ElementType)] += f.SizeBytes
	}

	types := make([]string, 0, len(bytesByType))
	for t := range bytesByType {
		types = append(types, t)
	}
	sort.Strings(types)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Inline Weight by Element Type (bytes)"),
		piechart.WithShowData(true),
	)
	for _, t := range types {
		chart.LabelAndIntValue(t, uint64(bytesByType[t]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePrimaryTable writes the aggregated primary findings with sizes.
func (w *MarkdownWriter) writePrimaryTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			"`" + truncateString(f.ElementIdentifier, 50) + "`",
			truncateString(f.Description, 40),
			visibilityText(f.Visibility),
			formatBytes(f.SizeBytes),
			fmt.Sprintf("%.1f%%", f.PercentOfPage),
			f.Scope,
			pagesText(f.PagesFoundOn),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Element", "Purpose", "Visible?", "Size", "% of Page", "Scope", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	// Searchable snippets so a reader can grep the page source.
	for _, f := range findings {
		if f.SearchableSnippet != "" {
			md.Details(truncateString(f.ElementIdentifier, 60), "`"+f.SearchableSnippet+"`")
		}
	}
	md.PlainText("")
}

// writeSecondaryTable writes the external-resource findings. Sizes are
// omitted: the reference itself is nearly free, the cost is the extra
// request.
func (w *MarkdownWriter) writeSecondaryTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			"`" + truncateString(f.ElementIdentifier, 55) + "`",
			truncateString(f.Description, 35),
			visibilityText(f.Visibility),
			f.Scope,
			pagesText(f.PagesFoundOn),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Element", "Purpose", "Visible?", "Scope", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

// visibilityText renders the visibility flag for table cells.
func visibilityText(v model.Visibility) string {
	if v == model.VisibilityUserVisible {
		return "👁️ Yes"
	}
	return "⚙️ No"
}

// pagesText renders the page list for a table cell. Long lists are cut
// off with a count so tables stay readable.
func pagesText(pages []string) string {
	const maxListed = 3
	if len(pages) <= maxListed {
		return strings.Join(pages, "<br>")
	}
	listed := strings.Join(pages[:maxListed], "<br>")
	return fmt.Sprintf("%s<br>… and %d more", listed, len(pages)-maxListed)
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [HTMLephant](https://github.com/htmlephant/htmlephant)*")
}
