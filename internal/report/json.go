package report

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/htmlephant/htmlephant/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       false,
		indentPrefix: "",
		indentString: "",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// jsonSummary is the run-level summary block of the JSON report.
type jsonSummary struct {
	RunID              string   `json:"run_id"`
	SitemapURL         string   `json:"sitemap_url"`
	DateAudited        string   `json:"date_audited"`
	TotalPagesAnalyzed int      `json:"total_pages_analyzed"`
	TemplatesFound     []string `json:"templates_found"`
}

// jsonAggregated splits the aggregated findings by priority.
type jsonAggregated struct {
	Primary   []model.Finding `json:"primary"`
	Secondary []model.Finding `json:"secondary"`
}

// jsonReport is the top-level structure of the JSON report.
//
// Design decision: We build a dedicated output structure rather than
// marshaling AuditReport directly because the report shape is an external
// contract: pages keyed by template, aggregated findings split into
// primary and secondary, and a summary block for quick access.
type jsonReport struct {
	Summary            jsonSummary                      `json:"summary"`
	Pages              map[string][]*model.PageAnalysis `json:"pages"`
	AggregatedFindings jsonAggregated                   `json:"aggregated_findings"`
}

// Write outputs the full report in JSON format.
func (w *JSONWriter) Write(report *model.AuditReport) (int, error) {
	templates := make([]string, 0, len(report.Pages))
	for template := range report.Pages {
		templates = append(templates, template)
	}
	sort.Strings(templates)

	primary, secondary := splitByPriority(report.Aggregated)
	if primary == nil {
		primary = []model.Finding{}
	}
	if secondary == nil {
		secondary = []model.Finding{}
	}

	pages := report.Pages
	if pages == nil {
		pages = map[string][]*model.PageAnalysis{}
	}

	out := jsonReport{
		Summary: jsonSummary{
			RunID:              report.RunID,
			SitemapURL:         report.SitemapURL,
			DateAudited:        report.DateAudited.Format("2006-01-02T15:04:05Z07:00"),
			TotalPagesAnalyzed: report.PageCount(),
			TemplatesFound:     templates,
		},
		Pages: pages,
		AggregatedFindings: jsonAggregated{
			Primary:   primary,
			Secondary: secondary,
		},
	}

	return w.writeJSON(out)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
