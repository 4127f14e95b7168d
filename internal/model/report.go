package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditReport is the shared state of one audit run. Pipeline steps fill it in
// progressively: sitemap parsing populates the URL inventory, sampling picks
// the pages, crawling and analysis attach per-page results, and aggregation
// produces the cross-page findings.
type AuditReport struct {
	// RunID uniquely identifies this audit run, for history storage.
	RunID string

	// SitemapURL is the sitemap this run audits.
	SitemapURL string

	// DateAudited is when the run started.
	DateAudited time.Time

	// AllURLs is the full deduplicated URL inventory from the sitemap.
	AllURLs []string

	// TemplateGroups maps a URL template (e.g. "/products/{slug}") to every
	// sitemap URL matching it.
	TemplateGroups map[string][]string

	// Samples maps a URL template to the subset of its URLs selected for
	// crawling and analysis.
	Samples map[string][]string

	// RawPages holds fetched HTML keyed by template and URL, handed from the
	// crawl step to the analysis step. Failed fetches hold an empty string.
	// Never serialized; stored reports keep analyses only.
	RawPages map[string]map[string]string `json:"-"`

	// Pages maps a URL template to the analyses of its sampled pages.
	Pages map[string][]*PageAnalysis

	// Aggregated holds the cross-page findings, primary before secondary,
	// sorted by size descending within each priority.
	Aggregated []Finding

	// TimedOut records that the run was cut short by its deadline.
	TimedOut bool

	// Error marks the run as failed; ErrorMessage carries the cause.
	Error        bool
	ErrorMessage string

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string
}

// NewAuditReport creates a report for the given sitemap with a fresh run ID
// and the collection fields initialized.
func NewAuditReport(sitemapURL string) *AuditReport {
	return &AuditReport{
		RunID:          uuid.NewString(),
		SitemapURL:     sitemapURL,
		DateAudited:    time.Now().UTC(),
		TemplateGroups: make(map[string][]string),
		Samples:        make(map[string][]string),
		Pages:          make(map[string][]*PageAnalysis),
	}
}

// PageCount returns the number of pages that were actually analyzed.
func (r *AuditReport) PageCount() int {
	var n int
	for _, analyses := range r.Pages {
		n += len(analyses)
	}
	return n
}

// TemplateCount returns the number of URL templates found in the sitemap.
func (r *AuditReport) TemplateCount() int {
	return len(r.TemplateGroups)
}

// AddPerformedStep records that a pipeline step ran.
func (r *AuditReport) AddPerformedStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// SetError marks the report as failed with the given cause.
func (r *AuditReport) SetError(err error) {
	r.Error = true
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
