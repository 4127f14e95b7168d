package database

import (
	"time"

	"github.com/htmlephant/htmlephant/internal/model"
)

// Storage forms for persisted audit reports.
//
// Design decision: We do not reuse the model's report-facing JSON marshalers
// for the report_json column because:
// 1. PageAnalysis serializes derived totals (total_html_kb, flagged_percent)
//    but has no matching unmarshal path, so raw byte counts would not restore
// 2. Finding drops internal bookkeeping (is_subcomponent) from report output,
//    which a replayed report still needs to keep page totals from double
//    counting nested findings
// The storage structs mirror the model field-for-field so a stored run
// round-trips losslessly for the history subcommand.

// storedFinding is the persistence form of a model.Finding.
type storedFinding struct {
	ElementType       model.ElementType `json:"element_type"`
	ElementIdentifier string            `json:"element_identifier"`
	Description       string            `json:"description"`
	Visibility        model.Visibility  `json:"visibility"`
	SizeBytes         int               `json:"size_bytes"`
	PercentOfPage     float64           `json:"percent_of_page"`
	Priority          model.Priority    `json:"priority"`
	PagesFoundOn      []string          `json:"pages_found_on"`
	Scope             string            `json:"scope"`
	SearchableSnippet string            `json:"searchable_snippet"`
	IsSubcomponent    bool              `json:"is_subcomponent,omitempty"`
}

// storedPage is the persistence form of a model.PageAnalysis. Derived totals
// are recomputed from these fields on load.
type storedPage struct {
	URL            string          `json:"url"`
	TotalHTMLBytes int             `json:"total_html_bytes"`
	Findings       []storedFinding `json:"findings"`
}

// storedReport is the persistence form of a model.AuditReport.
type storedReport struct {
	RunID          string                  `json:"run_id"`
	SitemapURL     string                  `json:"sitemap_url"`
	DateAudited    time.Time               `json:"date_audited"`
	AllURLs        []string                `json:"all_urls,omitempty"`
	TemplateGroups map[string][]string     `json:"template_groups,omitempty"`
	Samples        map[string][]string     `json:"samples,omitempty"`
	Pages          map[string][]storedPage `json:"pages,omitempty"`
	Aggregated     []storedFinding         `json:"aggregated,omitempty"`
	TimedOut       bool                    `json:"timed_out,omitempty"`
	Error          bool                    `json:"error,omitempty"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
	PerformedSteps []string                `json:"performed_steps,omitempty"`
}

// storedFindingFrom converts a finding to its persistence form.
func storedFindingFrom(f model.Finding) storedFinding {
	return storedFinding{
		ElementType:       f.ElementType,
		ElementIdentifier: f.ElementIdentifier,
		Description:       f.Description,
		Visibility:        f.Visibility,
		SizeBytes:         f.SizeBytes,
		PercentOfPage:     f.PercentOfPage,
		Priority:          f.Priority,
		PagesFoundOn:      f.PagesFoundOn,
		Scope:             f.Scope,
		SearchableSnippet: f.SearchableSnippet,
		IsSubcomponent:    f.IsSubcomponent,
	}
}

// toFinding converts a persisted finding back to the model form.
func (sf storedFinding) toFinding() model.Finding {
	return model.Finding{
		ElementType:       sf.ElementType,
		ElementIdentifier: sf.ElementIdentifier,
		Description:       sf.Description,
		Visibility:        sf.Visibility,
		SizeBytes:         sf.SizeBytes,
		PercentOfPage:     sf.PercentOfPage,
		Priority:          sf.Priority,
		PagesFoundOn:      sf.PagesFoundOn,
		Scope:             sf.Scope,
		SearchableSnippet: sf.SearchableSnippet,
		IsSubcomponent:    sf.IsSubcomponent,
	}
}

// storedFindings converts a slice of findings to persistence form.
func storedFindings(findings []model.Finding) []storedFinding {
	if findings == nil {
		return nil
	}
	out := make([]storedFinding, len(findings))
	for i, f := range findings {
		out[i] = storedFindingFrom(f)
	}
	return out
}

// toFindings converts persisted findings back to the model form.
func toFindings(stored []storedFinding) []model.Finding {
	if stored == nil {
		return nil
	}
	out := make([]model.Finding, len(stored))
	for i, sf := range stored {
		out[i] = sf.toFinding()
	}
	return out
}

// newStoredReport converts an audit report to its persistence form.
// RawPages is deliberately excluded; stored runs keep analyses only.
func newStoredReport(r *model.AuditReport) *storedReport {
	s := &storedReport{
		RunID:          r.RunID,
		SitemapURL:     r.SitemapURL,
		DateAudited:    r.DateAudited,
		AllURLs:        r.AllURLs,
		TemplateGroups: r.TemplateGroups,
		Samples:        r.Samples,
		Aggregated:     storedFindings(r.Aggregated),
		TimedOut:       r.TimedOut,
		Error:          r.Error,
		ErrorMessage:   r.ErrorMessage,
		PerformedSteps: r.PerformedSteps,
	}

	if r.Pages != nil {
		s.Pages = make(map[string][]storedPage, len(r.Pages))
		for template, analyses := range r.Pages {
			pages := make([]storedPage, len(analyses))
			for i, p := range analyses {
				pages[i] = storedPage{
					URL:            p.URL,
					TotalHTMLBytes: p.TotalHTMLBytes,
					Findings:       storedFindings(p.Findings),
				}
			}
			s.Pages[template] = pages
		}
	}

	return s
}

// toReport converts a persisted report back to the model form.
func (s *storedReport) toReport() *model.AuditReport {
	r := &model.AuditReport{
		RunID:          s.RunID,
		SitemapURL:     s.SitemapURL,
		DateAudited:    s.DateAudited,
		AllURLs:        s.AllURLs,
		TemplateGroups: s.TemplateGroups,
		Samples:        s.Samples,
		Aggregated:     toFindings(s.Aggregated),
		TimedOut:       s.TimedOut,
		Error:          s.Error,
		ErrorMessage:   s.ErrorMessage,
		PerformedSteps: s.PerformedSteps,
	}

	if s.Pages != nil {
		r.Pages = make(map[string][]*model.PageAnalysis, len(s.Pages))
		for template, pages := range s.Pages {
			analyses := make([]*model.PageAnalysis, len(pages))
			for i, sp := range pages {
				analyses[i] = &model.PageAnalysis{
					URL:            sp.URL,
					TotalHTMLBytes: sp.TotalHTMLBytes,
					Findings:       toFindings(sp.Findings),
				}
			}
			r.Pages[template] = analyses
		}
	}

	return r
}
