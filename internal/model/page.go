package model

import "encoding/json"

// PageAnalysis is the complete weight analysis for a single page.
//
// A PageAnalysis is created once by the page analyzer and consumed read-only
// by the aggregator and the report layer; it is never mutated afterwards.
type PageAnalysis struct {
	// URL is the page URL the analysis was produced for.
	URL string

	// TotalHTMLBytes is the byte size of the raw HTML input.
	TotalHTMLBytes int

	// Findings holds all findings, sorted by size descending.
	Findings []Finding
}

// TotalFlaggedBytes sums the sizes of all findings, excluding subcomponents
// so that nested findings (JSON nodes inside a JSON-LD block) are not counted
// twice.
func (p *PageAnalysis) TotalFlaggedBytes() int {
	var total int
	for _, f := range p.Findings {
		if f.IsSubcomponent {
			continue
		}
		total += f.SizeBytes
	}
	return total
}

// FlaggedPercent is the share of the page accounted for by findings.
// Returns 0 for an empty page rather than dividing by zero.
func (p *PageAnalysis) FlaggedPercent() float64 {
	if p.TotalHTMLBytes == 0 {
		return 0
	}
	return float64(p.TotalFlaggedBytes()) / float64(p.TotalHTMLBytes) * 100
}

// pageAnalysisRecord is the serialized form of a PageAnalysis, with the
// derived totals materialized and rounded per the record contract.
type pageAnalysisRecord struct {
	URL               string    `json:"url"`
	TotalHTMLBytes    int       `json:"total_html_bytes"`
	TotalHTMLKB       float64   `json:"total_html_kb"`
	TotalFlaggedBytes int       `json:"total_flagged_bytes"`
	FlaggedPercent    float64   `json:"flagged_percent"`
	FindingsCount     int       `json:"findings_count"`
	Findings          []Finding `json:"findings"`
}

// MarshalJSON serializes the analysis with derived fields included.
func (p PageAnalysis) MarshalJSON() ([]byte, error) {
	findings := p.Findings
	if findings == nil {
		findings = []Finding{}
	}
	return json.Marshal(pageAnalysisRecord{
		URL:               p.URL,
		TotalHTMLBytes:    p.TotalHTMLBytes,
		TotalHTMLKB:       round1(float64(p.TotalHTMLBytes) / 1024),
		TotalFlaggedBytes: p.TotalFlaggedBytes(),
		FlaggedPercent:    round1(p.FlaggedPercent()),
		FindingsCount:     len(p.Findings),
		Findings:          findings,
	})
}
