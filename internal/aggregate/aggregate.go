// Package aggregate merges per-page findings into a site-level view. Findings
// sharing a fingerprint (element type plus identifier) are collapsed into one
// entry whose scope says how widely the element is shared: across the whole
// site, across one template's pages, or on a single page.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/htmlephant/htmlephant/internal/model"
)

// group collects the occurrences of one fingerprint across pages.
type group struct {
	representative model.Finding
	pages          map[string]bool
	templates      map[string]bool
	maxSize        int
}

// Aggregate merges findings across all analyzed pages and infers scope.
//
// The representative finding for each fingerprint is its first occurrence,
// with templates visited in sorted order and pages in slice order, so output
// does not depend on map iteration. Size is the maximum observed across
// pages. The result is ordered primary before secondary, then by size
// descending, with the fingerprint as a final tiebreak.
func Aggregate(analyses map[string][]*model.PageAnalysis) []model.Finding {
	templates := make([]string, 0, len(analyses))
	for t := range analyses {
		templates = append(templates, t)
	}
	sort.Strings(templates)

	grouped := make(map[string]*group)
	allURLs := make(map[string]bool)
	templateURLs := make(map[string]map[string]bool)

	for _, template := range templates {
		for _, analysis := range analyses[template] {
			allURLs[analysis.URL] = true
			if templateURLs[template] == nil {
				templateURLs[template] = make(map[string]bool)
			}
			templateURLs[template][analysis.URL] = true

			for _, finding := range analysis.Findings {
				fp := finding.Fingerprint()
				entry, ok := grouped[fp]
				if !ok {
					entry = &group{
						representative: model.Finding{
							ElementType:       finding.ElementType,
							ElementIdentifier: finding.ElementIdentifier,
							Description:       finding.Description,
							Visibility:        finding.Visibility,
							SizeBytes:         finding.SizeBytes,
							PercentOfPage:     finding.PercentOfPage,
							Priority:          finding.Priority,
							SearchableSnippet: finding.SearchableSnippet,
						},
						pages:     make(map[string]bool),
						templates: make(map[string]bool),
					}
					grouped[fp] = entry
				}
				entry.pages[analysis.URL] = true
				entry.templates[template] = true
				if finding.SizeBytes > entry.maxSize {
					entry.maxSize = finding.SizeBytes
				}
			}
		}
	}

	aggregated := make([]model.Finding, 0, len(grouped))
	for _, entry := range grouped {
		finding := entry.representative
		finding.SizeBytes = entry.maxSize
		finding.PagesFoundOn = sortedKeys(entry.pages)
		finding.Scope = inferScope(entry, allURLs, templateURLs)
		aggregated = append(aggregated, finding)
	}

	sort.Slice(aggregated, func(i, j int) bool {
		a, b := &aggregated[i], &aggregated[j]
		if a.Priority != b.Priority {
			return a.Priority == model.PriorityPrimary
		}
		if a.SizeBytes != b.SizeBytes {
			return a.SizeBytes > b.SizeBytes
		}
		return a.Fingerprint() < b.Fingerprint()
	})

	return aggregated
}

// inferScope decides how widely a fingerprint is shared.
func inferScope(entry *group, allURLs map[string]bool, templateURLs map[string]map[string]bool) string {
	switch {
	case len(entry.pages) == len(allURLs) && len(allURLs) > 1:
		return model.ScopeSiteWide
	case len(entry.templates) == 1:
		var template string
		for t := range entry.templates {
			template = t
		}
		tmplURLs := templateURLs[template]
		switch {
		case len(entry.pages) == len(tmplURLs) && len(tmplURLs) > 1:
			return fmt.Sprintf("template-wide (%s)", template)
		case len(entry.pages) > 1:
			return fmt.Sprintf("multi-page (%s)", template)
		default:
			return model.ScopePageSpecific
		}
	case len(entry.pages) > 1:
		return model.ScopeCrossTemplate
	default:
		return model.ScopePageSpecific
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
