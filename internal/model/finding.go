package model

import (
	"encoding/json"
	"math"
	"sort"
)

// ElementType identifies the category of heavy element a finding describes.
type ElementType string

// Element type values emitted by the detectors.
const (
	ElementInlineScript    ElementType = "inline-script"
	ElementJSONLD          ElementType = "json-ld"
	ElementJSONNode        ElementType = "json-node"
	ElementInlineStyle     ElementType = "inline-style"
	ElementInlineSVG       ElementType = "inline-svg"
	ElementDataURI         ElementType = "data-uri"
	ElementLargeDOMSubtree ElementType = "large-dom-subtree"
	ElementHiddenContent   ElementType = "hidden-content"
	ElementHTMLComments    ElementType = "html-comments"
	ElementNoscript        ElementType = "noscript-fallback"
	ElementStyleAttributes ElementType = "inline-style-attributes"
	ElementExternalScript  ElementType = "external-script"
	ElementExternalStyle   ElementType = "external-stylesheet"
	ElementImages          ElementType = "images"
	ElementIframe          ElementType = "iframe"
)

// Visibility describes whether removing or shrinking an element would
// visibly change the rendered page.
type Visibility string

// Visibility values.
const (
	// VisibilityUserVisible marks elements that affect the rendered UI.
	VisibilityUserVisible Visibility = "user-visible"

	// VisibilityBackend marks invisible payloads (tracking code, data blobs,
	// hidden markup) that the user never sees.
	VisibilityBackend Visibility = "backend"
)

// Priority splits findings into inline weight versus external references.
type Priority string

// Priority values.
const (
	// PriorityPrimary marks inline content whose bytes are physically present
	// in the HTML document and inflate the file itself.
	PriorityPrimary Priority = "primary"

	// PrioritySecondary marks references to external resources. They add
	// little to the HTML file but are cataloged for completeness.
	PrioritySecondary Priority = "secondary"
)

// Scope values assigned during cross-page aggregation. Template-qualified
// scopes are built with fmt.Sprintf from these patterns.
const (
	ScopeSiteWide      = "site-wide"
	ScopePageSpecific  = "page-specific"
	ScopeCrossTemplate = "multi-page (cross-template)"
)

// Finding is a single heavy-element finding from page analysis.
//
// Findings are immutable once emitted by a detector: the aggregator builds
// new merged instances rather than mutating findings that belong to a
// different page's analysis.
type Finding struct {
	// ElementType is the detector category that produced this finding.
	ElementType ElementType `json:"element_type"`

	// ElementIdentifier is a stable, human-readable label for the element
	// (tag name plus distinguishing attributes). Together with ElementType
	// it forms the deduplication fingerprint across pages.
	ElementIdentifier string `json:"element_identifier"`

	// Description is the classification result: a known service name or a
	// generic category.
	Description string `json:"description"`

	// Visibility reports whether the element affects the rendered page.
	Visibility Visibility `json:"visibility"`

	// SizeBytes is the measured byte size of the element's contribution.
	SizeBytes int `json:"size_bytes"`

	// PercentOfPage is SizeBytes relative to the page total, in percent.
	// Zero when the page total is zero.
	PercentOfPage float64 `json:"percent_of_page"`

	// Priority is primary for inline weight, secondary for external refs.
	Priority Priority `json:"priority"`

	// PagesFoundOn lists the URLs where this fingerprint was observed.
	// A detector emits exactly one URL; aggregation grows the set.
	PagesFoundOn []string `json:"pages_found_on"`

	// Scope is inferred during aggregation (site-wide, template-wide, ...).
	// Defaults to page-specific before aggregation.
	Scope string `json:"scope"`

	// SearchableSnippet is a truncated, whitespace-collapsed preview of the
	// source element so a human can grep the page source for it.
	SearchableSnippet string `json:"searchable_snippet"`

	// IsSubcomponent is true for findings nested inside a larger finding
	// that was already counted (e.g. a JSON node inside a JSON-LD block).
	// Subcomponents are excluded from page byte totals to avoid double
	// counting. Internal only; not part of the serialized record.
	IsSubcomponent bool `json:"-"`
}

// Fingerprint returns the aggregation key used to recognize "the same
// element" across pages, regardless of per-page size differences.
func (f *Finding) Fingerprint() string {
	return string(f.ElementType) + "::" + f.ElementIdentifier
}

// MarshalJSON serializes the finding with percent_of_page rounded to two
// decimals, matching the external record contract.
func (f Finding) MarshalJSON() ([]byte, error) {
	type alias Finding
	a := alias(f)
	a.PercentOfPage = round2(f.PercentOfPage)
	if a.PagesFoundOn == nil {
		a.PagesFoundOn = []string{}
	}
	if a.Scope == "" {
		a.Scope = ScopePageSpecific
	}
	return json.Marshal(a)
}

// SortBySizeDesc stable-sorts findings by size descending. Ties keep their
// existing relative order so detector-run order is preserved.
func SortBySizeDesc(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].SizeBytes > findings[j].SizeBytes
	})
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
