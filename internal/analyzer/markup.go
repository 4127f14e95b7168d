package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html"

	"github.com/htmlephant/htmlephant/internal/classify"
	"github.com/htmlephant/htmlephant/internal/htmldoc"
	"github.com/htmlephant/htmlephant/internal/model"
)

// inlineSVGDetector measures inline <svg> elements.
type inlineSVGDetector struct{}

func (d *inlineSVGDetector) Name() string { return "inline-svgs" }

func (d *inlineSVGDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	for _, svg := range doc.FindAll("svg") {
		size := htmldoc.RenderSize(svg)
		if size < minSVGBytes {
			continue
		}

		description, visibility := classify.SVG(svg)
		findings = append(findings, model.Finding{
			ElementType:       model.ElementInlineSVG,
			ElementIdentifier: classify.ElementIdentifier("svg", "", "", htmldoc.Attr(svg, "id"), htmldoc.Attr(svg, "class")),
			Description:       description,
			Visibility:        visibility,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, total),
			Priority:          model.PriorityPrimary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: htmldoc.Snippet(svg, 150),
		})
	}
	return findings
}

// dataURIRe matches data: URIs embedded in attribute values.
var dataURIRe = regexp.MustCompile(`(?i)data:[^"')\s]+`)

// dataURIDetector finds base64 data URIs in element attributes. Repeated
// URIs (shared background images in style attributes) are reported once per
// page, keyed by their first 200 characters.
type dataURIDetector struct{}

func (d *dataURIDetector) Name() string { return "data-uris" }

func (d *dataURIDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()
	seen := make(map[string]bool)

	htmldoc.Walk(doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		for _, attr := range n.Attr {
			for _, uri := range dataURIRe.FindAllString(attr.Val, -1) {
				key := uri
				if len(key) > 200 {
					key = key[:200]
				}
				if seen[key] {
					continue
				}
				seen[key] = true

				size := len(uri)
				if size < minDataURIBytes {
					continue
				}

				description, visibility := classify.DataURI(uri)
				identifier := classify.ElementIdentifier(n.Data, "", "", htmldoc.Attr(n, "id"), htmldoc.Attr(n, "class"))
				findings = append(findings, model.Finding{
					ElementType:       model.ElementDataURI,
					ElementIdentifier: fmt.Sprintf("%s [%s]", identifier, attr.Key),
					Description:       description,
					Visibility:        visibility,
					SizeBytes:         size,
					PercentOfPage:     percentOf(size, total),
					Priority:          model.PriorityPrimary,
					PagesFoundOn:      []string{pageURL},
					SearchableSnippet: htmldoc.Snippet(n, 150),
				})
			}
		}
		return true
	})
	return findings
}

// domSubtreeDetector flags elements under <body> with an unusually large
// number of descendants that also account for a significant share of the
// page. Descendants of a flagged element are skipped so one oversized menu
// does not produce a finding per nesting level.
type domSubtreeDetector struct{}

func (d *domSubtreeDetector) Name() string { return "dom-subtrees" }

func (d *domSubtreeDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	body := doc.Body()
	if body == nil {
		return nil
	}

	var findings []model.Finding
	total := doc.Size()

	var walk func(n *html.Node, ancestorFlagged bool)
	walk = func(n *html.Node, ancestorFlagged bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			flagged := false
			if c.Type == html.ElementNode && !ancestorFlagged {
				if descendants := htmldoc.DescendantElements(c); descendants >= minDOMSubtreeDescendants {
					size := htmldoc.RenderSize(c)
					// Only flag subtrees that are a significant chunk of the page.
					if total == 0 || percentOf(size, total) >= 1.0 {
						flagged = true
						findings = append(findings, model.Finding{
							ElementType:       model.ElementLargeDOMSubtree,
							ElementIdentifier: classify.ElementIdentifier(c.Data, "", "", htmldoc.Attr(c, "id"), htmldoc.Attr(c, "class")),
							Description:       fmt.Sprintf("Large DOM subtree with %d descendant elements", descendants),
							Visibility:        model.VisibilityUserVisible,
							SizeBytes:         size,
							PercentOfPage:     percentOf(size, total),
							Priority:          model.PriorityPrimary,
							PagesFoundOn:      []string{pageURL},
							SearchableSnippet: htmldoc.Snippet(c, 150),
						})
					}
				}
			}
			walk(c, ancestorFlagged || flagged)
		}
	}
	walk(body, false)
	return findings
}

// hiddenContentDetector flags large blocks the user never sees: elements
// with the hidden attribute or display:none styling.
type hiddenContentDetector struct{}

func (d *hiddenContentDetector) Name() string { return "hidden-content" }

func (d *hiddenContentDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	htmldoc.Walk(doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}

		style := strings.ToLower(htmldoc.Attr(n, "style"))
		hidden := htmldoc.HasAttr(n, "hidden") ||
			strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none")
		if !hidden {
			return true
		}

		size := htmldoc.RenderSize(n)
		if size < minHiddenContentBytes {
			return true
		}

		findings = append(findings, model.Finding{
			ElementType:       model.ElementHiddenContent,
			ElementIdentifier: classify.ElementIdentifier(n.Data, "", "", htmldoc.Attr(n, "id"), htmldoc.Attr(n, "class")),
			Description:       "Hidden content block (display:none or hidden)",
			Visibility:        model.VisibilityBackend,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, total),
			Priority:          model.PriorityPrimary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: htmldoc.Snippet(n, 150),
		})
		return true
	})
	return findings
}

// commentDetector reports all HTML comments on a page as one aggregate
// finding once their total size is large enough to matter.
type commentDetector struct{}

func (d *commentDetector) Name() string { return "html-comments" }

func (d *commentDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	comments := doc.Comments()

	var totalSize int
	for _, c := range comments {
		totalSize += len(c)
	}
	if totalSize < minCommentBytes {
		return nil
	}

	return []model.Finding{{
		ElementType:       model.ElementHTMLComments,
		ElementIdentifier: fmt.Sprintf("<!-- %d comments -->", len(comments)),
		Description: fmt.Sprintf("%d HTML comments totaling %s bytes",
			len(comments), humanize.Comma(int64(totalSize))),
		Visibility:        model.VisibilityBackend,
		SizeBytes:         totalSize,
		PercentOfPage:     percentOf(totalSize, doc.Size()),
		Priority:          model.PriorityPrimary,
		PagesFoundOn:      []string{pageURL},
		SearchableSnippet: htmldoc.CollapseWhitespace(comments[0], 150),
	}}
}

// noscriptDetector flags large <noscript> fallback blocks.
type noscriptDetector struct{}

func (d *noscriptDetector) Name() string { return "noscript-blocks" }

func (d *noscriptDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	for _, ns := range doc.FindAll("noscript") {
		size := htmldoc.RenderSize(ns)
		if size < minNoscriptBytes {
			continue
		}

		findings = append(findings, model.Finding{
			ElementType:       model.ElementNoscript,
			ElementIdentifier: classify.ElementIdentifier("noscript", "", "", htmldoc.Attr(ns, "id"), htmldoc.Attr(ns, "class")),
			Description:       "Large <noscript> fallback content",
			Visibility:        model.VisibilityBackend,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, total),
			Priority:          model.PriorityPrimary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: htmldoc.Snippet(ns, 150),
		})
	}
	return findings
}
