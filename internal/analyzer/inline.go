package analyzer

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/htmlephant/htmlephant/internal/classify"
	"github.com/htmlephant/htmlephant/internal/htmldoc"
	"github.com/htmlephant/htmlephant/internal/model"
)

// inlineScriptDetector measures inline <script> tags (no src attribute).
// Scripts with a JSON type are reported as structured data and additionally
// inspected for oversized internal JSON nodes.
type inlineScriptDetector struct{}

func (d *inlineScriptDetector) Name() string { return "inline-scripts" }

func (d *inlineScriptDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	for _, script := range doc.FindAll("script") {
		if htmldoc.Attr(script, "src") != "" {
			continue // external script, cataloged separately
		}

		content := htmldoc.TextContent(script)
		if strings.TrimSpace(content) == "" {
			continue
		}

		size := len(content)
		scriptType := strings.ToLower(htmldoc.Attr(script, "type"))

		if strings.Contains(scriptType, "ld+json") || strings.Contains(scriptType, "json") {
			if size < minJSONLDBytes {
				continue
			}
			description, visibility := classify.JSONLD(content)
			identifier := classify.ElementIdentifier("script", "", htmldoc.Attr(script, "type"), htmldoc.Attr(script, "id"), "")
			findings = append(findings, model.Finding{
				ElementType:       model.ElementJSONLD,
				ElementIdentifier: identifier,
				Description:       description,
				Visibility:        visibility,
				SizeBytes:         size,
				PercentOfPage:     percentOf(size, total),
				Priority:          model.PriorityPrimary,
				PagesFoundOn:      []string{pageURL},
				SearchableSnippet: htmldoc.Snippet(script, 150),
			})
			findings = append(findings, analyzeJSONBloat(content, total, pageURL, identifier)...)
		} else if size >= minInlineScriptBytes {
			description, visibility := classify.InlineContent(content)
			identifier := classify.ElementIdentifier("script", "", htmldoc.Attr(script, "type"), htmldoc.Attr(script, "id"), "")
			findings = append(findings, model.Finding{
				ElementType:       model.ElementInlineScript,
				ElementIdentifier: identifier,
				Description:       description,
				Visibility:        visibility,
				SizeBytes:         size,
				PercentOfPage:     percentOf(size, total),
				Priority:          model.PriorityPrimary,
				PagesFoundOn:      []string{pageURL},
				SearchableSnippet: htmldoc.Snippet(script, 150),
			})
		}
	}
	return findings
}

// inlineStyleDetector measures inline <style> tags.
type inlineStyleDetector struct{}

func (d *inlineStyleDetector) Name() string { return "inline-styles" }

func (d *inlineStyleDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	for _, style := range doc.FindAll("style") {
		content := htmldoc.TextContent(style)
		if strings.TrimSpace(content) == "" {
			continue
		}

		size := len(content)
		if size < minInlineStyleBytes {
			continue
		}

		findings = append(findings, model.Finding{
			ElementType:       model.ElementInlineStyle,
			ElementIdentifier: classify.ElementIdentifier("style", "", "", htmldoc.Attr(style, "id"), ""),
			Description:       "Inline CSS stylesheet",
			Visibility:        model.VisibilityUserVisible,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, total),
			Priority:          model.PriorityPrimary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: htmldoc.Snippet(style, 150),
		})
	}
	return findings
}

// styleAttributeDetector sums up inline style="..." attributes across the
// whole page and reports them as a single aggregate finding when excessive.
type styleAttributeDetector struct{}

func (d *styleAttributeDetector) Name() string { return "style-attributes" }

func (d *styleAttributeDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	total := doc.Size()

	var styleBytes, count int
	htmldoc.Walk(doc.Root(), func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if style := htmldoc.Attr(n, "style"); style != "" {
				styleBytes += len(style)
				count++
			}
		}
		return true
	})

	if styleBytes < minStyleAttributeBytes {
		return nil
	}

	return []model.Finding{{
		ElementType:       model.ElementStyleAttributes,
		ElementIdentifier: fmt.Sprintf("%d style attributes", count),
		Description:       fmt.Sprintf("Excessive inline CSS properties across %d elements", count),
		Visibility:        model.VisibilityBackend,
		SizeBytes:         styleBytes,
		PercentOfPage:     percentOf(styleBytes, total),
		Priority:          model.PriorityPrimary,
		PagesFoundOn:      []string{pageURL},
		SearchableSnippet: fmt.Sprintf("Found %d elements with inline styles totaling %d bytes.", count, styleBytes),
	}}
}
