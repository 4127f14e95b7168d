package analyzer

import (
	"fmt"
	"strings"

	"github.com/htmlephant/htmlephant/internal/classify"
	"github.com/htmlephant/htmlephant/internal/htmldoc"
	"github.com/htmlephant/htmlephant/internal/model"
)

// externalScriptDetector catalogs <script src="..."> tags. The tag itself is
// tiny in the HTML; these findings exist so the report shows what the page
// pulls in, not because they weigh anything.
type externalScriptDetector struct{}

func (d *externalScriptDetector) Name() string { return "external-scripts" }

func (d *externalScriptDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	for _, script := range doc.FindAll("script") {
		if !htmldoc.HasAttr(script, "src") {
			continue
		}
		src := htmldoc.Attr(script, "src")

		description, visibility := classify.ExternalResource(src)
		var loading []string
		if htmldoc.HasAttr(script, "async") {
			loading = append(loading, "async")
		}
		if htmldoc.HasAttr(script, "defer") {
			loading = append(loading, "defer")
		}
		if len(loading) > 0 {
			description += " (" + strings.Join(loading, ", ") + ")"
		}

		size := htmldoc.RenderSize(script)
		findings = append(findings, model.Finding{
			ElementType:       model.ElementExternalScript,
			ElementIdentifier: classify.ElementIdentifier("script", src, "", "", ""),
			Description:       description,
			Visibility:        visibility,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, total),
			Priority:          model.PrioritySecondary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: htmldoc.Snippet(script, 150),
		})
	}
	return findings
}

// externalStylesheetDetector catalogs <link rel="stylesheet"> tags.
type externalStylesheetDetector struct{}

func (d *externalStylesheetDetector) Name() string { return "external-stylesheets" }

func (d *externalStylesheetDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	for _, link := range doc.FindAll("link") {
		if !strings.EqualFold(htmldoc.Attr(link, "rel"), "stylesheet") {
			continue
		}
		href := htmldoc.Attr(link, "href")
		if href == "" {
			continue
		}

		description, visibility := classify.ExternalResource(href)
		if description == "Unknown third-party resource" {
			description = "External stylesheet"
			visibility = model.VisibilityUserVisible
		}

		size := htmldoc.RenderSize(link)
		findings = append(findings, model.Finding{
			ElementType:       model.ElementExternalStyle,
			ElementIdentifier: classify.ElementIdentifier("link", href, "", "", ""),
			Description:       description,
			Visibility:        visibility,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, total),
			Priority:          model.PrioritySecondary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: htmldoc.Snippet(link, 150),
		})
	}
	return findings
}

// imageDetector reports all <img> tags on a page as one aggregate finding
// with a lazy/eager loading split.
type imageDetector struct{}

func (d *imageDetector) Name() string { return "images" }

func (d *imageDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	images := doc.FindAll("img")
	if len(images) == 0 {
		return nil
	}

	var tagBytes, lazy int
	for _, img := range images {
		tagBytes += htmldoc.RenderSize(img)
		if htmldoc.Attr(img, "loading") == "lazy" || strings.Contains(htmldoc.Attr(img, "class"), "lazy") {
			lazy++
		}
	}

	return []model.Finding{{
		ElementType:       model.ElementImages,
		ElementIdentifier: fmt.Sprintf("<img> x %d", len(images)),
		Description: fmt.Sprintf("%d image tags (%d lazy-loaded, %d eager)",
			len(images), lazy, len(images)-lazy),
		Visibility:        model.VisibilityUserVisible,
		SizeBytes:         tagBytes,
		PercentOfPage:     percentOf(tagBytes, doc.Size()),
		Priority:          model.PrioritySecondary,
		PagesFoundOn:      []string{pageURL},
		SearchableSnippet: htmldoc.Snippet(images[0], 150),
	}}
}

// iframeDetector catalogs <iframe> embeds.
type iframeDetector struct{}

func (d *iframeDetector) Name() string { return "iframes" }

func (d *iframeDetector) Detect(doc *htmldoc.Document, pageURL string) []model.Finding {
	var findings []model.Finding
	total := doc.Size()

	for _, iframe := range doc.FindAll("iframe") {
		src := htmldoc.Attr(iframe, "src")
		description, visibility := classify.ExternalResource(src)
		if description == "Unknown third-party resource" {
			description = "Embedded iframe"
			visibility = model.VisibilityUserVisible
		}

		size := htmldoc.RenderSize(iframe)
		findings = append(findings, model.Finding{
			ElementType:       model.ElementIframe,
			ElementIdentifier: classify.ElementIdentifier("iframe", src, "", "", ""),
			Description:       description,
			Visibility:        visibility,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, total),
			Priority:          model.PrioritySecondary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: htmldoc.Snippet(iframe, 150),
		})
	}
	return findings
}
