// Package classify maps heavy elements to human-readable descriptions and
// visibility labels using ordered rule tables of known third-party services.
//
// All classification functions are pure: first matching rule wins, and every
// function has a generic fallback so callers always get a usable description.
package classify

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/htmlephant/htmlephant/internal/htmldoc"
	"github.com/htmlephant/htmlephant/internal/model"
)

// ExternalResource classifies an external resource URL against the known
// service patterns. Unrecognized URLs fall back to a generic third-party
// label with backend visibility.
func ExternalResource(url string) (string, model.Visibility) {
	for _, r := range externalResourceRules {
		if r.pattern.MatchString(url) {
			return r.description, r.visibility
		}
	}
	return "Unknown third-party resource", model.VisibilityBackend
}

// InlineContent classifies inline script content by known signatures. When
// nothing matches, the description carries a short code preview so the report
// still tells the reader what the block is.
func InlineContent(content string) (string, model.Visibility) {
	for _, r := range inlineContentRules {
		if r.pattern.MatchString(content) {
			return r.description, r.visibility
		}
	}

	trimmed := strings.TrimSpace(content)
	snippet := strings.ReplaceAll(trimmed, "\n", " ")
	if len(snippet) > 80 {
		snippet = htmldoc.Truncate(snippet, 80) + "..."
	}
	return "Custom inline code (" + snippet + ")", model.VisibilityBackend
}

// JSONLD classifies JSON-LD structured data by its schema.org "@type".
func JSONLD(content string) (string, model.Visibility) {
	for _, r := range jsonLDTypeRules {
		if r.pattern.MatchString(content) {
			return r.description, r.visibility
		}
	}
	return "Structured data (JSON-LD)", model.VisibilityBackend
}

// SVG classifies an inline <svg> element. Sprite-sheet markers take
// precedence over hiding, hiding over decoration.
func SVG(svg *html.Node) (string, model.Visibility) {
	var hasSymbol, hasUse bool
	htmldoc.Walk(svg, func(n *html.Node) bool {
		if n != svg && n.Type == html.ElementNode {
			switch n.Data {
			case "symbol":
				hasSymbol = true
			case "use":
				hasUse = true
			}
		}
		return true
	})

	if hasSymbol {
		return "SVG symbol sprite sheet", model.VisibilityUserVisible
	}
	if hasUse {
		return "SVG icon (via <use> reference)", model.VisibilityUserVisible
	}

	style := strings.ReplaceAll(htmldoc.Attr(svg, "style"), " ", "")
	class := htmldoc.Attr(svg, "class")
	if strings.Contains(style, "display:none") || strings.Contains(class, "hidden") {
		return "Hidden SVG sprite sheet", model.VisibilityBackend
	}
	if htmldoc.Attr(svg, "aria-hidden") == "true" {
		return "Decorative SVG icon", model.VisibilityUserVisible
	}
	return "Inline SVG graphic", model.VisibilityUserVisible
}

// DataURI classifies an inline data: URI by its MIME type.
func DataURI(uri string) (string, model.Visibility) {
	switch {
	case strings.HasPrefix(uri, "data:image/svg"):
		return "Inline SVG data URI", model.VisibilityUserVisible
	case strings.HasPrefix(uri, "data:image/"):
		return "Inline base64-encoded image", model.VisibilityUserVisible
	case strings.HasPrefix(uri, "data:font/"), strings.HasPrefix(uri, "data:application/font"):
		return "Inline base64-encoded font", model.VisibilityUserVisible
	case strings.HasPrefix(uri, "data:application/json"):
		return "Inline JSON data URI", model.VisibilityBackend
	}
	return "Inline data URI", model.VisibilityBackend
}

// ElementIdentifier builds a concise, stable identifier for an element from
// its tag name and distinguishing attributes. Long URLs and class lists are
// truncated, and class is omitted whenever src is present to keep identifiers
// short.
func ElementIdentifier(tag, src, typeAttr, id, class string) string {
	var sb strings.Builder
	sb.WriteString("<" + tag)
	if id != "" {
		sb.WriteString(` id="` + id + `"`)
	}
	if typeAttr != "" {
		sb.WriteString(` type="` + typeAttr + `"`)
	}
	if src != "" {
		if len(src) > 80 {
			src = htmldoc.Truncate(src, 77) + "..."
		}
		sb.WriteString(` src="` + src + `"`)
	}
	if class != "" && src == "" {
		if len(class) > 40 {
			class = htmldoc.Truncate(class, 37) + "..."
		}
		sb.WriteString(` class="` + class + `"`)
	}
	sb.WriteString(">")
	return sb.String()
}
