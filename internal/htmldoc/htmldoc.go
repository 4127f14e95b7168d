// Package htmldoc wraps golang.org/x/net/html with the handful of document
// operations the detectors need: lenient parsing, attribute lookup, traversal,
// text and comment extraction, and deterministic re-serialization for byte
// size measurement.
//
// Design decision: detectors work directly with *html.Node pointers instead of
// a wrapper node type. Pointer identity is what the large-subtree detector
// uses to skip descendants of already flagged nodes, and x/net/html's node
// shape is simple enough that wrapping it would only add noise.
package htmldoc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Document is a parsed HTML page together with its raw byte size.
type Document struct {
	root *html.Node
	size int
}

// Parse parses raw HTML leniently, the way a browser would. Malformed markup
// never fails the parse; x/net/html repairs the tree instead.
func Parse(raw string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &Document{root: root, size: len(raw)}, nil
}

// Size returns the byte size of the raw HTML input.
func (d *Document) Size() int {
	return d.size
}

// Root returns the document root node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the <body> element, or nil when the document has none.
// x/net/html synthesizes a body for almost any input, so nil is rare.
func (d *Document) Body() *html.Node {
	var body *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return false
		}
		return body == nil
	})
	return body
}

// FindAll returns every element with one of the given tag names, in document
// order.
func (d *Document) FindAll(tags ...string) []*html.Node {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var nodes []*html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && want[n.Data] {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}

// Comments returns the text of every HTML comment in the document, in
// document order.
func (d *Document) Comments() []string {
	var comments []string
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.CommentNode {
			comments = append(comments, n.Data)
		}
		return true
	})
	return comments
}

// Walk visits n and its descendants in document order. The callback's return
// value controls whether the walk descends into the visited node's children.
func Walk(n *html.Node, visit func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, visit)
	}
}

// Attr returns the value of the named attribute, or "" when absent.
// x/net/html lowercases attribute names during parsing.
func Attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present, even with an empty
// value (boolean attributes like hidden, async, defer).
func HasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// TextContent concatenates all text nodes under n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// Render serializes n and its subtree back to HTML.
func Render(n *html.Node) string {
	var sb strings.Builder
	// Render only fails on unrenderable node types, which never appear in a
	// tree produced by Parse.
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// RenderSize returns the byte size of n's serialized subtree.
func RenderSize(n *html.Node) int {
	return len(Render(n))
}

// DescendantElements counts the element nodes under n, excluding n itself.
func DescendantElements(n *html.Node) int {
	var count int
	Walk(n, func(c *html.Node) bool {
		if c != n && c.Type == html.ElementNode {
			count++
		}
		return true
	})
	return count
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Snippet returns a whitespace-collapsed preview of n's serialized form,
// truncated to max characters. The preview is meant to be greppable in the
// page source, not to round-trip.
func Snippet(n *html.Node, max int) string {
	return CollapseWhitespace(Render(n), max)
}

// CollapseWhitespace squeezes runs of whitespace in s to single spaces, trims
// the ends, and truncates to max bytes with an ellipsis marker.
func CollapseWhitespace(s string, max int) string {
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if len(s) > max {
		return Truncate(s, max) + "..."
	}
	return s
}

// Truncate shortens s to at most max bytes without splitting a UTF-8
// sequence. The cut point backs up to the nearest rune boundary, so the
// result can be slightly shorter than max.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
