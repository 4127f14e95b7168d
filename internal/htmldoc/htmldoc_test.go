package htmldoc

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("parses well-formed HTML", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse(`<html><body><p>hello</p></body></html>`)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if doc.Size() != len(`<html><body><p>hello</p></body></html>`) {
			t.Errorf("Size() = %d", doc.Size())
		}
	})

	t.Run("repairs malformed HTML", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse(`<div><p>unclosed`)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if got := len(doc.FindAll("p")); got != 1 {
			t.Errorf("FindAll(p) = %d elements, want 1", got)
		}
	})

	t.Run("empty input still yields a body", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse("")
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if doc.Body() == nil {
			t.Error("Body() = nil, want synthesized body")
		}
	})
}

func TestDocument_FindAll(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<html><body>
		<script>a</script>
		<style>b</style>
		<script src="x.js"></script>
	</body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	t.Run("single tag", func(t *testing.T) {
		t.Parallel()

		if got := len(doc.FindAll("script")); got != 2 {
			t.Errorf("FindAll(script) = %d, want 2", got)
		}
	})

	t.Run("multiple tags in document order", func(t *testing.T) {
		t.Parallel()

		nodes := doc.FindAll("script", "style")
		if len(nodes) != 3 {
			t.Fatalf("FindAll(script, style) = %d, want 3", len(nodes))
		}
		if nodes[1].Data != "style" {
			t.Errorf("second match = %q, want style", nodes[1].Data)
		}
	})
}

func TestDocument_Comments(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<html><!-- first --><body><!-- second --></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	comments := doc.Comments()
	if len(comments) != 2 {
		t.Fatalf("Comments() = %d, want 2", len(comments))
	}
	if strings.TrimSpace(comments[0]) != "first" {
		t.Errorf("first comment = %q", comments[0])
	}
}

func TestAttr(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<html><body><script src="app.js" async></script></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	script := doc.FindAll("script")[0]

	t.Run("returns value", func(t *testing.T) {
		t.Parallel()

		if got := Attr(script, "src"); got != "app.js" {
			t.Errorf("Attr(src) = %q, want app.js", got)
		}
	})

	t.Run("missing attribute is empty", func(t *testing.T) {
		t.Parallel()

		if got := Attr(script, "type"); got != "" {
			t.Errorf("Attr(type) = %q, want empty", got)
		}
	})

	t.Run("boolean attribute is present", func(t *testing.T) {
		t.Parallel()

		if !HasAttr(script, "async") {
			t.Error("HasAttr(async) = false, want true")
		}
		if HasAttr(script, "defer") {
			t.Error("HasAttr(defer) = true, want false")
		}
	})
}

func TestTextContent(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<html><body><div>hello <b>bold</b> world</div></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	div := doc.FindAll("div")[0]
	if got := TextContent(div); got != "hello bold world" {
		t.Errorf("TextContent() = %q", got)
	}
}

func TestRenderSize(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<html><body><div id="x"><span>inner</span></div></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	div := doc.FindAll("div")[0]
	want := len(`<div id="x"><span>inner</span></div>`)
	if got := RenderSize(div); got != want {
		t.Errorf("RenderSize() = %d, want %d", got, want)
	}
}

func TestDescendantElements(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<html><body><ul><li>a</li><li><em>b</em></li></ul></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ul := doc.FindAll("ul")[0]
	// li, li, em; text nodes and ul itself do not count.
	if got := DescendantElements(ul); got != 3 {
		t.Errorf("DescendantElements() = %d, want 3", got)
	}
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	t.Run("collapses whitespace", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse("<html><body><p>a\n\n\t  b</p></body></html>")
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		p := doc.FindAll("p")[0]
		if got := Snippet(p, 150); got != "<p>a b</p>" {
			t.Errorf("Snippet() = %q", got)
		}
	})

	t.Run("truncates to max", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse("<html><body><p>" + strings.Repeat("x", 500) + "</p></body></html>")
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		p := doc.FindAll("p")[0]
		got := Snippet(p, 150)
		if !strings.HasSuffix(got, "...") {
			t.Errorf("Snippet() = %q, want ellipsis suffix", got)
		}
		if len(got) != 153 {
			t.Errorf("len(Snippet()) = %d, want 150 chars plus ellipsis", len(got))
		}
	})

	t.Run("never splits a multibyte rune at the cut", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse("<html><body><p>" + strings.Repeat("é", 200) + "</p></body></html>")
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		p := doc.FindAll("p")[0]
		got := Snippet(p, 150)
		if !utf8.ValidString(got) {
			t.Errorf("Snippet() = %q, want valid UTF-8", got)
		}
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short string unchanged", "abc", 10, "abc"},
		{"exact length unchanged", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"backs up to rune boundary", "aé", 2, "a"},
		{"keeps whole runes", "ééé", 4, "éé"},
		{"zero max", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate(%q, %d) = %q, want valid UTF-8", tt.in, tt.max, got)
			}
		})
	}
}
