package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/htmlephant/htmlephant/internal/model"
)

// auditTestServer serves a small site with a sitemap, a homepage carrying
// a heavy inline script, and two product pages sharing the same template.
func auditTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	heavyScript := "<script>var data = " + strings.Repeat("x", 2000) + ";</script>"

	mux := http.NewServeMux()

	var server *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/</loc></url>
  <url><loc>%s/products/blue-shirt</loc></url>
  <url><loc>%s/products/red-hat</loc></url>
</urlset>`, server.URL, server.URL, server.URL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "<html><body><h1>Home</h1>%s</body></html>", heavyScript)
	})
	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><h1>%s</h1>%s</body></html>", r.URL.Path, heavyScript)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestDefaultPipeline_EndToEnd runs the full audit pipeline against a
// local test site.
func TestDefaultPipeline_EndToEnd(t *testing.T) {
	t.Parallel()

	server := auditTestServer(t)

	p := DefaultPipeline(nil,
		WithPipelineCrawlDelay(0),
		WithPipelineSamples(2),
		WithPipelineSampleRand(rand.New(rand.NewSource(1))),
	)

	report := model.NewAuditReport(server.URL + "/sitemap.xml")
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if len(report.AllURLs) != 3 {
		t.Errorf("AllURLs = %d, want 3", len(report.AllURLs))
	}
	if _, ok := report.TemplateGroups["homepage"]; !ok {
		t.Errorf("expected homepage template, got %v", report.TemplateGroups)
	}
	if _, ok := report.TemplateGroups["/products/{slug}"]; !ok {
		t.Errorf("expected /products/{slug} template, got %v", report.TemplateGroups)
	}
	if report.PageCount() == 0 {
		t.Fatal("expected analyzed pages")
	}

	// Every page carries the same heavy inline script, so aggregation
	// must produce at least one primary finding spanning multiple pages.
	var foundInline bool
	for _, f := range report.Aggregated {
		if f.ElementType == model.ElementInlineScript && len(f.PagesFoundOn) > 1 {
			foundInline = true
		}
	}
	if !foundInline {
		t.Errorf("expected shared inline-script finding, got %+v", report.Aggregated)
	}

	wantSteps := []string{"parse_sitemap", "select_samples", "crawl_pages", "analyze_pages", "aggregate_findings"}
	if len(report.PerformedSteps) != len(wantSteps) {
		t.Fatalf("PerformedSteps = %v, want %v", report.PerformedSteps, wantSteps)
	}
	for i, want := range wantSteps {
		if report.PerformedSteps[i] != want {
			t.Errorf("PerformedSteps[%d] = %q, want %q", i, report.PerformedSteps[i], want)
		}
	}
}

// TestParseSitemapStep tests sitemap failures.
func TestParseSitemapStep(t *testing.T) {
	t.Parallel()

	t.Run("unreachable sitemap fails the step", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer server.Close()

		step := NewParseSitemapStep()
		report := model.NewAuditReport(server.URL + "/sitemap.xml")
		if err := step.Do(context.Background(), report); err == nil {
			t.Error("expected error for missing sitemap")
		}
	})

	t.Run("empty sitemap fails the step", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`)
		}))
		defer server.Close()

		step := NewParseSitemapStep()
		report := model.NewAuditReport(server.URL + "/sitemap.xml")
		if err := step.Do(context.Background(), report); err == nil {
			t.Error("expected error for empty sitemap")
		}
	})
}

// TestSelectSamplesStep tests sampling behavior.
func TestSelectSamplesStep(t *testing.T) {
	t.Parallel()

	t.Run("samples from each template", func(t *testing.T) {
		t.Parallel()

		step := NewSelectSamplesStep(
			WithSamplesPerTemplate(1),
			WithSampleRand(rand.New(rand.NewSource(1))),
		)

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		report.TemplateGroups = map[string][]string{
			"homepage":         {"https://example.com/"},
			"/products/{slug}": {"https://example.com/products/a", "https://example.com/products/b"},
		}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Samples["homepage"]) != 1 {
			t.Errorf("homepage samples = %v", report.Samples["homepage"])
		}
		if len(report.Samples["/products/{slug}"]) != 1 {
			t.Errorf("product samples = %v", report.Samples["/products/{slug}"])
		}
	})

	t.Run("ignored templates are excluded", func(t *testing.T) {
		t.Parallel()

		step := NewSelectSamplesStep(
			WithIgnoreTemplates([]string{"/search/{slug}"}),
			WithSampleRand(rand.New(rand.NewSource(1))),
		)

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		report.TemplateGroups = map[string][]string{
			"homepage":       {"https://example.com/"},
			"/search/{slug}": {"https://example.com/search/q1"},
		}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := report.Samples["/search/{slug}"]; ok {
			t.Error("expected ignored template to be excluded from samples")
		}
		// The original grouping is left untouched.
		if _, ok := report.TemplateGroups["/search/{slug}"]; !ok {
			t.Error("expected TemplateGroups to keep ignored template")
		}
	})

	t.Run("invalid sitemap URL fails the step", func(t *testing.T) {
		t.Parallel()

		step := NewSelectSamplesStep()
		report := model.NewAuditReport("not-a-url")
		report.TemplateGroups = map[string][]string{"homepage": {"x"}}

		if err := step.Do(context.Background(), report); err == nil {
			t.Error("expected error for sitemap URL without host")
		}
	})
}

// TestAnalyzePagesStep tests analysis over crawled HTML.
func TestAnalyzePagesStep(t *testing.T) {
	t.Parallel()

	t.Run("skips pages whose fetch failed", func(t *testing.T) {
		t.Parallel()

		step := NewAnalyzePagesStep()

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		report.Samples = map[string][]string{
			"homepage": {"https://example.com/", "https://example.com/broken"},
		}
		report.RawPages = map[string]map[string]string{
			"homepage": {
				"https://example.com/":       "<html><body><p>ok</p></body></html>",
				"https://example.com/broken": "",
			},
		}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.PageCount() != 1 {
			t.Errorf("PageCount() = %d, want 1", report.PageCount())
		}
		if report.Pages["homepage"][0].URL != "https://example.com/" {
			t.Errorf("analyzed URL = %q", report.Pages["homepage"][0].URL)
		}
	})

	t.Run("preserves sample order", func(t *testing.T) {
		t.Parallel()

		step := NewAnalyzePagesStep()

		report := model.NewAuditReport("https://example.com/sitemap.xml")
		report.Samples = map[string][]string{
			"/products/{slug}": {"https://example.com/products/b", "https://example.com/products/a"},
		}
		report.RawPages = map[string]map[string]string{
			"/products/{slug}": {
				"https://example.com/products/a": "<html><body>a</body></html>",
				"https://example.com/products/b": "<html><body>b</body></html>",
			},
		}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := report.Pages["/products/{slug}"]
		if len(got) != 2 || got[0].URL != "https://example.com/products/b" {
			t.Errorf("analysis order = %v, want sample order", []string{got[0].URL, got[1].URL})
		}
	})
}

// TestAggregateFindingsStep tests the aggregation step wiring.
func TestAggregateFindingsStep(t *testing.T) {
	t.Parallel()

	step := NewAggregateFindingsStep()

	report := model.NewAuditReport("https://example.com/sitemap.xml")
	report.Pages = map[string][]*model.PageAnalysis{
		"homepage": {
			{
				URL:            "https://example.com/",
				TotalHTMLBytes: 10_000,
				Findings: []model.Finding{
					{
						ElementType:       model.ElementInlineScript,
						ElementIdentifier: `<script id="app">`,
						Priority:          model.PriorityPrimary,
						SizeBytes:         5_000,
						PagesFoundOn:      []string{"https://example.com/"},
					},
				},
			},
		},
	}

	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Aggregated) != 1 {
		t.Fatalf("Aggregated = %d findings, want 1", len(report.Aggregated))
	}
	if report.Aggregated[0].Scope != model.ScopePageSpecific {
		t.Errorf("Scope = %q, want page-specific", report.Aggregated[0].Scope)
	}
}

// TestSiteBaseURL tests base URL derivation from the sitemap URL.
func TestSiteBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://example.com/sitemap.xml", "https://example.com", false},
		{"http://shop.example.com:8080/sitemaps/main.xml", "http://shop.example.com:8080", false},
		{"not-a-url", "", true},
		{"/relative/sitemap.xml", "", true},
	}
	for _, tt := range tests {
		got, err := siteBaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("siteBaseURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("siteBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
