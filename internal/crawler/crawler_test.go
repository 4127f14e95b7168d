package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func testSamples(srvURL string) map[string][]string {
	return map[string][]string{
		"homepage": {srvURL + "/"},
		"/products/{slug}": {
			srvURL + "/products/a",
			srvURL + "/products/b",
		},
	}
}

func TestCrawler_CrawlPages(t *testing.T) {
	t.Parallel()

	t.Run("fetches all sampled pages", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "<html><body>%s</body></html>", r.URL.Path)
		}))
		defer srv.Close()

		c := New(WithDelay(0))
		results, err := c.CrawlPages(context.Background(), testSamples(srv.URL))
		if err != nil {
			t.Fatalf("CrawlPages() error = %v", err)
		}
		if len(results["/products/{slug}"]) != 2 {
			t.Errorf("product pages = %d, want 2", len(results["/products/{slug}"]))
		}
		if got := results["homepage"][srv.URL+"/"]; got != "<html><body>/</body></html>" {
			t.Errorf("homepage html = %q", got)
		}
	})

	t.Run("failed fetch stores empty string", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/products/b" {
				http.Error(w, "gone", http.StatusNotFound)
				return
			}
			fmt.Fprint(w, "<html></html>")
		}))
		defer srv.Close()

		c := New(WithDelay(0))
		results, err := c.CrawlPages(context.Background(), testSamples(srv.URL))
		if err != nil {
			t.Fatalf("CrawlPages() error = %v", err)
		}
		if got := results["/products/{slug}"][srv.URL+"/products/b"]; got != "" {
			t.Errorf("failed page html = %q, want empty sentinel", got)
		}
		if got := results["/products/{slug}"][srv.URL+"/products/a"]; got == "" {
			t.Error("healthy page should still be fetched")
		}
	})

	t.Run("cache avoids refetching", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		hits := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits++
			mu.Unlock()
			fmt.Fprint(w, "<html>cached?</html>")
		}))
		defer srv.Close()

		samples := map[string][]string{"homepage": {srv.URL + "/"}}
		c := New(WithDelay(0), WithCacheDir(t.TempDir()))

		for range 2 {
			if _, err := c.CrawlPages(context.Background(), samples); err != nil {
				t.Fatalf("CrawlPages() error = %v", err)
			}
		}
		mu.Lock()
		defer mu.Unlock()
		if hits != 1 {
			t.Errorf("server hits = %d, want 1 (second run should be cached)", hits)
		}
	})

	t.Run("browser-like headers sent", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotAccept string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAccept = r.Header.Get("Accept")
			fmt.Fprint(w, "<html></html>")
		}))
		defer srv.Close()

		c := New(WithDelay(0))
		if _, err := c.FetchPage(context.Background(), srv.URL); err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
		if gotUA == "" || gotAccept == "" {
			t.Errorf("missing headers: UA=%q Accept=%q", gotUA, gotAccept)
		}
	})

	t.Run("body size capped", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for range 1000 {
				fmt.Fprint(w, "0123456789")
			}
		}))
		defer srv.Close()

		c := New(WithDelay(0), WithMaxBodyBytes(100))
		html, err := c.FetchPage(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
		if len(html) != 100 {
			t.Errorf("body length = %d, want capped at 100", len(html))
		}
	})
}

func TestCacheFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		url      string
		want     string
	}{
		{
			name:     "template and path sanitized",
			template: "/products/{slug}",
			url:      "https://example.com/products/blue-shirt",
			want:     "products__slug__products_blue-shirt.html",
		},
		{
			name:     "homepage root",
			template: "homepage",
			url:      "https://example.com/",
			want:     "homepage_index.html",
		},
		{
			name:     "no traversal characters survive",
			template: "../../etc",
			url:      "https://example.com/../../passwd",
			want:     "______etc_______passwd.html",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := cacheFilename(tt.template, tt.url); got != tt.want {
				t.Errorf("cacheFilename(%q, %q) = %q, want %q", tt.template, tt.url, got, tt.want)
			}
		})
	}
}
