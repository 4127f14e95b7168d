package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcher_FetchAllURLs(t *testing.T) {
	t.Parallel()

	t.Run("plain urlset", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc> https://example.com/products/a </loc></url>
  <url><loc>https://example.com/</loc></url>
</urlset>`)
		}))
		defer srv.Close()

		urls, err := NewFetcher().FetchAllURLs(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("FetchAllURLs() error = %v", err)
		}
		want := []string{"https://example.com/", "https://example.com/products/a"}
		if len(urls) != len(want) {
			t.Fatalf("urls = %v, want %v", urls, want)
		}
		for i := range want {
			if urls[i] != want[i] {
				t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
			}
		}
	})

	t.Run("sitemap index with broken child", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/child1.xml</loc></sitemap>
  <sitemap><loc>%s/missing.xml</loc></sitemap>
  <sitemap><loc>%s/child2.xml</loc></sitemap>
</sitemapindex>`, srv.URL, srv.URL, srv.URL)
		})
		mux.HandleFunc("/child1.xml", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<urlset><url><loc>https://example.com/a</loc></url></urlset>`)
		})
		mux.HandleFunc("/child2.xml", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<urlset><url><loc>https://example.com/b</loc></url></urlset>`)
		})

		urls, err := NewFetcher().FetchAllURLs(context.Background(), srv.URL+"/sitemap.xml")
		if err != nil {
			t.Fatalf("FetchAllURLs() error = %v", err)
		}
		if len(urls) != 2 {
			t.Fatalf("urls = %v, want 2 entries despite broken child", urls)
		}
	})

	t.Run("child sitemap limit", func(t *testing.T) {
		t.Parallel()

		var childFetches int
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<sitemapindex>`)
			for i := range 10 {
				fmt.Fprintf(w, `<sitemap><loc>%s/child%d.xml</loc></sitemap>`, srv.URL, i)
			}
			fmt.Fprint(w, `</sitemapindex>`)
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			childFetches++
			fmt.Fprint(w, `<urlset><url><loc>https://example.com/x</loc></url></urlset>`)
		})

		f := NewFetcher(WithMaxChildSitemaps(3))
		if _, err := f.FetchAllURLs(context.Background(), srv.URL+"/sitemap.xml"); err != nil {
			t.Fatalf("FetchAllURLs() error = %v", err)
		}
		if childFetches != 3 {
			t.Errorf("child fetches = %d, want 3", childFetches)
		}
	})

	t.Run("http error surfaces", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		if _, err := NewFetcher().FetchAllURLs(context.Background(), srv.URL); err == nil {
			t.Error("FetchAllURLs() error = nil, want status error")
		}
	})

	t.Run("custom user agent is sent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			fmt.Fprint(w, `<urlset></urlset>`)
		}))
		defer srv.Close()

		f := NewFetcher(WithUserAgent("audit-bot/1.0"))
		if _, err := f.FetchAllURLs(context.Background(), srv.URL); err != nil {
			t.Fatalf("FetchAllURLs() error = %v", err)
		}
		if gotUA != "audit-bot/1.0" {
			t.Errorf("User-Agent = %q", gotUA)
		}
	})
}
