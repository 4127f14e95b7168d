package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/htmlephant/htmlephant/internal/model"
)

// recordingFactory builds pipelines whose single step records the sitemap
// it was executed for.
func recordingFactory(mu *sync.Mutex, seen *[]string) func() *Pipeline {
	return func() *Pipeline {
		p := New()
		p.AddStep(&mockStep{
			name: "record",
			doFunc: func(_ context.Context, report *model.AuditReport) error {
				mu.Lock()
				*seen = append(*seen, report.SitemapURL)
				mu.Unlock()
				return nil
			},
		})
		return p
	}
}

// TestBatchProcessor_ProcessBatch tests concurrent sitemap auditing.
func TestBatchProcessor_ProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("audits all sitemaps and preserves order", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var seen []string
		bp := NewBatchProcessor(recordingFactory(&mu, &seen), WithConcurrency(2))

		sitemaps := []string{
			"https://a.example.com/sitemap.xml",
			"https://b.example.com/sitemap.xml",
			"https://c.example.com/sitemap.xml",
		}

		reports, err := bp.ProcessBatch(context.Background(), sitemaps)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != len(sitemaps) {
			t.Fatalf("got %d reports, want %d", len(reports), len(sitemaps))
		}
		// Results keep the input order regardless of completion order.
		for i, sitemap := range sitemaps {
			if reports[i] == nil || reports[i].SitemapURL != sitemap {
				t.Errorf("reports[%d].SitemapURL = %v, want %q", i, reports[i], sitemap)
			}
		}
		if len(seen) != len(sitemaps) {
			t.Errorf("executed %d audits, want %d", len(seen), len(sitemaps))
		}
	})

	t.Run("failed audit still yields a report", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "failing",
				doFunc: func(_ context.Context, _ *model.AuditReport) error {
					return context.DeadlineExceeded
				},
			})
			return p
		}

		bp := NewBatchProcessor(factory)
		reports, err := bp.ProcessBatch(context.Background(), []string{"https://a.example.com/sitemap.xml"})
		if err != nil {
			t.Fatalf("unexpected batch error: %v", err)
		}
		if len(reports) != 1 || !reports[0].Error {
			t.Errorf("expected failed report, got %+v", reports)
		}
	})
}

// TestBatchProcessor_ProcessBatchWithCallback tests streaming results.
func TestBatchProcessor_ProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	bp := NewBatchProcessor(recordingFactory(&mu, &seen))

	var cbMu sync.Mutex
	got := make(map[int]string)

	err := bp.ProcessBatchWithCallback(
		context.Background(),
		[]string{"https://a.example.com/sitemap.xml", "https://b.example.com/sitemap.xml"},
		func(report *model.AuditReport, index int) {
			cbMu.Lock()
			got[index] = report.SitemapURL
			cbMu.Unlock()
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "https://a.example.com/sitemap.xml" || got[1] != "https://b.example.com/sitemap.xml" {
		t.Errorf("callback results = %v", got)
	}
}
