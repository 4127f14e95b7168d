package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFinding_Fingerprint(t *testing.T) {
	t.Parallel()

	t.Run("combines element type and identifier", func(t *testing.T) {
		t.Parallel()

		f := Finding{
			ElementType:       ElementInlineScript,
			ElementIdentifier: `<script id="gtm">`,
		}
		got := f.Fingerprint()
		want := `inline-script::<script id="gtm">`
		if got != want {
			t.Errorf("Fingerprint() = %q, want %q", got, want)
		}
	})

	t.Run("same identifier with different type differs", func(t *testing.T) {
		t.Parallel()

		a := Finding{ElementType: ElementInlineScript, ElementIdentifier: "<script>"}
		b := Finding{ElementType: ElementExternalScript, ElementIdentifier: "<script>"}
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("fingerprints for different element types should differ")
		}
	})
}

func TestFinding_MarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("rounds percent_of_page to two decimals", func(t *testing.T) {
		t.Parallel()

		f := Finding{
			ElementType:       ElementInlineScript,
			ElementIdentifier: "<script>",
			PercentOfPage:     12.3456,
		}
		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if !strings.Contains(string(data), `"percent_of_page":12.35`) {
			t.Errorf("expected percent_of_page rounded to 12.35, got %s", data)
		}
	})

	t.Run("omits is_subcomponent", func(t *testing.T) {
		t.Parallel()

		f := Finding{ElementType: ElementJSONNode, IsSubcomponent: true}
		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if strings.Contains(string(data), "subcomponent") {
			t.Errorf("is_subcomponent should not be serialized, got %s", data)
		}
	})

	t.Run("defaults scope to page-specific", func(t *testing.T) {
		t.Parallel()

		f := Finding{ElementType: ElementInlineStyle}
		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if !strings.Contains(string(data), `"scope":"page-specific"`) {
			t.Errorf("expected default scope page-specific, got %s", data)
		}
	})

	t.Run("nil pages_found_on serializes as empty list", func(t *testing.T) {
		t.Parallel()

		f := Finding{ElementType: ElementInlineStyle}
		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if !strings.Contains(string(data), `"pages_found_on":[]`) {
			t.Errorf("expected empty pages_found_on list, got %s", data)
		}
	})
}

func TestSortBySizeDesc(t *testing.T) {
	t.Parallel()

	t.Run("orders by size descending", func(t *testing.T) {
		t.Parallel()

		findings := []Finding{
			{ElementIdentifier: "small", SizeBytes: 100},
			{ElementIdentifier: "large", SizeBytes: 9000},
			{ElementIdentifier: "medium", SizeBytes: 500},
		}
		SortBySizeDesc(findings)

		want := []string{"large", "medium", "small"}
		for i, id := range want {
			if findings[i].ElementIdentifier != id {
				t.Errorf("findings[%d] = %q, want %q", i, findings[i].ElementIdentifier, id)
			}
		}
	})

	t.Run("ties keep original order", func(t *testing.T) {
		t.Parallel()

		findings := []Finding{
			{ElementIdentifier: "first", SizeBytes: 500},
			{ElementIdentifier: "second", SizeBytes: 500},
		}
		SortBySizeDesc(findings)

		if findings[0].ElementIdentifier != "first" || findings[1].ElementIdentifier != "second" {
			t.Errorf("stable sort should keep tie order, got %q then %q",
				findings[0].ElementIdentifier, findings[1].ElementIdentifier)
		}
	})
}
