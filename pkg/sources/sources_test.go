package sources

import (
	"errors"
	"testing"

	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/registry"
)

func testRegistry() *registry.Registry {
	return registry.New(map[string]map[model.Source]*model.SourceMapping{
		"acme-health": {
			model.SourceG2:       {ExternalSlug: "acme-health", URL: "https://www.g2.com/products/acme-health/reviews"},
			model.SourceCapterra: {ExternalSlug: "123456"},
		},
		"osmind": {
			model.SourceG2:       {ExternalSlug: "Osmind"},
			model.SourceCapterra: nil,
		},
	})
}

func TestExternalID(t *testing.T) {
	tests := []struct {
		adapter Adapter
		url     string
		want    string
		ok      bool
	}{
		{G2(), "https://www.g2.com/products/acme-health/reviews", "acme-health", true},
		{G2(), "https://www.G2.com/products/Osmind?tab=reviews", "Osmind", true},
		{G2(), "https://www.capterra.com/p/1/x", "", false},
		{Capterra(), "https://www.capterra.com/p/123456/Acme-Health/", "123456", true},
		{Capterra(), "https://www.capterra.com/reviews/98765/osmind", "98765", true},
		{Capterra(), "https://www.capterra.com/p/abc/", "", false},
	}
	for _, tc := range tests {
		got, ok := tc.adapter.ExternalID(tc.url)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s ExternalID(%q) = %q, %v; want %q, %v", tc.adapter.Name(), tc.url, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractG2(t *testing.T) {
	items, err := ParseDump([]byte(`[
		{"url": "https://www.g2.com/products/acme-health/reviews", "rating": 4.0, "reviewCount": 7},
		{"url": "https://www.g2.com/products/unknown/reviews", "rating": 4.0, "reviewCount": 7},
		{"url": "https://www.g2.com/products/osmind/reviews", "rating": "4.8", "reviewCount": "1,204"},
		{"url": "https://www.g2.com/products/acme-health/reviews", "rating": 4.5, "reviewCount": 20},
		{"rating": 3.0, "reviewCount": 2},
		{"slug": "osmind", "rating": -1, "reviewCount": 3}
	]`))
	if err != nil {
		t.Fatalf("ParseDump: %v", err)
	}

	got, stats := Extract(G2(), testRegistry(), items, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 vendors, got %d: %+v", len(got), got)
	}
	acme := got["acme-health"]
	if acme.Score != 4.5 || acme.Count != 20 || acme.Source != model.SourceG2 {
		t.Fatalf("expected the last acme record to win, got %+v", acme)
	}
	if os := got["osmind"]; os.Score != 4.8 || os.Count != 1204 {
		t.Fatalf("unexpected osmind record %+v", os)
	}
	if stats.Total != 6 || stats.Resolved != 2 || stats.Unmapped != 1 || stats.NoID != 1 || stats.BadNumbers != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Dropped() != 4 {
		t.Fatalf("expected 4 dropped records, got %d", stats.Dropped())
	}
}

func TestExtractCapterraDropsUnusableNumbers(t *testing.T) {
	items, err := ParseDump([]byte(`{"items": [
		{"productUrl": "https://www.capterra.com/p/123456/Acme/", "overallRating": 4.2, "totalReviews": 0},
		{"productUrl": "https://www.capterra.com/p/123456/Acme/", "overallRating": 7, "totalReviews": 4},
		{"productUrl": "https://www.capterra.com/p/123456/Acme/", "overallRating": "n/a", "totalReviews": 4},
		{"productUrl": "https://www.capterra.com/p/123456/Acme/", "overallRating": 4.2, "totalReviews": 2.5},
		{"productUrl": "https://www.capterra.com/p/123456/Acme/", "overallRating": 4.2, "totalReviews": 1e30}
	]}`))
	if err != nil {
		t.Fatalf("ParseDump: %v", err)
	}

	got, stats := Extract(Capterra(), testRegistry(), items, nil)
	if len(got) != 0 {
		t.Fatalf("expected every record to be dropped, got %+v", got)
	}
	if stats.ZeroCount != 1 || stats.BadNumbers != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestExtractFallsBackToMappingURL(t *testing.T) {
	items, err := ParseDump([]byte(`[{"slug": "ACME-HEALTH", "rating": 4, "reviewCount": 3}]`))
	if err != nil {
		t.Fatalf("ParseDump: %v", err)
	}
	got, _ := Extract(G2(), testRegistry(), items, nil)
	if got["acme-health"].URL != "https://www.g2.com/products/acme-health/reviews" {
		t.Fatalf("expected mapping URL fallback, got %+v", got["acme-health"])
	}
}

func TestParseDumpErrors(t *testing.T) {
	for _, doc := range []string{`[{"url": `, `{"records": []}`, `"text"`} {
		if _, err := ParseDump([]byte(doc)); !errors.Is(err, ErrMalformedDump) {
			t.Fatalf("ParseDump(%s) error = %v, want ErrMalformedDump", doc, err)
		}
	}
}

func TestAdapterFor(t *testing.T) {
	a, err := AdapterFor(model.SourceCapterra)
	if err != nil || a.Name() != model.SourceCapterra {
		t.Fatalf("AdapterFor(capterra) = %v, %v", a, err)
	}
	if _, err := AdapterFor("trustpilot"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
