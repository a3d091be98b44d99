package candidates

import (
	"strings"
	"testing"

	"github.com/sw33tLie/vendorscope/pkg/dedup"
	"github.com/sw33tLie/vendorscope/pkg/model"
)

func verification(live bool, status model.VerificationStatus, cat model.Category) model.VendorVerification {
	return model.VendorVerification{
		Report: model.VerificationReport{
			VendorRef:    "nova-clinic-cloud",
			Website:      "https://nova.example",
			WebsiteLive:  live,
			Status:       status,
			PricingFound: []string{"$99/month"},
		},
		Classification: model.Classification{Category: cat, Confidence: model.ConfidenceHigh, Reason: "r"},
	}
}

func TestBuildAlwaysNeedsReview(t *testing.T) {
	d := dedup.Decision{
		Candidate:    model.DiscoveredVendor{Name: "Nova Clinic Cloud", Website: "https://nova.example", Description: "EHR", SourceOrigin: "feed"},
		ProposedSlug: "nova-clinic-cloud",
	}
	for _, st := range []model.VerificationStatus{model.StatusVerified, model.StatusUnverified} {
		e := Build(d, verification(st == model.StatusVerified, st, model.CategorySpecific), "2026-10-19")
		if e.Verification.Status != model.StatusNeedsReview {
			t.Fatalf("candidate stamped %s, want needs_review", e.Verification.Status)
		}
		if e.Slug != "nova-clinic-cloud" || e.SourceOrigin != "feed" || e.Verification.Date != "2026-10-19" {
			t.Fatalf("unexpected entry %+v", e)
		}
		if e.Verification.PagesChecked == nil {
			t.Fatal("pagesChecked must serialize as an empty list")
		}
	}
}

func TestSummaryMarkdown(t *testing.T) {
	decisions := []dedup.Decision{
		{Candidate: model.DiscoveredVendor{Name: "Acme Health!"}, Duplicate: true, Reason: dedup.ReasonName, MatchedSlug: "acme-health"},
		{Candidate: model.DiscoveredVendor{Name: "Nova Clinic Cloud", Website: "https://nova.example"}, ProposedSlug: "nova-clinic-cloud"},
		{Candidate: model.DiscoveredVendor{Name: "Nova Cloud Inc"}, Duplicate: true, Reason: dedup.ReasonDomain, MatchedSlug: "nova-clinic-cloud", InBatch: true},
	}
	entry := Build(decisions[1], verification(false, model.StatusUnverified, model.CategoryUnknown), "2026-10-19")

	s := &Summary{
		RunID:       "run-1",
		RunDate:     "2026-10-19",
		Aggregated:  true,
		VendorCount: 3,
		Changes: []model.Change{
			{VendorSlug: "acme-health", Source: model.SourceG2, ChangeType: model.ChangeUpdated, OldScore: 4.5, OldCount: 10, NewScore: 4.6, NewCount: 12},
		},
		Dropped:   map[model.Source]int{model.SourceG2: 2},
		Acquired:  true,
		Feed:      "feed.example",
		Decisions: decisions,
		Entries:   []model.CandidateEntry{entry},
	}
	md := s.Markdown()

	for _, want := range []string{
		"# Vendor reconciliation 2026-10-19",
		"3 vendors aggregated, 1 source changes.",
		"`acme-health` g2: 4.5 (10) -> 4.6 (12)",
		"Dropped extraction records: g2 2.",
		"- discovered: 3",
		"- duplicates: 2",
		"- accepted: 1",
		"- Acme Health!: name match with `acme-health` (registry)",
		"- Nova Cloud Inc: domain match with `nova-clinic-cloud` (batch)",
		"- unknown: 1",
		"## Unreachable sites",
		"- nova-clinic-cloud (https://nova.example)",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("summary is missing %q:\n%s", want, md)
		}
	}
	if !strings.HasSuffix(md, "\n") || strings.HasSuffix(md, "\n\n") {
		t.Fatal("summary must end with a single newline")
	}
}

func TestSummaryVerificationOnly(t *testing.T) {
	s := &Summary{
		RunDate: "2026-10-19",
		Verifications: []model.VendorVerification{
			verification(true, model.StatusVerified, model.CategorySpecific),
			verification(true, model.StatusNeedsReview, model.CategoryCompatible),
		},
	}
	md := s.Markdown()
	if strings.Contains(md, "## Discovery") || strings.Contains(md, "## Review changes") {
		t.Fatalf("unexpected sections:\n%s", md)
	}
	for _, want := range []string{"- verified: 1", "- needs_review: 1", "- unverified: 0", "- specific: 1", "- compatible: 1"} {
		if !strings.Contains(md, want) {
			t.Fatalf("summary is missing %q:\n%s", want, md)
		}
	}
}
