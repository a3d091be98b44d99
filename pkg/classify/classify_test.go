package classify

import (
	"testing"

	"github.com/sw33tLie/vendorscope/pkg/model"
)

func report(live bool, narrow, broad map[string]int) model.VerificationReport {
	sum := func(m map[string]int) int {
		n := 0
		for _, v := range m {
			n += v
		}
		return n
	}
	if narrow == nil {
		narrow = map[string]int{}
	}
	if broad == nil {
		broad = map[string]int{}
	}
	return model.VerificationReport{
		VendorRef:          "acme",
		WebsiteLive:        live,
		KetamineEvidence:   model.Evidence{Count: sum(narrow), Matches: narrow},
		PsychiatryEvidence: model.Evidence{Count: sum(broad), Matches: broad},
	}
}

func TestClassifyDecisionOrder(t *testing.T) {
	tests := []struct {
		name       string
		report     model.VerificationReport
		category   model.Category
		confidence model.Confidence
		status     model.VerificationStatus
	}{
		{
			name:       "specific with strong signal",
			report:     report(true, map[string]int{"ketamine": 3, "infusion clinic": 2}, nil),
			category:   model.CategorySpecific,
			confidence: model.ConfidenceHigh,
			status:     model.StatusVerified,
		},
		{
			name:       "many narrow matches without strong signal",
			report:     report(true, map[string]int{"infusion therapy": 3, "rems": 2}, nil),
			category:   model.CategoryCompatible,
			confidence: model.ConfidenceMedium,
			status:     model.StatusNeedsReview,
		},
		{
			name:       "broad only",
			report:     report(true, nil, map[string]int{"psychiatry": 2, "depression": 1}),
			category:   model.CategoryCompatible,
			confidence: model.ConfidenceLow,
			status:     model.StatusNeedsReview,
		},
		{
			name:       "below every threshold",
			report:     report(true, nil, map[string]int{"anxiety": 2}),
			category:   model.CategoryGeneral,
			confidence: model.ConfidenceHigh,
			status:     model.StatusVerified,
		},
		{
			name:       "no evidence at all",
			report:     report(true, nil, nil),
			category:   model.CategoryGeneral,
			confidence: model.ConfidenceHigh,
			status:     model.StatusVerified,
		},
		{
			name:       "unreachable ignores counts",
			report:     report(false, map[string]int{"ketamine": 9}, map[string]int{"psychiatry": 9}),
			category:   model.CategoryUnknown,
			confidence: model.ConfidenceLow,
			status:     model.StatusUnverified,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.report)
			if got.Category != tc.category || got.Confidence != tc.confidence {
				t.Fatalf("Classify = %s/%s, want %s/%s (%s)", got.Category, got.Confidence, tc.category, tc.confidence, got.Reason)
			}
			if status := ReviewStatus(tc.report, got); status != tc.status {
				t.Fatalf("ReviewStatus = %s, want %s", status, tc.status)
			}
		})
	}
}

func TestClassifyUnreachableReason(t *testing.T) {
	got := Classify(report(false, nil, nil))
	if got.Reason != "site unreachable" {
		t.Fatalf("Reason = %q", got.Reason)
	}
	if len(got.InferredFeatures) != 0 {
		t.Fatalf("expected no features for an unreachable site, got %v", got.InferredFeatures)
	}
}

func TestInferFeatures(t *testing.T) {
	r := report(true,
		map[string]int{"ketamine infusion": 1, "spravato": 2},
		map[string]int{"telepsychiatry": 1, "phq-9": 1},
	)
	got := InferFeatures(r)

	want := map[string]bool{
		"ivInfusion":              true,
		"spravatoRems":            true,
		"ketamineAssistedTherapy": false,
		"outcomeTracking":         true,
		"telehealth":              true,
		"medicationManagement":    false,
	}
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("feature %s = %v, want %v (all: %v)", name, got[name], v, got)
		}
	}
	if len(got) != len(Features) {
		t.Fatalf("expected every feature to be evaluated, got %v", got)
	}
}

func TestApplyStampsStatus(t *testing.T) {
	v := Apply(report(true, map[string]int{"ketamine": 1}, nil))
	if v.Report.Status != model.StatusNeedsReview || v.Classification.Category != model.CategoryCompatible {
		t.Fatalf("unexpected verification %+v", v)
	}
}
