// Package classify turns verification evidence into a directory category.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sw33tLie/vendorscope/pkg/evidence"
	"github.com/sw33tLie/vendorscope/pkg/model"
)

const (
	specificMinCount      = 5
	compatibleMinBroad    = 3
	compatibleMinNarrow   = 1
	reasonSiteUnreachable = "site unreachable"
)

// Feature is a named capability inferred from matched keywords.
type Feature struct {
	Name       string
	Substrings []string
}

// Features is the fixed capability table. A feature is set when any matched
// keyword contains one of its substrings.
var Features = []Feature{
	{Name: "ivInfusion", Substrings: []string{"infusion", "iv "}},
	{Name: "spravatoRems", Substrings: []string{"spravato", "esketamine", "rems"}},
	{Name: "ketamineAssistedTherapy", Substrings: []string{"assisted", "kap"}},
	{Name: "outcomeTracking", Substrings: []string{"phq", "gad-7", "outcome"}},
	{Name: "telehealth", Substrings: []string{"tele"}},
	{Name: "medicationManagement", Substrings: []string{"medication"}},
}

// Classify derives a classification from a report. The first matching rule
// wins.
func Classify(r model.VerificationReport) model.Classification {
	if !r.WebsiteLive {
		return model.Classification{
			Category:         model.CategoryUnknown,
			Reason:           reasonSiteUnreachable,
			Confidence:       model.ConfidenceLow,
			InferredFeatures: map[string]bool{},
		}
	}

	narrow := r.KetamineEvidence.Count
	broad := r.PsychiatryEvidence.Count
	c := model.Classification{InferredFeatures: InferFeatures(r)}

	switch strong := strongSignals(r.KetamineEvidence); {
	case narrow >= specificMinCount && len(strong) > 0:
		c.Category = model.CategorySpecific
		c.Confidence = model.ConfidenceHigh
		c.Reason = fmt.Sprintf("%d ketamine keyword matches including %s", narrow, strings.Join(strong, ", "))
	case narrow >= compatibleMinNarrow || broad >= compatibleMinBroad:
		c.Category = model.CategoryCompatible
		c.Confidence = model.ConfidenceLow
		if narrow > 0 {
			c.Confidence = model.ConfidenceMedium
		}
		c.Reason = fmt.Sprintf("%d ketamine and %d psychiatry keyword matches", narrow, broad)
	default:
		c.Category = model.CategoryGeneral
		c.Confidence = model.ConfidenceHigh
		c.Reason = fmt.Sprintf("no ketamine evidence and %d psychiatry keyword matches", broad)
	}
	return c
}

func strongSignals(ev model.Evidence) []string {
	var out []string
	for _, kw := range evidence.StrongSignals {
		if ev.Matches[kw] > 0 {
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out
}

// InferFeatures evaluates every capability against the keywords matched by
// either vocabulary. Unreachable sites get no features.
func InferFeatures(r model.VerificationReport) map[string]bool {
	out := make(map[string]bool, len(Features))
	if !r.WebsiteLive {
		return out
	}
	matched := append(evidence.MatchedKeywords(r.KetamineEvidence), evidence.MatchedKeywords(r.PsychiatryEvidence)...)
	for _, f := range Features {
		out[f.Name] = anyContains(matched, f.Substrings)
	}
	return out
}

func anyContains(keywords, substrings []string) bool {
	for _, kw := range keywords {
		for _, sub := range substrings {
			if strings.Contains(kw, sub) {
				return true
			}
		}
	}
	return false
}

// ReviewStatus stamps a report: unreachable sites are unverified, clear-cut
// classifications are verified and anything ambiguous goes to human review.
func ReviewStatus(r model.VerificationReport, c model.Classification) model.VerificationStatus {
	if !r.WebsiteLive {
		return model.StatusUnverified
	}
	if c.Confidence == model.ConfidenceHigh && (c.Category == model.CategorySpecific || c.Category == model.CategoryGeneral) {
		return model.StatusVerified
	}
	return model.StatusNeedsReview
}

// Apply classifies a report and stamps its status.
func Apply(r model.VerificationReport) model.VendorVerification {
	c := Classify(r)
	r.Status = ReviewStatus(r, c)
	return model.VendorVerification{Report: r, Classification: c}
}
