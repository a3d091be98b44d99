// Package model holds the records that flow through the reconciliation pipeline.
package model

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the layout used for every date stamp written by the pipeline.
const DateLayout = "2006-01-02"

// FormatDate renders t as a UTC date stamp.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Source identifies an external review platform.
type Source string

const (
	SourceCapterra Source = "capterra"
	SourceG2       Source = "g2"
)

// AllSources lists the known review platforms, sorted by name.
var AllSources = []Source{SourceCapterra, SourceG2}

// ParseSource validates a platform name.
func ParseSource(s string) (Source, error) {
	for _, src := range AllSources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown review source %q", s)
}

// VendorRecord is a directory entry as owned by the content store.
type VendorRecord struct {
	Slug    string `json:"slug" yaml:"slug"`
	Name    string `json:"name" yaml:"name"`
	Website string `json:"website" yaml:"website"`
}

// SourceMapping ties a vendor to its identity on one review platform.
type SourceMapping struct {
	ExternalSlug string `json:"externalSlug" yaml:"externalSlug"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ReviewSource is one platform's contribution to a vendor's aggregate.
type ReviewSource struct {
	Source      Source  `json:"source"`
	Score       float64 `json:"score"`
	Count       int     `json:"count"`
	URL         string  `json:"url"`
	LastUpdated string  `json:"lastUpdated"`
}

// SameContent reports whether two sources carry identical score, count and url.
func (r ReviewSource) SameContent(o ReviewSource) bool {
	return r.Score == o.Score && r.Count == o.Count && r.URL == o.URL
}

// AggregatedReview is the composite rating record of one vendor.
type AggregatedReview struct {
	VendorSlug     string         `json:"vendorSlug"`
	AggregateScore *float64       `json:"aggregateScore"`
	TotalCount     int            `json:"totalCount"`
	Sources        []ReviewSource `json:"sources"`
	LastAggregated string         `json:"lastAggregated"`
}

// Check verifies the structural invariants of an aggregated record.
func (a AggregatedReview) Check() error {
	sum := 0
	for i, s := range a.Sources {
		if s.Count < 0 {
			return fmt.Errorf("%s: negative count for %s", a.VendorSlug, s.Source)
		}
		if s.Score < 0 || s.Score > 5 {
			return fmt.Errorf("%s: score %v out of range for %s", a.VendorSlug, s.Score, s.Source)
		}
		if i > 0 && a.Sources[i-1].Source >= s.Source {
			return fmt.Errorf("%s: sources not sorted by name", a.VendorSlug)
		}
		sum += s.Count
	}
	if sum != a.TotalCount {
		return fmt.Errorf("%s: totalCount %d does not match sum of sources %d", a.VendorSlug, a.TotalCount, sum)
	}
	if (a.AggregateScore == nil) != (a.TotalCount == 0) {
		return fmt.Errorf("%s: aggregateScore must be null exactly when totalCount is 0", a.VendorSlug)
	}
	if a.AggregateScore != nil && (*a.AggregateScore < 0 || *a.AggregateScore > 5 || math.IsNaN(*a.AggregateScore)) {
		return fmt.Errorf("%s: aggregateScore %v out of range", a.VendorSlug, *a.AggregateScore)
	}
	return nil
}

// DiscoveredVendor is a raw candidate coming from a discovery feed.
type DiscoveredVendor struct {
	Name         string `json:"name"`
	Website      string `json:"website"`
	Description  string `json:"description,omitempty"`
	SourceOrigin string `json:"sourceOrigin"`
}

// VerificationStatus is the outcome stamp of a verification pass.
type VerificationStatus string

const (
	StatusVerified    VerificationStatus = "verified"
	StatusUnverified  VerificationStatus = "unverified"
	StatusNeedsReview VerificationStatus = "needs_review"
)

// Evidence is the result of one keyword scan over a vendor's website text.
type Evidence struct {
	Count   int            `json:"count"`
	Matches map[string]int `json:"matches"`
}

// VerificationReport is regenerated on every run and never merged with history.
type VerificationReport struct {
	VendorRef          string             `json:"vendorRef"`
	Website            string             `json:"website"`
	WebsiteLive        bool               `json:"websiteLive"`
	PagesChecked       []string           `json:"pagesChecked"`
	KetamineEvidence   Evidence           `json:"ketamineEvidence"`
	PsychiatryEvidence Evidence           `json:"psychiatryEvidence"`
	PricingFound       []string           `json:"pricingFound"`
	CorpusHash         string             `json:"corpusHash,omitempty"`
	Status             VerificationStatus `json:"status"`
	VerificationDate   string             `json:"verificationDate"`
}

// Category is the classification bucket of a vendor.
type Category string

const (
	CategorySpecific   Category = "specific"
	CategoryCompatible Category = "compatible"
	CategoryGeneral    Category = "general"
	CategoryUnknown    Category = "unknown"
)

// Confidence grades how much the evidence supports a category.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Classification is derived purely from a VerificationReport.
type Classification struct {
	Category         Category        `json:"category"`
	Reason           string          `json:"reason"`
	Confidence       Confidence      `json:"confidence"`
	InferredFeatures map[string]bool `json:"inferredFeatures"`
}

// Verification is the stamp carried by a candidate entry.
type Verification struct {
	Status       VerificationStatus `json:"status"`
	Date         string             `json:"date"`
	WebsiteLive  bool               `json:"websiteLive"`
	PagesChecked []string           `json:"pagesChecked"`
	PricingFound []string           `json:"pricingFound"`
}

// CandidateEntry is a generated vendor record awaiting human approval.
type CandidateEntry struct {
	Slug           string         `json:"slug"`
	Name           string         `json:"name"`
	Website        string         `json:"website"`
	Description    string         `json:"description,omitempty"`
	SourceOrigin   string         `json:"sourceOrigin"`
	Classification Classification `json:"classification"`
	Verification   Verification   `json:"verification"`
}

// VendorVerification pairs a report with the classification derived from it.
type VendorVerification struct {
	Report         VerificationReport `json:"report"`
	Classification Classification     `json:"classification"`
}

// ChangeType describes how a vendor's review sources moved between runs.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeUpdated ChangeType = "updated"
	ChangeRemoved ChangeType = "removed"
)

// Change captures a single source-level difference between two aggregate runs.
type Change struct {
	VendorSlug string     `json:"vendorSlug"`
	Source     Source     `json:"source"`
	ChangeType ChangeType `json:"changeType"`
	OldScore   float64    `json:"oldScore,omitempty"`
	OldCount   int        `json:"oldCount,omitempty"`
	NewScore   float64    `json:"newScore,omitempty"`
	NewCount   int        `json:"newCount,omitempty"`
}
