// Package candidates builds the entries proposed for human approval and the
// run summary that accompanies them.
package candidates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sw33tLie/vendorscope/pkg/dedup"
	"github.com/sw33tLie/vendorscope/pkg/model"
)

// Build turns an accepted dedup decision and its verification into a
// candidate entry. Candidates always await review, whatever the report says.
func Build(d dedup.Decision, v model.VendorVerification, runDate string) model.CandidateEntry {
	pages := v.Report.PagesChecked
	if pages == nil {
		pages = []string{}
	}
	return model.CandidateEntry{
		Slug:           d.ProposedSlug,
		Name:           d.Candidate.Name,
		Website:        d.Candidate.Website,
		Description:    d.Candidate.Description,
		SourceOrigin:   d.Candidate.SourceOrigin,
		Classification: v.Classification,
		Verification: model.Verification{
			Status:       model.StatusNeedsReview,
			Date:         runDate,
			WebsiteLive:  v.Report.WebsiteLive,
			PagesChecked: pages,
			PricingFound: v.Report.PricingFound,
		},
	}
}

// Summary collects what a run did, for humans.
type Summary struct {
	RunID   string
	RunDate string

	// Aggregation
	Aggregated  bool
	VendorCount int
	Changes     []model.Change
	Dropped     map[model.Source]int

	// Acquisition
	Acquired  bool
	Feed      string
	Decisions []dedup.Decision
	Entries   []model.CandidateEntry

	// Verification of registry vendors
	Verifications []model.VendorVerification
}

func (s *Summary) categories() map[model.Category]int {
	out := map[model.Category]int{}
	for _, e := range s.Entries {
		out[e.Classification.Category]++
	}
	for _, v := range s.Verifications {
		out[v.Classification.Category]++
	}
	return out
}

func (s *Summary) unreachable() []string {
	var out []string
	for _, e := range s.Entries {
		if !e.Verification.WebsiteLive {
			out = append(out, fmt.Sprintf("%s (%s)", e.Slug, e.Website))
		}
	}
	for _, v := range s.Verifications {
		if !v.Report.WebsiteLive {
			out = append(out, fmt.Sprintf("%s (%s)", v.Report.VendorRef, v.Report.Website))
		}
	}
	sort.Strings(out)
	return out
}

// Markdown renders the summary document.
func (s *Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Vendor reconciliation %s\n\n", s.RunDate)
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`\n\n", s.RunID)
	}

	if s.Aggregated {
		b.WriteString("## Review changes\n\n")
		fmt.Fprintf(&b, "%d vendors aggregated, %d source changes.\n\n", s.VendorCount, len(s.Changes))
		for _, c := range s.Changes {
			b.WriteString("- " + describeChange(c) + "\n")
		}
		if len(s.Changes) > 0 {
			b.WriteString("\n")
		}
		if dropped := droppedLine(s.Dropped); dropped != "" {
			b.WriteString(dropped + "\n\n")
		}
	}

	if s.Acquired {
		accepted := len(dedup.Accepted(s.Decisions))
		b.WriteString("## Discovery\n\n")
		if s.Feed != "" {
			fmt.Fprintf(&b, "Feed: %s\n\n", s.Feed)
		}
		fmt.Fprintf(&b, "- discovered: %d\n", len(s.Decisions))
		fmt.Fprintf(&b, "- duplicates: %d\n", len(s.Decisions)-accepted)
		fmt.Fprintf(&b, "- accepted: %d\n\n", accepted)

		var dups []string
		for _, d := range s.Decisions {
			if !d.Duplicate {
				continue
			}
			where := "registry"
			if d.InBatch {
				where = "batch"
			}
			dups = append(dups, fmt.Sprintf("- %s: %s with `%s` (%s)", d.Candidate.Name, d.Reason, d.MatchedSlug, where))
		}
		if len(dups) > 0 {
			b.WriteString("### Duplicates\n\n" + strings.Join(dups, "\n") + "\n\n")
		}

		if len(s.Entries) > 0 {
			b.WriteString("### Candidates\n\n")
			for _, e := range s.Entries {
				fmt.Fprintf(&b, "- `%s` %s: %s/%s, %s\n", e.Slug, e.Name, e.Classification.Category, e.Classification.Confidence, e.Classification.Reason)
			}
			b.WriteString("\n")
		}
	}

	if len(s.Verifications) > 0 {
		b.WriteString("## Verification\n\n")
		statuses := map[model.VerificationStatus]int{}
		for _, v := range s.Verifications {
			statuses[v.Report.Status]++
		}
		for _, st := range []model.VerificationStatus{model.StatusVerified, model.StatusNeedsReview, model.StatusUnverified} {
			fmt.Fprintf(&b, "- %s: %d\n", st, statuses[st])
		}
		b.WriteString("\n")
	}

	if cats := s.categories(); len(cats) > 0 {
		b.WriteString("## Categories\n\n")
		for _, c := range []model.Category{model.CategorySpecific, model.CategoryCompatible, model.CategoryGeneral, model.CategoryUnknown} {
			if cats[c] > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", c, cats[c])
			}
		}
		b.WriteString("\n")
	}

	if unreachable := s.unreachable(); len(unreachable) > 0 {
		b.WriteString("## Unreachable sites\n\n")
		for _, u := range unreachable {
			b.WriteString("- " + u + "\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func describeChange(c model.Change) string {
	switch c.ChangeType {
	case model.ChangeAdded:
		return fmt.Sprintf("`%s` %s added: %.1f (%d reviews)", c.VendorSlug, c.Source, c.NewScore, c.NewCount)
	case model.ChangeRemoved:
		return fmt.Sprintf("`%s` %s removed (was %.1f, %d reviews)", c.VendorSlug, c.Source, c.OldScore, c.OldCount)
	default:
		return fmt.Sprintf("`%s` %s: %.1f (%d) -> %.1f (%d)", c.VendorSlug, c.Source, c.OldScore, c.OldCount, c.NewScore, c.NewCount)
	}
}

func droppedLine(dropped map[model.Source]int) string {
	var parts []string
	for _, src := range model.AllSources {
		if n := dropped[src]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", src, n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Dropped extraction records: " + strings.Join(parts, ", ") + "."
}
