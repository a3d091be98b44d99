package pipeline

import (
	"context"
	"fmt"

	"github.com/sw33tLie/vendorscope/pkg/candidates"
	"github.com/sw33tLie/vendorscope/pkg/dedup"
	"github.com/sw33tLie/vendorscope/pkg/discovery"
	"github.com/sw33tLie/vendorscope/pkg/model"
)

// AcquisitionConfig holds what RunAcquisition needs. A nil Deduplicator
// uses the default matchers.
type AcquisitionConfig struct {
	Feed         discovery.Feed
	Deduplicator *dedup.Deduplicator
	Verification VerificationConfig
}

// AcquisitionResult is the outcome of an acquisition run.
type AcquisitionResult struct {
	Feed          string
	Discovered    []model.DiscoveredVendor
	Decisions     []dedup.Decision
	Entries       []model.CandidateEntry
	Verifications []model.VendorVerification
}

// RunAcquisition reads the feed, drops duplicates of existing vendors and
// earlier candidates, then verifies and classifies what is left. A feed
// error aborts the run.
func RunAcquisition(ctx context.Context, rc *RunContext, cfg AcquisitionConfig, existing []model.VendorRecord) (*AcquisitionResult, error) {
	log := rc.log()
	if cfg.Feed == nil {
		return nil, fmt.Errorf("acquisition needs a discovery feed")
	}

	discovered, err := cfg.Feed.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read feed %s: %w", cfg.Feed.Name(), err)
	}
	log.Infof("Discovered %d vendors from %s", len(discovered), cfg.Feed.Name())

	d := cfg.Deduplicator
	if d == nil {
		d = dedup.New()
	}
	decisions := d.Run(existing, discovered)
	accepted := dedup.Accepted(decisions)
	for _, dec := range decisions {
		if dec.Duplicate {
			log.Debugf("Skipping %q: %s with %s", dec.Candidate.Name, dec.Reason, dec.MatchedSlug)
		}
	}
	log.Infof("%d duplicates, %d new candidates", len(decisions)-len(accepted), len(accepted))

	targets := make([]Target, 0, len(accepted))
	for _, dec := range accepted {
		targets = append(targets, Target{Ref: dec.ProposedSlug, Website: dec.Candidate.Website})
	}
	verifications := verify(ctx, rc, cfg.Verification, targets)

	entries := make([]model.CandidateEntry, 0, len(accepted))
	for i, dec := range accepted {
		entries = append(entries, candidates.Build(dec, verifications[i], rc.RunDate))
	}

	return &AcquisitionResult{
		Feed:          cfg.Feed.Name(),
		Discovered:    discovered,
		Decisions:     decisions,
		Entries:       entries,
		Verifications: verifications,
	}, nil
}
