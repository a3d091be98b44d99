package pipeline

import (
	"context"

	"github.com/sw33tLie/vendorscope/pkg/classify"
	"github.com/sw33tLie/vendorscope/pkg/model"
)

// VerificationConfig holds what RunVerification needs.
type VerificationConfig struct {
	Verifier    Verifier
	Concurrency int
}

// RunVerification collects evidence for every vendor and classifies it.
// Results are in the order of vendors.
func RunVerification(ctx context.Context, rc *RunContext, cfg VerificationConfig, vendors []model.VendorRecord) []model.VendorVerification {
	targets := make([]Target, 0, len(vendors))
	for _, v := range vendors {
		targets = append(targets, Target{Ref: v.Slug, Website: v.Website})
	}
	return verify(ctx, rc, cfg, targets)
}

func verify(ctx context.Context, rc *RunContext, cfg VerificationConfig, targets []Target) []model.VendorVerification {
	log := rc.log()
	reports := collectConcurrently(ctx, cfg.Verifier, targets, rc.RunDate, cfg.Concurrency, log)

	out := make([]model.VendorVerification, 0, len(reports))
	for _, r := range reports {
		v := classify.Apply(r)
		if !r.WebsiteLive {
			log.Warnf("%s: website %s unreachable, left unverified", r.VendorRef, r.Website)
		} else {
			log.Debugf("%s: %s/%s (%s)", r.VendorRef, v.Classification.Category, v.Classification.Confidence, v.Classification.Reason)
		}
		out = append(out, v)
	}
	return out
}
