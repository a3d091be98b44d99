package pipeline

import (
	"context"
	"sync"

	"github.com/sw33tLie/vendorscope/pkg/model"
)

// Verifier produces a report for one website. *evidence.Collector is the
// production implementation.
type Verifier interface {
	Collect(ctx context.Context, ref, website, date string) model.VerificationReport
}

// Target is one website to verify.
type Target struct {
	Ref     string
	Website string
}

// collectConcurrently verifies targets using a worker pool. Reports are
// returned in input order; a failing vendor never affects the others.
func collectConcurrently(ctx context.Context, v Verifier, targets []Target, date string, concurrency int, log Logger) []model.VerificationReport {
	if len(targets) == 0 {
		return []model.VerificationReport{}
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(targets) {
		concurrency = len(targets)
	}

	reports := make([]model.VerificationReport, len(targets))
	indexChan := make(chan int, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexChan {
				t := targets[idx]
				log.Debugf("Verifying %s (%s)", t.Ref, t.Website)
				reports[idx] = v.Collect(ctx, t.Ref, t.Website, date)
			}
		}()
	}

	for i := range targets {
		indexChan <- i
	}
	close(indexChan)
	wg.Wait()

	return reports
}
