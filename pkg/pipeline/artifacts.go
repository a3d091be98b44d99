package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sw33tLie/vendorscope/pkg/candidates"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/storage"
)

// Artifact file names inside the output directory.
const (
	AggregateFile    = "aggregated-reviews.json"
	CandidatesFile   = "candidates.json"
	VerificationFile = "verification.json"
	SummaryFile      = "summary.md"
)

// Outcome collects whatever sub-pipelines ran in one invocation.
type Outcome struct {
	Aggregation  *AggregationResult
	Acquisition  *AcquisitionResult
	Verification []model.VendorVerification
}

// Summary renders the outcome for humans.
func (o *Outcome) Summary(rc *RunContext) *candidates.Summary {
	s := &candidates.Summary{RunID: rc.RunID, RunDate: rc.RunDate}
	if a := o.Aggregation; a != nil {
		s.Aggregated = true
		s.VendorCount = len(a.Snapshot)
		s.Changes = a.Changes
		s.Dropped = a.Dropped()
	}
	if a := o.Acquisition; a != nil {
		s.Acquired = true
		s.Feed = a.Feed
		s.Decisions = a.Decisions
		s.Entries = a.Entries
	}
	s.Verifications = o.Verification
	return s
}

// Write stores every produced document in dir. It is called once all stages
// succeeded; every document is encoded and staged before any is replaced.
func (o *Outcome) Write(rc *RunContext, dir string) error {
	var docs []storage.Document
	add := func(name string, v interface{}) error {
		data, err := storage.MarshalDocument(v)
		if err != nil {
			return fmt.Errorf("could not encode %s: %w", name, err)
		}
		docs = append(docs, storage.Document{Path: filepath.Join(dir, name), Data: data, Perm: 0o644})
		return nil
	}

	if o.Aggregation != nil {
		if err := add(AggregateFile, o.Aggregation.Snapshot); err != nil {
			return err
		}
	}
	if o.Acquisition != nil {
		if err := add(CandidatesFile, o.Acquisition.Entries); err != nil {
			return err
		}
	}
	if o.Verification != nil {
		byRef := make(map[string]model.VendorVerification, len(o.Verification))
		for _, v := range o.Verification {
			byRef[v.Report.VendorRef] = v
		}
		if err := add(VerificationFile, byRef); err != nil {
			return err
		}
	}
	docs = append(docs, storage.Document{
		Path: filepath.Join(dir, SummaryFile),
		Data: []byte(o.Summary(rc).Markdown()),
		Perm: 0o644,
	})
	return storage.WriteDocumentsAtomic(docs)
}

// Record appends the outcome to the run history, one run row per
// sub-pipeline.
func (o *Outcome) Record(ctx context.Context, rc *RunContext, db *storage.DB) error {
	run := func(kind string, vendors int) storage.Run {
		return storage.Run{ID: rc.RunID + "-" + kind, Kind: kind, RunDate: rc.RunDate, StartedAt: rc.StartedAt, VendorCount: vendors}
	}
	if a := o.Aggregation; a != nil {
		if err := db.RecordRun(ctx, run(storage.KindAggregate, len(a.Snapshot)), a.Changes); err != nil {
			return err
		}
	}
	if a := o.Acquisition; a != nil {
		r := run(storage.KindAcquire, len(a.Entries))
		if err := db.RecordRun(ctx, r, nil); err != nil {
			return err
		}
		if err := db.RecordVerifications(ctx, r.ID, a.Verifications); err != nil {
			return err
		}
	}
	if o.Verification != nil {
		r := run(storage.KindVerify, len(o.Verification))
		if err := db.RecordRun(ctx, r, nil); err != nil {
			return err
		}
		if err := db.RecordVerifications(ctx, r.ID, o.Verification); err != nil {
			return err
		}
	}
	return nil
}
