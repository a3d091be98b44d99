package pipeline

import (
	"fmt"

	"github.com/sw33tLie/vendorscope/pkg/aggregate"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/registry"
	"github.com/sw33tLie/vendorscope/pkg/sources"
	"github.com/tidwall/gjson"
)

// AggregationInput holds the parsed inputs of an aggregation run. A source
// without a dump contributes nothing this run.
type AggregationInput struct {
	Registry *registry.Registry
	Dumps    map[model.Source][]gjson.Result
}

// AggregationResult is the outcome of an aggregation run.
type AggregationResult struct {
	Snapshot aggregate.Snapshot
	Changes  []model.Change
	Stats    map[model.Source]sources.Stats
}

// Dropped returns the number of dropped extraction records per source.
func (r *AggregationResult) Dropped() map[model.Source]int {
	out := make(map[model.Source]int, len(r.Stats))
	for src, st := range r.Stats {
		out[src] = st.Dropped()
	}
	return out
}

// RunAggregation extracts every dump, merges the result with the previous
// snapshot and checks the invariants of every produced record.
func RunAggregation(rc *RunContext, in AggregationInput) (*AggregationResult, error) {
	log := rc.log()
	if in.Registry == nil {
		return nil, fmt.Errorf("aggregation needs a registry")
	}

	result := &AggregationResult{Stats: make(map[model.Source]sources.Stats)}
	current := aggregate.Current{}

	for _, src := range model.AllSources {
		items, ok := in.Dumps[src]
		if !ok {
			log.Infof("No %s dump for this run", src)
			continue
		}
		adapter, err := sources.AdapterFor(src)
		if err != nil {
			return nil, err
		}
		extracted, stats := sources.Extract(adapter, in.Registry, items, log)
		result.Stats[src] = stats
		log.Infof("%s: %d records, %d resolved, %d dropped", src, stats.Total, stats.Resolved, stats.Dropped())

		if stats.Resolved == 0 && previousSourceCount(rc.Previous, src) > 10 {
			log.Warnf("%s dump resolved no vendor, but the previous run had %d. Check the scraper output.", src, previousSourceCount(rc.Previous, src))
		}
		for slug, rs := range extracted {
			current.Add(slug, rs)
		}
	}

	result.Snapshot = aggregate.Aggregate(in.Registry.Slugs(), current, rc.Previous, rc.RunDate)
	for slug, rec := range result.Snapshot {
		if err := rec.Check(); err != nil {
			return nil, fmt.Errorf("aggregate for %s is inconsistent: %w", slug, err)
		}
	}
	result.Changes = aggregate.Diff(rc.Previous, result.Snapshot)
	return result, nil
}

func previousSourceCount(prev aggregate.Snapshot, src model.Source) int {
	n := 0
	for _, rec := range prev {
		for _, s := range rec.Sources {
			if s.Source == src {
				n++
			}
		}
	}
	return n
}
