// Package aggregate merges per-source review data into one composite record per
// vendor while keeping date stamps stable across runs with unchanged content.
package aggregate

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/sw33tLie/vendorscope/pkg/model"
)

// Snapshot is a previous run's aggregate output, keyed by vendor slug.
type Snapshot map[string]model.AggregatedReview

// Current is the extraction result of this run: vendor -> source -> review.
type Current map[string]map[model.Source]model.ReviewSource

// Add records one extracted source for a vendor.
func (c Current) Add(slug string, rs model.ReviewSource) {
	m, ok := c[slug]
	if !ok {
		m = make(map[model.Source]model.ReviewSource)
		c[slug] = m
	}
	m[rs.Source] = rs
}

// LoadSnapshot reads a previous aggregate document. A missing file is an empty
// snapshot; an unparseable one is an error.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return nil, err
	}
	snap := Snapshot{}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("previous aggregate %s: %w", path, err)
	}
	for slug, rec := range snap {
		if rec.VendorSlug == "" {
			rec.VendorSlug = slug
			snap[slug] = rec
		}
	}
	return snap, nil
}

// Aggregate builds one record per slug. The output is total over slugs: vendors
// without any source still get a null/zero record.
func Aggregate(slugs []string, current Current, previous Snapshot, runDate string) Snapshot {
	out := make(Snapshot, len(slugs))
	for _, slug := range slugs {
		prev, hadPrev := previous[slug]
		out[slug] = aggregateVendor(slug, current[slug], prev, hadPrev, runDate)
	}
	return out
}

func aggregateVendor(slug string, cur map[model.Source]model.ReviewSource, prev model.AggregatedReview, hadPrev bool, runDate string) model.AggregatedReview {
	prevBySource := make(map[model.Source]model.ReviewSource, len(prev.Sources))
	for _, s := range prev.Sources {
		prevBySource[s.Source] = s
	}

	sources := make([]model.ReviewSource, 0, len(cur))
	for _, rs := range cur {
		rs.LastUpdated = runDate
		if old, ok := prevBySource[rs.Source]; ok && old.SameContent(rs) && old.LastUpdated != "" {
			rs.LastUpdated = old.LastUpdated
		}
		sources = append(sources, rs)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Source < sources[j].Source })

	total, score := Score(sources)

	rec := model.AggregatedReview{
		VendorSlug:     slug,
		AggregateScore: score,
		TotalCount:     total,
		Sources:        sources,
		LastAggregated: runDate,
	}
	if hadPrev && prev.LastAggregated != "" && !sourcesChanged(prev.Sources, sources) {
		rec.LastAggregated = prev.LastAggregated
	}
	return rec
}

// Score returns the total count and the count-weighted mean score rounded to
// one decimal, or nil when there are no reviews. The sum runs in source-name
// order so the result does not depend on input order.
func Score(sources []model.ReviewSource) (int, *float64) {
	sorted := append([]model.ReviewSource(nil), sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })

	total := 0
	weighted := 0.0
	for _, s := range sorted {
		total += s.Count
		weighted += s.Score * float64(s.Count)
	}
	if total == 0 {
		return 0, nil
	}
	v := round1(weighted / float64(total))
	return total, &v
}

// round1 rounds half away from zero at one decimal.
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// sourcesChanged reports whether the symmetric difference of two source sets,
// compared on (source, score, count), is non-empty.
func sourcesChanged(prev, cur []model.ReviewSource) bool {
	if len(prev) != len(cur) {
		return true
	}
	seen := make(map[model.Source]model.ReviewSource, len(prev))
	for _, s := range prev {
		seen[s.Source] = s
	}
	for _, s := range cur {
		old, ok := seen[s.Source]
		if !ok || old.Score != s.Score || old.Count != s.Count {
			return true
		}
	}
	return false
}

// Diff lists source-level changes between two snapshots, sorted by vendor then
// source. Vendors missing from next are ignored.
func Diff(previous, next Snapshot) []model.Change {
	slugs := make([]string, 0, len(next))
	for slug := range next {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var changes []model.Change
	for _, slug := range slugs {
		oldBySource := make(map[model.Source]model.ReviewSource)
		for _, s := range previous[slug].Sources {
			oldBySource[s.Source] = s
		}
		newBySource := make(map[model.Source]model.ReviewSource)
		for _, s := range next[slug].Sources {
			newBySource[s.Source] = s
		}

		for _, src := range model.AllSources {
			old, hadOld := oldBySource[src]
			cur, hasCur := newBySource[src]
			switch {
			case !hadOld && hasCur:
				changes = append(changes, model.Change{VendorSlug: slug, Source: src, ChangeType: model.ChangeAdded, NewScore: cur.Score, NewCount: cur.Count})
			case hadOld && !hasCur:
				changes = append(changes, model.Change{VendorSlug: slug, Source: src, ChangeType: model.ChangeRemoved, OldScore: old.Score, OldCount: old.Count})
			case hadOld && hasCur && (old.Score != cur.Score || old.Count != cur.Count):
				changes = append(changes, model.Change{VendorSlug: slug, Source: src, ChangeType: model.ChangeUpdated, OldScore: old.Score, OldCount: old.Count, NewScore: cur.Score, NewCount: cur.Count})
			}
		}
	}
	return changes
}
