package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/vendorscope/pkg/aggregate"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/registry"
	"github.com/sw33tLie/vendorscope/pkg/sources"
	"github.com/sw33tLie/vendorscope/pkg/storage"
	"github.com/tidwall/gjson"
)

const registryDoc = `
acme:
  g2:
    externalSlug: acme-health
    url: https://www.g2.com/products/acme-health/reviews
  capterra:
    externalSlug: "1001"
    url: https://www.capterra.com/p/1001/acme/
quiet:
  g2: null
`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Parse([]byte(registryDoc))
	require.NoError(t, err)
	return reg
}

func dump(t *testing.T, doc string) []gjson.Result {
	t.Helper()
	items, err := sources.ParseDump([]byte(doc))
	require.NoError(t, err)
	return items
}

// fakeVerifier reports a site live unless its website is listed as down. The
// ketamine count of a live site is taken from counts.
type fakeVerifier struct {
	down   map[string]bool
	counts map[string]int
	delay  time.Duration
	calls  int32
}

func (f *fakeVerifier) Collect(ctx context.Context, ref, website, date string) model.VerificationReport {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	r := model.VerificationReport{
		VendorRef:          ref,
		Website:            website,
		PagesChecked:       []string{},
		KetamineEvidence:   model.Evidence{Matches: map[string]int{}},
		PsychiatryEvidence: model.Evidence{Matches: map[string]int{}},
		VerificationDate:   date,
	}
	if f.down[website] {
		r.Status = model.StatusUnverified
		return r
	}
	r.WebsiteLive = true
	r.PagesChecked = []string{"/"}
	if n := f.counts[website]; n > 0 {
		r.KetamineEvidence = model.Evidence{Count: n, Matches: map[string]int{"ketamine": n}}
	}
	return r
}

type staticFeed struct {
	vendors []model.DiscoveredVendor
	err     error
}

func (f staticFeed) Name() string { return "static" }

func (f staticFeed) Fetch(context.Context) ([]model.DiscoveredVendor, error) {
	return f.vendors, f.err
}

func TestRunAggregationEndToEnd(t *testing.T) {
	rc := NewRunContext("2026-10-19", nil, nil)
	in := AggregationInput{
		Registry: testRegistry(t),
		Dumps: map[model.Source][]gjson.Result{
			model.SourceG2: dump(t, `[
				{"url": "https://www.g2.com/products/acme-health/reviews", "rating": 4.5, "reviewCount": 20},
				{"url": "https://www.g2.com/products/unknown/reviews", "rating": 4.0, "reviewCount": 3}
			]`),
			model.SourceCapterra: dump(t, `{"items": [{"productUrl": "https://www.capterra.com/p/1001/acme/", "overallRating": "4.0", "totalReviews": "10"}]}`),
		},
	}

	res, err := RunAggregation(rc, in)
	require.NoError(t, err)
	require.Len(t, res.Snapshot, 2)

	acme := res.Snapshot["acme"]
	assert.Equal(t, 30, acme.TotalCount)
	require.NotNil(t, acme.AggregateScore)
	assert.Equal(t, 4.3, *acme.AggregateScore)
	assert.Equal(t, "2026-10-19", acme.LastAggregated)

	quiet := res.Snapshot["quiet"]
	assert.Nil(t, quiet.AggregateScore)
	assert.Empty(t, quiet.Sources)

	assert.Len(t, res.Changes, 2)
	assert.Equal(t, 1, res.Dropped()[model.SourceG2])
	assert.Equal(t, 0, res.Dropped()[model.SourceCapterra])

	// Same inputs a week later change nothing.
	rc2 := NewRunContext("2026-10-26", res.Snapshot, nil)
	res2, err := RunAggregation(rc2, in)
	require.NoError(t, err)
	assert.Equal(t, res.Snapshot, res2.Snapshot)
	assert.Empty(t, res2.Changes)
}

func TestRunAggregationSurvivesOversizedCount(t *testing.T) {
	rc := NewRunContext("2026-10-19", nil, nil)
	res, err := RunAggregation(rc, AggregationInput{
		Registry: testRegistry(t),
		Dumps: map[model.Source][]gjson.Result{
			model.SourceG2:       dump(t, `[{"url": "https://www.g2.com/products/acme-health/reviews", "rating": 4.5, "reviewCount": 1e30}]`),
			model.SourceCapterra: dump(t, `[{"productUrl": "https://www.capterra.com/p/1001/acme/", "overallRating": 4.0, "totalReviews": 10}]`),
		},
	})
	require.NoError(t, err)

	acme := res.Snapshot["acme"]
	assert.Equal(t, 10, acme.TotalCount)
	require.Len(t, acme.Sources, 1)
	assert.Equal(t, model.SourceCapterra, acme.Sources[0].Source)
	assert.Equal(t, 1, res.Dropped()[model.SourceG2])
}

func TestRunAggregationMissingDumpDropsSource(t *testing.T) {
	prev := aggregate.Snapshot{"acme": {
		VendorSlug:     "acme",
		AggregateScore: floatPtr(4.5),
		TotalCount:     20,
		Sources:        []model.ReviewSource{{Source: model.SourceG2, Score: 4.5, Count: 20, URL: "u", LastUpdated: "2026-10-12"}},
		LastAggregated: "2026-10-12",
	}}
	rc := NewRunContext("2026-10-19", prev, nil)
	res, err := RunAggregation(rc, AggregationInput{Registry: testRegistry(t)})
	require.NoError(t, err)

	acme := res.Snapshot["acme"]
	assert.Equal(t, 0, acme.TotalCount)
	assert.Equal(t, "2026-10-19", acme.LastAggregated)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, model.ChangeRemoved, res.Changes[0].ChangeType)
}

func TestRunVerificationKeepsOrder(t *testing.T) {
	vendors := []model.VendorRecord{
		{Slug: "a", Website: "https://a.example"},
		{Slug: "b", Website: "https://b.example"},
		{Slug: "c", Website: "https://c.example"},
		{Slug: "d", Website: "https://d.example"},
		{Slug: "e", Website: "https://e.example"},
	}
	v := &fakeVerifier{
		down:   map[string]bool{"https://b.example": true},
		counts: map[string]int{"https://c.example": 6, "https://d.example": 1},
		delay:  5 * time.Millisecond,
	}

	rc := NewRunContext("2026-10-19", nil, nil)
	out := RunVerification(context.Background(), rc, VerificationConfig{Verifier: v, Concurrency: 3}, vendors)

	require.Len(t, out, len(vendors))
	assert.EqualValues(t, len(vendors), atomic.LoadInt32(&v.calls))
	for i, r := range out {
		assert.Equal(t, vendors[i].Slug, r.Report.VendorRef)
	}
	assert.Equal(t, model.StatusVerified, out[0].Report.Status)
	assert.Equal(t, model.CategoryGeneral, out[0].Classification.Category)
	assert.Equal(t, model.StatusUnverified, out[1].Report.Status)
	assert.Equal(t, model.CategoryUnknown, out[1].Classification.Category)
	assert.Equal(t, model.CategorySpecific, out[2].Classification.Category)
	assert.Equal(t, model.StatusNeedsReview, out[3].Report.Status)
}

func TestRunAcquisition(t *testing.T) {
	existing := []model.VendorRecord{{Slug: "acme", Name: "Acme", Website: "https://acme.io"}}
	feed := staticFeed{vendors: []model.DiscoveredVendor{
		{Name: "ACME", Website: "https://other.example", SourceOrigin: "static"},
		{Name: "Nova Clinic Cloud", Website: "https://nova.example", SourceOrigin: "static"},
		{Name: "Down Vendor", Website: "https://down.example", SourceOrigin: "static"},
		{Name: "Nova Clone", Website: "https://www.nova.example", SourceOrigin: "static"},
	}}
	v := &fakeVerifier{down: map[string]bool{"https://down.example": true}, counts: map[string]int{"https://nova.example": 7}}

	rc := NewRunContext("2026-10-19", nil, nil)
	res, err := RunAcquisition(context.Background(), rc, AcquisitionConfig{Feed: feed, Verification: VerificationConfig{Verifier: v}}, existing)
	require.NoError(t, err)

	assert.Len(t, res.Decisions, 4)
	require.Len(t, res.Entries, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&v.calls))

	nova := res.Entries[0]
	assert.Equal(t, "nova-clinic-cloud", nova.Slug)
	assert.Equal(t, model.CategorySpecific, nova.Classification.Category)
	assert.Equal(t, model.StatusNeedsReview, nova.Verification.Status)

	down := res.Entries[1]
	assert.Equal(t, "down-vendor", down.Slug)
	assert.Equal(t, model.CategoryUnknown, down.Classification.Category)
	assert.Equal(t, model.StatusNeedsReview, down.Verification.Status)
	assert.False(t, down.Verification.WebsiteLive)
}

func TestRunAcquisitionFeedErrorIsFatal(t *testing.T) {
	rc := NewRunContext("2026-10-19", nil, nil)
	_, err := RunAcquisition(context.Background(), rc, AcquisitionConfig{Feed: staticFeed{err: errors.New("boom")}}, nil)
	require.Error(t, err)
}

func TestOutcomeWriteAndRecord(t *testing.T) {
	rc := NewRunContext("2026-10-19", nil, nil)
	agg, err := RunAggregation(rc, AggregationInput{
		Registry: testRegistry(t),
		Dumps: map[model.Source][]gjson.Result{
			model.SourceG2: dump(t, `[{"url": "https://www.g2.com/products/acme-health/reviews", "rating": 4.5, "reviewCount": 20}]`),
		},
	})
	require.NoError(t, err)

	ver := RunVerification(context.Background(), rc, VerificationConfig{Verifier: &fakeVerifier{}}, []model.VendorRecord{{Slug: "acme", Website: "https://acme.io"}})
	outcome := &Outcome{Aggregation: agg, Verification: ver}

	dir := t.TempDir()
	require.NoError(t, outcome.Write(rc, dir))

	snap, err := aggregate.LoadSnapshot(filepath.Join(dir, AggregateFile))
	require.NoError(t, err)
	assert.Equal(t, agg.Snapshot, snap)

	data, err := os.ReadFile(filepath.Join(dir, VerificationFile))
	require.NoError(t, err)
	var byRef map[string]model.VendorVerification
	require.NoError(t, json.Unmarshal(data, &byRef))
	assert.Equal(t, model.StatusVerified, byRef["acme"].Report.Status)

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "2 vendors aggregated, 1 source changes.")

	_, err = os.Stat(filepath.Join(dir, CandidatesFile))
	assert.True(t, os.IsNotExist(err), "acquisition did not run, candidates must not be written")

	db, err := storage.Open(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, outcome.Record(context.Background(), rc, db))

	changes, err := db.ListRecentChanges(context.Background(), storage.ChangeFilter{})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "acme", changes[0].VendorSlug)

	runs, err := db.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestNewRunContextDefaults(t *testing.T) {
	rc := NewRunContext("", nil, nil)
	assert.Equal(t, model.FormatDate(time.Now()), rc.RunDate)
	assert.NotEmpty(t, rc.RunID)
	assert.NotNil(t, rc.Previous)
	assert.NotEqual(t, rc.RunID, NewRunContext("", nil, nil).RunID)
}

func floatPtr(f float64) *float64 { return &f }
