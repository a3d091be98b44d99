// Package sources turns raw review-platform scrape dumps into ReviewSource values
// resolved against the mapping registry.
package sources

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/registry"
	"github.com/tidwall/gjson"
)

// ErrMalformedDump is returned when a dump is not a JSON collection.
var ErrMalformedDump = errors.New("malformed scrape dump")

// Item is one raw record after it crossed the adapter boundary.
type Item struct {
	ExternalID string
	URL        string
	Score      float64
	Count      float64
}

// Adapter maps one platform's untyped scrape shape into Items.
type Adapter interface {
	Name() model.Source
	// ExternalID extracts the platform identifier from a product URL.
	ExternalID(rawURL string) (string, bool)
	// Parse reads one raw record. ok is false when the record has no usable
	// identifier at all.
	Parse(raw gjson.Result) (Item, bool)
}

// Logger abstracts logging so callers can use logrus or anything else with
// the same method set.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// fieldAdapter is an Adapter driven by a URL pattern and candidate field paths.
type fieldAdapter struct {
	source      model.Source
	idPattern   *regexp.Regexp
	urlFields   []string
	idFields    []string
	scoreFields []string
	countFields []string
}

func (a *fieldAdapter) Name() model.Source { return a.source }

func (a *fieldAdapter) ExternalID(rawURL string) (string, bool) {
	m := a.idPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (a *fieldAdapter) Parse(raw gjson.Result) (Item, bool) {
	it := Item{
		URL:   strings.TrimSpace(firstString(raw, a.urlFields)),
		Score: firstNumber(raw, a.scoreFields),
		Count: firstNumber(raw, a.countFields),
	}
	if id, ok := a.ExternalID(it.URL); ok {
		it.ExternalID = id
	} else {
		it.ExternalID = strings.TrimSpace(firstString(raw, a.idFields))
	}
	return it, it.ExternalID != ""
}

// G2 reads dumps of g2.com product pages.
func G2() Adapter {
	return &fieldAdapter{
		source:      model.SourceG2,
		idPattern:   regexp.MustCompile(`(?i)g2\.com/products/([^/?#]+)`),
		urlFields:   []string{"url", "productUrl", "product_url", "link"},
		idFields:    []string{"slug", "productSlug", "id"},
		scoreFields: []string{"rating", "score", "stars", "star_rating"},
		countFields: []string{"reviewCount", "reviews_count", "review_count", "reviews"},
	}
}

// Capterra reads dumps of capterra.com product pages.
func Capterra() Adapter {
	return &fieldAdapter{
		source:      model.SourceCapterra,
		idPattern:   regexp.MustCompile(`(?i)capterra\.com/(?:p|reviews)/(\d+)`),
		urlFields:   []string{"productUrl", "url", "product_url", "link"},
		idFields:    []string{"productId", "product_id", "id"},
		scoreFields: []string{"overallRating", "rating", "score"},
		countFields: []string{"totalReviews", "reviewCount", "reviews_count", "reviews"},
	}
}

// Adapters returns one adapter per known source, sorted by source name.
func Adapters() []Adapter {
	return []Adapter{Capterra(), G2()}
}

// AdapterFor returns the adapter of a source.
func AdapterFor(src model.Source) (Adapter, error) {
	for _, a := range Adapters() {
		if a.Name() == src {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no adapter for source %q", src)
}

// firstString returns the first non-empty string among paths.
func firstString(raw gjson.Result, paths []string) string {
	for _, p := range paths {
		if v := raw.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// firstNumber returns the first numeric value among paths, or NaN. Numbers
// encoded as strings ("4.5", "1,204") are accepted.
func firstNumber(raw gjson.Result, paths []string) float64 {
	for _, p := range paths {
		v := raw.Get(p)
		switch v.Type {
		case gjson.Number:
			return v.Float()
		case gjson.String:
			s := strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")
			if s == "" {
				continue
			}
			n := gjson.Parse(s)
			if n.Type == gjson.Number {
				return n.Float()
			}
			return math.NaN()
		}
	}
	return math.NaN()
}

// LoadDump reads a dump file: a JSON array of records or an object with an
// "items" array.
func LoadDump(path string) ([]gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	items, err := ParseDump(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// ParseDump validates and splits a raw dump into records.
func ParseDump(data []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformedDump
	}
	root := gjson.ParseBytes(data)
	if root.IsObject() {
		root = root.Get("items")
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of records", ErrMalformedDump)
	}
	return root.Array(), nil
}

// Stats counts what happened to the records of one dump.
type Stats struct {
	Total      int
	Resolved   int
	NoID       int
	Unmapped   int
	BadNumbers int
	ZeroCount  int
}

// Dropped is the number of records that did not produce a source, including
// records overridden by a later one for the same vendor.
func (s Stats) Dropped() int { return s.Total - s.Resolved }

// Extract resolves raw records to vendors. Records that cannot be resolved or
// carry unusable numbers are dropped and counted; the last record resolving to
// a vendor wins.
func Extract(a Adapter, reg *registry.Registry, items []gjson.Result, log Logger) (map[string]model.ReviewSource, Stats) {
	if log == nil {
		log = nopLogger{}
	}
	out := make(map[string]model.ReviewSource)
	stats := Stats{Total: len(items)}
	src := a.Name()

	for i, raw := range items {
		it, ok := a.Parse(raw)
		if !ok {
			stats.NoID++
			log.Debugf("[%s] record %d: no product identifier, dropped", src, i)
			continue
		}
		slug, ok := reg.Resolve(src, it.ExternalID)
		if !ok {
			stats.Unmapped++
			log.Debugf("[%s] record %d: %q matches no vendor, dropped", src, i, it.ExternalID)
			continue
		}
		if !validNumber(it.Score) || !validNumber(it.Count) || it.Score > 5 || it.Count != math.Trunc(it.Count) || it.Count > maxCount {
			stats.BadNumbers++
			log.Debugf("[%s] record %d (%s): unusable score %v / count %v, dropped", src, i, slug, it.Score, it.Count)
			continue
		}
		if it.Count == 0 {
			stats.ZeroCount++
			log.Debugf("[%s] record %d (%s): zero reviews, dropped", src, i, slug)
			continue
		}

		url := it.URL
		if url == "" {
			if m := reg.Lookup(slug, src); m != nil {
				url = m.URL
			}
		}
		if _, dup := out[slug]; dup {
			log.Debugf("[%s] record %d overrides an earlier record for %s", src, i, slug)
		} else {
			stats.Resolved++
		}
		out[slug] = model.ReviewSource{
			Source: src,
			Score:  it.Score,
			Count:  int(it.Count),
			URL:    url,
		}
	}
	return out, stats
}

// maxCount bounds review counts so they convert to int without overflow.
const maxCount = math.MaxInt32

func validNumber(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
