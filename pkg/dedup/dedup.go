// Package dedup keeps discovered vendors from duplicating registry entries.
package dedup

import (
	"strconv"

	"github.com/sw33tLie/vendorscope/pkg/model"
)

const (
	ReasonName   = "name match"
	ReasonDomain = "domain match"
)

// Identity is the normalized view of a vendor used for matching.
type Identity struct {
	Slug   string
	Name   string
	Domain string
}

// NewIdentity normalizes a name and website.
func NewIdentity(slug, name, website string) Identity {
	return Identity{Slug: slug, Name: NormalizeName(name), Domain: NormalizeDomain(website)}
}

// Matcher is one identity signal. Match returns the reason when candidate and
// existing are the same vendor under this signal.
type Matcher interface {
	Name() string
	Match(candidate, existing Identity) (bool, string)
}

// NameMatcher matches on normalized names.
type NameMatcher struct{}

func (NameMatcher) Name() string { return "name" }

func (NameMatcher) Match(candidate, existing Identity) (bool, string) {
	if candidate.Name == "" || candidate.Name != existing.Name {
		return false, ""
	}
	return true, ReasonName
}

// DomainMatcher matches on normalized website hosts.
type DomainMatcher struct{}

func (DomainMatcher) Name() string { return "domain" }

func (DomainMatcher) Match(candidate, existing Identity) (bool, string) {
	if candidate.Domain == "" || candidate.Domain != existing.Domain {
		return false, ""
	}
	return true, ReasonDomain
}

// DefaultMatchers is the ordered strategy list used when none is given.
func DefaultMatchers() []Matcher {
	return []Matcher{NameMatcher{}, DomainMatcher{}}
}

// Decision records what happened to one candidate.
type Decision struct {
	Candidate    model.DiscoveredVendor
	ProposedSlug string
	Duplicate    bool
	Reason       string
	// MatchedSlug is the registry slug, or the proposed slug of an earlier
	// candidate of the same batch, that the candidate duplicates.
	MatchedSlug string
	// InBatch is set when the match was against an earlier candidate.
	InBatch bool
}

// Deduplicator checks candidates in input order.
type Deduplicator struct {
	matchers []Matcher
}

// New creates a Deduplicator; with no matchers the default list is used.
func New(matchers ...Matcher) *Deduplicator {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Deduplicator{matchers: matchers}
}

func (d *Deduplicator) match(c Identity, pool []Identity) (Identity, string, bool) {
	for _, e := range pool {
		for _, m := range d.matchers {
			if ok, reason := m.Match(c, e); ok {
				return e, reason, true
			}
		}
	}
	return Identity{}, "", false
}

// Run decides every candidate: first against the whole registry, then against
// candidates accepted earlier in the batch.
func (d *Deduplicator) Run(existing []model.VendorRecord, candidates []model.DiscoveredVendor) []Decision {
	registry := make([]Identity, 0, len(existing))
	for _, v := range existing {
		registry = append(registry, NewIdentity(v.Slug, v.Name, v.Website))
	}

	taken := make(map[string]bool, len(existing))
	for _, v := range existing {
		taken[v.Slug] = true
	}

	var accepted []Identity
	decisions := make([]Decision, 0, len(candidates))
	for _, c := range candidates {
		dec := Decision{Candidate: c}
		id := NewIdentity("", c.Name, c.Website)

		if e, reason, ok := d.match(id, registry); ok {
			dec.Duplicate, dec.Reason, dec.MatchedSlug = true, reason, e.Slug
		} else if e, reason, ok := d.match(id, accepted); ok {
			dec.Duplicate, dec.Reason, dec.MatchedSlug, dec.InBatch = true, reason, e.Slug, true
		} else {
			dec.ProposedSlug = uniqueSlug(Slugify(c.Name), taken)
			taken[dec.ProposedSlug] = true
			id.Slug = dec.ProposedSlug
			accepted = append(accepted, id)
		}
		decisions = append(decisions, dec)
	}
	return decisions
}

// Accepted filters the non-duplicate decisions, keeping order.
func Accepted(decisions []Decision) []Decision {
	var out []Decision
	for _, d := range decisions {
		if !d.Duplicate {
			out = append(out, d)
		}
	}
	return out
}

func uniqueSlug(base string, taken map[string]bool) string {
	if base == "" {
		base = "vendor"
	}
	slug := base
	for i := 2; taken[slug]; i++ {
		slug = base + "-" + strconv.Itoa(i)
	}
	return slug
}
