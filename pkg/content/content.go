// Package content reads the directory's vendor listing.
package content

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/sw33tLie/vendorscope/pkg/model"
	"gopkg.in/yaml.v3"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type listingDoc struct {
	Vendors []model.VendorRecord `yaml:"vendors"`
}

// Load reads a YAML or JSON vendor listing. The document may be a bare list
// of vendors or an object with a "vendors" key.
func Load(path string) ([]model.VendorRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vendors, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("content listing %s: %w", path, err)
	}
	return vendors, nil
}

// Parse decodes a vendor listing and checks slug uniqueness.
func Parse(data []byte) ([]model.VendorRecord, error) {
	var vendors []model.VendorRecord
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '-') {
		if err := yaml.Unmarshal(data, &vendors); err != nil {
			return nil, err
		}
	} else {
		var doc listingDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		vendors = doc.Vendors
	}

	seen := make(map[string]bool, len(vendors))
	for _, v := range vendors {
		if !slugPattern.MatchString(v.Slug) {
			return nil, fmt.Errorf("invalid vendor slug %q", v.Slug)
		}
		if seen[v.Slug] {
			return nil, fmt.Errorf("duplicate vendor slug %q", v.Slug)
		}
		seen[v.Slug] = true
	}

	sort.SliceStable(vendors, func(i, j int) bool { return vendors[i].Slug < vendors[j].Slug })
	return vendors, nil
}

// Index returns the vendors keyed by slug.
func Index(vendors []model.VendorRecord) map[string]model.VendorRecord {
	out := make(map[string]model.VendorRecord, len(vendors))
	for _, v := range vendors {
		out[v.Slug] = v
	}
	return out
}
