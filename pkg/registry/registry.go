// Package registry maps internal vendor slugs to their identities on external
// review platforms.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sw33tLie/vendorscope/pkg/model"
	"gopkg.in/yaml.v3"
)

// ErrEmptyExternalSlug is returned when a present mapping has no identifier.
var ErrEmptyExternalSlug = errors.New("mapping has an empty externalSlug")

// Registry is read-only once loaded.
type Registry struct {
	mappings map[string]map[model.Source]*model.SourceMapping
	reverse  map[model.Source]map[string]string
	slugs    []string
}

// Load reads a YAML or JSON registry document of the form
// {vendorSlug: {source: {externalSlug, url} | null}}.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("mapping registry %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a registry document.
func Parse(data []byte) (*Registry, error) {
	var doc map[string]map[string]*model.SourceMapping
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	mappings := make(map[string]map[model.Source]*model.SourceMapping, len(doc))
	for slug, perSource := range doc {
		m := make(map[model.Source]*model.SourceMapping, len(perSource))
		for name, mapping := range perSource {
			src, err := model.ParseSource(name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", slug, err)
			}
			if mapping != nil {
				mapping.ExternalSlug = strings.TrimSpace(mapping.ExternalSlug)
				if mapping.ExternalSlug == "" {
					return nil, fmt.Errorf("%s/%s: %w", slug, src, ErrEmptyExternalSlug)
				}
			}
			m[src] = mapping
		}
		mappings[slug] = m
	}
	return New(mappings), nil
}

// New builds a registry from in-memory mappings.
func New(mappings map[string]map[model.Source]*model.SourceMapping) *Registry {
	r := &Registry{
		mappings: mappings,
		reverse:  make(map[model.Source]map[string]string),
	}
	for slug := range mappings {
		r.slugs = append(r.slugs, slug)
	}
	sort.Strings(r.slugs)

	// Walk in slug order so the first vendor claiming an external id keeps it.
	for _, slug := range r.slugs {
		for src, mapping := range mappings[slug] {
			if mapping == nil {
				continue
			}
			idx, ok := r.reverse[src]
			if !ok {
				idx = make(map[string]string)
				r.reverse[src] = idx
			}
			key := strings.ToLower(mapping.ExternalSlug)
			if _, taken := idx[key]; !taken {
				idx[key] = slug
			}
		}
	}
	return r
}

// Lookup returns the mapping of a vendor on a source, or nil when the vendor
// should not be aggregated for that source.
func (r *Registry) Lookup(vendorSlug string, source model.Source) *model.SourceMapping {
	perSource, ok := r.mappings[vendorSlug]
	if !ok {
		return nil
	}
	return perSource[source]
}

// Resolve finds the vendor whose mapping for source carries externalID,
// compared case-insensitively.
func (r *Registry) Resolve(source model.Source, externalID string) (string, bool) {
	idx, ok := r.reverse[source]
	if !ok {
		return "", false
	}
	slug, ok := idx[strings.ToLower(strings.TrimSpace(externalID))]
	return slug, ok
}

// Slugs returns every vendor known to the registry in sorted order.
func (r *Registry) Slugs() []string {
	return append([]string(nil), r.slugs...)
}

// Len returns the number of vendors in the registry.
func (r *Registry) Len() int { return len(r.slugs) }
