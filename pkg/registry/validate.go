package registry

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// Level is the severity of a validation issue.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Issue is one finding of the registry gate.
type Issue struct {
	Level   Level
	Slug    string
	Source  model.Source
	Message string
}

func (i Issue) String() string {
	if i.Source == "" {
		return fmt.Sprintf("[%s] %s: %s", i.Level, i.Slug, i.Message)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", i.Level, i.Slug, i.Source, i.Message)
}

var expectedDomains = map[model.Source]string{
	model.SourceCapterra: "capterra.com",
	model.SourceG2:       "g2.com",
}

// Validate checks the registry against the content store. Unknown vendor slugs
// are errors; mapping URLs outside the platform's domain are warnings.
func (r *Registry) Validate(vendors []model.VendorRecord) []Issue {
	known := make(map[string]bool, len(vendors))
	for _, v := range vendors {
		known[v.Slug] = true
	}

	var issues []Issue
	for _, slug := range r.slugs {
		if !known[slug] {
			issues = append(issues, Issue{Level: LevelError, Slug: slug, Message: "vendor does not exist in the content store"})
		}
		for _, src := range model.AllSources {
			mapping := r.mappings[slug][src]
			if mapping == nil || mapping.URL == "" {
				continue
			}
			domain, ok := RegistrableDomain(mapping.URL)
			if !ok {
				issues = append(issues, Issue{Level: LevelWarning, Slug: slug, Source: src, Message: fmt.Sprintf("cannot parse url %q", mapping.URL)})
				continue
			}
			if want := expectedDomains[src]; domain != want {
				issues = append(issues, Issue{Level: LevelWarning, Slug: slug, Source: src, Message: fmt.Sprintf("url domain %s does not match %s", domain, want)})
			}
		}
	}
	return issues
}

// HasErrors reports whether any issue is fatal.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Level == LevelError {
			return true
		}
	}
	return false
}

// RegistrableDomain extracts the registrable domain of a URL or bare host.
// e.g., "https://www.g2.com/products/x" -> "g2.com", true
func RegistrableDomain(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") && strings.Contains(raw, ".") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if !strings.Contains(host, ".") {
		return "", false
	}
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return "", false
	}
	return domain, true
}
