package dedup

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s and removes combining marks after compatibility
// decomposition.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// NormalizeName lowercases a vendor name, folds accents and strips everything
// that is not a letter or digit.
// e.g., "Acme Health!" -> "acmehealth", "Café Ops" -> "cafeops"
func NormalizeName(name string) string {
	folded := fold(name)

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDomain extracts the lowercase host of a website without a leading
// "www.". Bare hosts are accepted.
// e.g., "https://www.acme.io/pricing" -> "acme.io"
func NormalizeDomain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	return strings.TrimPrefix(host, "www.")
}

// Slugify builds a lowercase-hyphenated slug from a vendor name.
// e.g., "Acme Health, Inc." -> "acme-health-inc"
func Slugify(name string) string {
	folded := fold(name)

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
