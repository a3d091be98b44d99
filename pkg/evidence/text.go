package evidence

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/OneOfOne/xxhash"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// StripMarkup turns an HTML page into lowercase text with collapsed whitespace.
// Script, style and other non-visible blocks are dropped.
func StripMarkup(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return normalizeText(body)
	}
	doc.Find("script, style, noscript, template, svg, iframe").Remove()
	// Block elements would otherwise glue adjacent words together.
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(spaceNode())
	})
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, td, th, section, article, header, footer, nav").Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(spaceNode())
	})
	return normalizeText(doc.Text())
}

func spaceNode() *html.Node {
	return &html.Node{Type: html.TextNode, Data: " "}
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Fingerprint is a stable hash of an evidence corpus.
func Fingerprint(corpus string) string {
	return fmt.Sprintf("%016x", xxhash.ChecksumString64(corpus))
}

const maxPrices = 10

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{1,2})?\s*(?:/|per\s+)\s*(?:month|mo|year|yr|user|provider|clinician|seat|location)\b`),
	regexp.MustCompile(`(?:starting at|starts at|plans from)\s+\$\s?\d[\d,]*(?:\.\d{1,2})?`),
	regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{1,2})?\s+(?:monthly|annually|a month|a year)\b`),
}

// ExtractPrices returns price-like substrings of corpus in order of first
// appearance, or nil when none are found.
func ExtractPrices(corpus string) []string {
	type hit struct {
		pos  int
		text string
	}
	var hits []hit
	for _, re := range pricePatterns {
		for _, loc := range re.FindAllStringIndex(corpus, -1) {
			hits = append(hits, hit{pos: loc[0], text: corpus[loc[0]:loc[1]]})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool)
	var out []string
	for _, h := range hits {
		if seen[h.text] {
			continue
		}
		seen[h.text] = true
		out = append(out, h.text)
		if len(out) == maxPrices {
			break
		}
	}
	return out
}
