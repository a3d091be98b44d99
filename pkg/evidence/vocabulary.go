package evidence

import (
	"regexp"
	"sort"

	"github.com/sw33tLie/vendorscope/pkg/model"
)

// Vocabulary is a named keyword list scanned over an evidence corpus.
type Vocabulary struct {
	Name     string
	Keywords []string
	patterns []*regexp.Regexp
}

// NewVocabulary compiles whole-word patterns for keywords. Keywords must be
// lowercase since the corpus is.
func NewVocabulary(name string, keywords ...string) *Vocabulary {
	v := &Vocabulary{Name: name, Keywords: keywords}
	for _, kw := range keywords {
		v.patterns = append(v.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return v
}

// Ketamine is the narrow, high-specificity vocabulary.
var Ketamine = NewVocabulary("ketamine",
	"ketamine",
	"esketamine",
	"spravato",
	"ketamine infusion",
	"ketamine-assisted",
	"ketamine assisted",
	"iv ketamine",
	"infusion clinic",
	"infusion therapy",
	"rems",
	"psychedelic",
	"kap",
)

// StrongSignals is the subset of Ketamine that on its own names the specialty.
var StrongSignals = []string{"ketamine", "esketamine", "spravato"}

// Psychiatry is the broad vocabulary of the adjacent general category.
var Psychiatry = NewVocabulary("psychiatry",
	"psychiatry",
	"psychiatric",
	"psychiatrist",
	"mental health",
	"behavioral health",
	"telepsychiatry",
	"medication management",
	"depression",
	"anxiety",
	"ptsd",
	"phq-9",
	"gad-7",
	"treatment-resistant",
	"outcome measures",
)

// Scan counts whole-word occurrences of every keyword in corpus. Matches only
// lists keywords that occurred.
func (v *Vocabulary) Scan(corpus string) model.Evidence {
	ev := model.Evidence{Matches: make(map[string]int)}
	for i, re := range v.patterns {
		n := len(re.FindAllStringIndex(corpus, -1))
		if n == 0 {
			continue
		}
		ev.Matches[v.Keywords[i]] = n
		ev.Count += n
	}
	return ev
}

// MatchedKeywords returns the keywords of ev in sorted order.
func MatchedKeywords(ev model.Evidence) []string {
	out := make([]string, 0, len(ev.Matches))
	for kw, n := range ev.Matches {
		if n > 0 {
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out
}
