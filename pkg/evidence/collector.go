// Package evidence gathers keyword evidence from vendor websites.
package evidence

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/whttp"
)

const (
	DefaultProbeTimeout = 10 * time.Second
	DefaultFetchTimeout = 15 * time.Second
)

// DefaultPaths are fetched relative to a vendor's base URL.
var DefaultPaths = []string{"/", "/pricing", "/features", "/ketamine", "/solutions", "/about"}

// Logger abstracts logging so callers can use logrus or anything else with
// the same method set.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Options configures a Collector. Zero values fall back to defaults.
type Options struct {
	Paths        []string
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	Log          Logger
}

// Collector fetches a vendor's pages and scans them for evidence.
type Collector struct {
	client       *whttp.Client
	paths        []string
	probeTimeout time.Duration
	fetchTimeout time.Duration
	log          Logger
}

// NewCollector builds a Collector on top of a politeness-aware client.
func NewCollector(client *whttp.Client, opts Options) *Collector {
	c := &Collector{
		client:       client,
		paths:        opts.Paths,
		probeTimeout: opts.ProbeTimeout,
		fetchTimeout: opts.FetchTimeout,
		log:          opts.Log,
	}
	if len(c.paths) == 0 {
		c.paths = DefaultPaths
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = DefaultProbeTimeout
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.log == nil {
		c.log = nopLogger{}
	}
	return c
}

// BaseURL normalizes a website into a scheme://host[/path] base without a
// trailing slash.
func BaseURL(website string) (string, bool) {
	website = strings.TrimSpace(website)
	if website == "" {
		return "", false
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), true
}

// Collect produces a verification report for one vendor. Network failures
// never surface as errors: an unreachable site yields websiteLive=false and
// status unverified, a failed page is skipped. The status of a live site is
// left for the classifier to decide.
func (c *Collector) Collect(ctx context.Context, ref, website, date string) model.VerificationReport {
	report := model.VerificationReport{
		VendorRef:          ref,
		Website:            website,
		PagesChecked:       []string{},
		KetamineEvidence:   model.Evidence{Matches: map[string]int{}},
		PsychiatryEvidence: model.Evidence{Matches: map[string]int{}},
		VerificationDate:   date,
	}

	base, ok := BaseURL(website)
	if !ok {
		c.log.Warnf("[%s] invalid website %q", ref, website)
		report.Status = model.StatusUnverified
		return report
	}

	probe, err := c.client.SendHTTPRequest(ctx, &whttp.WHTTPReq{URL: base, Method: http.MethodHead, Timeout: c.probeTimeout})
	if err != nil || !probe.Success() {
		if err == nil {
			c.log.Debugf("[%s] %s answered %d to the probe", ref, base, probe.StatusCode)
		} else {
			c.log.Debugf("[%s] %s unreachable: %v", ref, base, err)
		}
		report.Status = model.StatusUnverified
		return report
	}
	report.WebsiteLive = true

	var pages []string
	for _, p := range c.paths {
		res, err := c.client.SendHTTPRequest(ctx, &whttp.WHTTPReq{URL: base + p, Method: http.MethodGet, Timeout: c.fetchTimeout})
		if err != nil {
			c.log.Debugf("[%s] skipping %s: %v", ref, p, err)
			continue
		}
		if !res.Success() {
			c.log.Debugf("[%s] skipping %s: status %d", ref, p, res.StatusCode)
			continue
		}
		c.log.Debugf("[%s] fetched %s (%q, %d chars)", ref, p, res.HTTPTitle, res.ResponseLength)
		report.PagesChecked = append(report.PagesChecked, p)
		if text := StripMarkup(res.BodyString); text != "" {
			pages = append(pages, text)
		}
	}

	corpus := strings.Join(pages, " ")
	report.KetamineEvidence = Ketamine.Scan(corpus)
	report.PsychiatryEvidence = Psychiatry.Scan(corpus)
	report.PricingFound = ExtractPrices(corpus)
	if corpus != "" {
		report.CorpusHash = Fingerprint(corpus)
	}
	return report
}
