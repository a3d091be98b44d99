// Package discovery reads candidate vendors from external feeds.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/whttp"
	"github.com/tidwall/gjson"
)

// APIKeyEnv is the environment variable holding the HTTP feed credential.
const APIKeyEnv = "VENDORSCOPE_FEED_API_KEY"

const defaultFeedTimeout = 30 * time.Second

var ErrMalformedFeed = errors.New("malformed discovery feed")

var (
	namePaths        = []string{"name", "title"}
	websitePaths     = []string{"website", "url", "link"}
	descriptionPaths = []string{"description", "snippet"}
	originPaths      = []string{"sourceOrigin", "source"}
	listPaths        = []string{"vendors", "results", "items"}
)

// Feed produces discovered vendors.
type Feed interface {
	Name() string
	Fetch(ctx context.Context) ([]model.DiscoveredVendor, error)
}

// FileFeed reads a JSON document from disk.
type FileFeed struct {
	Path string
}

func (f *FileFeed) Name() string { return "file:" + f.Path }

func (f *FileFeed) Fetch(ctx context.Context) ([]model.DiscoveredVendor, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery feed: %w", err)
	}
	return Parse(data, f.Name())
}

// HTTPFeed GETs a provider endpoint, authenticating with a bearer key.
type HTTPFeed struct {
	URL     string
	APIKey  string
	Client  *whttp.Client
	Timeout time.Duration
}

// NewHTTPFeed builds a feed reading its key from APIKeyEnv when apiKey is empty.
func NewHTTPFeed(client *whttp.Client, endpoint, apiKey string) *HTTPFeed {
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	return &HTTPFeed{URL: endpoint, APIKey: apiKey, Client: client, Timeout: defaultFeedTimeout}
}

func (f *HTTPFeed) Name() string {
	if u, err := url.Parse(f.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return f.URL
}

func (f *HTTPFeed) Fetch(ctx context.Context) ([]model.DiscoveredVendor, error) {
	req := &whttp.WHTTPReq{
		URL:     f.URL,
		Method:  http.MethodGet,
		Timeout: f.Timeout,
		Headers: []whttp.WHTTPHeader{{Name: "Accept", Value: "application/json"}},
	}
	if f.APIKey != "" {
		req.Headers = append(req.Headers, whttp.WHTTPHeader{Name: "Authorization", Value: "Bearer " + f.APIKey})
	}

	res, err := f.Client.SendHTTPRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("discovery feed request failed: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("discovery feed returned status %d", res.StatusCode)
	}
	return Parse([]byte(res.BodyString), f.Name())
}

// Parse maps an untyped feed document into discovered vendors. The document
// is either an array of records or an object holding one under vendors,
// results or items. Records without a name or an http(s) website are dropped.
func Parse(data []byte, origin string) ([]model.DiscoveredVendor, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformedFeed
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		list := gjson.Result{}
		for _, p := range listPaths {
			if r := root.Get(p); r.IsArray() {
				list = r
				break
			}
		}
		if !list.Exists() {
			return nil, fmt.Errorf("%w: no vendor list found", ErrMalformedFeed)
		}
		root = list
	}

	sanitizer := bluemonday.StrictPolicy()
	var out []model.DiscoveredVendor
	for _, rec := range root.Array() {
		if !rec.IsObject() {
			continue
		}
		v := model.DiscoveredVendor{
			Name:         cleanText(sanitizer, first(rec, namePaths)),
			Website:      strings.TrimSpace(first(rec, websitePaths)),
			Description:  cleanText(sanitizer, first(rec, descriptionPaths)),
			SourceOrigin: first(rec, originPaths),
		}
		if v.SourceOrigin == "" {
			v.SourceOrigin = origin
		}
		if v.Name == "" || !validWebsite(v.Website) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func first(rec gjson.Result, paths []string) string {
	for _, p := range paths {
		if r := rec.Get(p); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
			return strings.TrimSpace(r.Str)
		}
	}
	return ""
}

// cleanText drops every tag and collapses whitespace. The policy escapes
// entities, which are turned back into plain text.
func cleanText(p *bluemonday.Policy, s string) string {
	s = html.UnescapeString(p.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func validWebsite(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
