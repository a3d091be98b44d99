package whttp

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const (
	USER_AGENT    = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	MAX_BODY_SIZE = 5 << 20
)

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	// Timeout bounds the request once the host gate let it through. Zero means
	// no per-request timeout.
	Timeout time.Duration
}

type WHTTPRes struct {
	StatusCode     int
	ResponseLength int
	HTTPTitle      string
	BodyString     string
}

// Success reports a 2xx status.
func (r *WHTTPRes) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Proxy string
	// HostInterval is the minimum spacing between two requests to one host.
	HostInterval time.Duration
	UserAgent    string
}

// Client sends requests without retrying and spaces requests per host.
type Client struct {
	http      *retryablehttp.Client
	hosts     *HostLimiter
	userAgent string
}

// neverRetry treats every outcome as final: a failed request is retried only by
// running the pipeline again.
func neverRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

// NewClient builds a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = 0
	rc.CheckRetry = neverRetry

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		rc.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = USER_AGENT
	}
	return &Client{
		http:      rc,
		hosts:     NewHostLimiter(opts.HostInterval),
		userAgent: ua,
	}, nil
}

// SendHTTPRequest waits for the host gate, then performs one request and
// reads at most MAX_BODY_SIZE bytes of the body.
func (c *Client) SendHTTPRequest(ctx context.Context, wReq *WHTTPReq) (*WHTTPRes, error) {
	u, err := url.Parse(wReq.URL)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", wReq.URL)
	}

	if err := c.hosts.Wait(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	if wReq.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wReq.Timeout)
		defer cancel()
	}

	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MAX_BODY_SIZE))
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}
	if title, ok := getHTMLTitle(wRes.BodyString); ok {
		wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}
	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)
	return wRes, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	return traverse(doc)
}
