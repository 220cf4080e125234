// Package http provides the static implementation of pagetext.Fetcher.
// It parses the raw HTTP response without executing JavaScript.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/goquery"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultFetchTimeout is the default timeout for HTTP requests.
	// Kept shorter than the browser path; static fetches are expected to be fast.
	DefaultFetchTimeout = pagetext.DefaultStaticTimeout

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 10 << 20

	// maxRedirects caps redirect chains.
	maxRedirects = 10
)

// Ensure Fetcher implements pagetext.Fetcher at compile time.
var _ pagetext.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages with a single HTTP GET and extracts their content
// from the parsed markup. Unlike rod.Fetcher, it does not execute JavaScript.
// Fetcher is safe for concurrent use.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests when the extraction options
// do not carry one. Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodyBytes caps the number of body bytes read per response.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithTransport sets the transport used for requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.client.Transport = rt
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		timeout:      DefaultFetchTimeout,
		userAgent:    pagetext.UserAgent,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the URL and extracts its content.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	url = pagetext.NormalizeURL(url)

	ctx, cancel := context.WithTimeout(ctx, opts.TimeoutOr(f.timeout))
	defer cancel()

	body, contentType, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}

	// Decode to UTF-8 using the Content-Type header or the document's meta charset.
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, pagetext.WrapError(pagetext.EUNKNOWN, err, "decoding response from %s", url)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, pagetext.WrapError(pagetext.EUNKNOWN, err, "decoding response from %s", url)
	}

	doc, err := goquery.NewDocument(bytes.NewReader(decoded))
	if err != nil {
		return nil, pagetext.WrapError(pagetext.EUNKNOWN, err, "parsing HTML from %s", url)
	}

	title := doc.Title()
	description := describe(decoded, doc)

	raw, err := doc.Content()
	if err != nil {
		return nil, pagetext.WrapError(pagetext.EUNKNOWN, err, "extracting content from %s", url)
	}

	content, err := pagetext.FinalizeContent(raw)
	if err != nil {
		return nil, err
	}

	return &pagetext.ExtractionResult{
		Title:       title,
		URL:         url,
		Content:     content,
		Description: description,
		Source:      pagetext.SourceStatic,
	}, nil
}

// get issues the request and returns the (size-limited) body.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", pagetext.WrapError(pagetext.EUNKNOWN, err, "invalid URL %q", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", classifyTransportError(err, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", &pagetext.Error{
			Code:    pagetext.ENOTFOUND,
			Message: fmt.Sprintf("page not found (404): %s", url),
			Status:  resp.StatusCode,
		}
	}
	if resp.StatusCode >= 400 {
		return nil, "", &pagetext.Error{
			Code:    pagetext.EHTTP,
			Message: fmt.Sprintf("website returned error: %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, "", classifyTransportError(err, url)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// Close releases resources. For HTTP fetcher this closes idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// describe returns the OpenGraph description, falling back to the meta
// description tag.
func describe(body []byte, doc *goquery.Document) string {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err == nil && og.Description != "" {
		return og.Description
	}
	return doc.Description()
}

// classifyTransportError maps connection-level failures into the taxonomy.
func classifyTransportError(err error, url string) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return pagetext.WrapError(pagetext.EUNREACHABLE, err, "website not found or unreachable: %s", url)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return pagetext.WrapError(pagetext.ETIMEOUT, err, "request to %s timed out", url)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return pagetext.WrapError(pagetext.EUNREACHABLE, err, "website not found or unreachable: %s", url)
	}

	return pagetext.WrapError(pagetext.EUNKNOWN, err, "fetching %s", url)
}
