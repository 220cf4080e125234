// Package rod implements the browser-rendered fetch path using go-rod.
package rod

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	// DefaultFetchTimeout bounds navigation and the selector wait when the
	// extraction options carry no timeout.
	DefaultFetchTimeout = pagetext.DefaultDynamicTimeout

	// ViewportWidth and ViewportHeight are the emulated desktop window size.
	ViewportWidth  = 1920
	ViewportHeight = 1080

	// scrollStep is the distance scrolled per tick.
	scrollStep = 100

	// scrollInterval is the pause between scroll steps.
	scrollInterval = 100 * time.Millisecond

	// maxScroll caps the total scrolled distance.
	maxScroll = 10000

	// requestIdle is how long the network must be quiet after navigation.
	requestIdle = 500 * time.Millisecond
)

// Network error reasons Chrome reports when a host cannot be reached.
var unreachableReasons = []string{
	"ERR_NAME_NOT_RESOLVED",
	"ERR_NAME_RESOLUTION_FAILED",
	"ERR_CONNECTION_REFUSED",
	"ERR_ADDRESS_UNREACHABLE",
	"ERR_INTERNET_DISCONNECTED",
	"ERR_CONNECTION_RESET",
}

// Ensure Fetcher implements pagetext.Fetcher at compile time.
var _ pagetext.Fetcher = (*Fetcher)(nil)

// SessionProvider hands out browser sessions. BrowserManager implements it.
type SessionProvider interface {
	Acquire(ctx context.Context) (*Session, error)
	Close() error
}

// Fetcher renders pages in a shared headless browser and extracts their
// content in the page. Each call uses its own page, closed on every path.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	sessions SessionProvider
	timeout  time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchTimeout sets the timeout used when the extraction options carry
// none. Defaults to DefaultFetchTimeout (30s).
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher creates a Fetcher that borrows sessions from sessions.
// Closing the Fetcher closes sessions.
func NewFetcher(sessions SessionProvider, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		sessions: sessions,
		timeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch navigates to the URL, waits for it to settle and extracts its content.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	url = pagetext.NormalizeURL(url)
	timeout := opts.TimeoutOr(f.timeout)

	if err := ctx.Err(); err != nil {
		return nil, contextError(err, "extracting %s", url)
	}

	session, err := f.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	p, err := session.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		if !healthy(session) {
			return nil, pagetext.WrapError(pagetext.EUNKNOWN, err, "browser connection lost while opening a page")
		}
		return nil, pagetext.WrapError(pagetext.EUNKNOWN, err, "opening browser page")
	}
	defer func() { _ = p.Close() }()

	page := p.Context(ctx)

	title, raw, err := f.render(page, url, timeout, opts)
	if err != nil {
		return nil, f.classify(ctx, session, err, url)
	}

	content, err := pagetext.FinalizeContent(raw)
	if err != nil {
		return nil, err
	}

	return &pagetext.ExtractionResult{
		Title:   title,
		URL:     url,
		Content: content,
		Source:  pagetext.SourceDynamic,
	}, nil
}

// render drives the page from navigation to extraction and returns the
// document title and raw content text.
func (f *Fetcher) render(page *rod.Page, url string, timeout time.Duration, opts pagetext.ExtractionOptions) (string, string, error) {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return "", "", err
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: pagetext.UserAgent,
	}); err != nil {
		return "", "", err
	}

	if err := navigate(page, url, timeout); err != nil {
		return "", "", err
	}

	sel := page.Timeout(timeout)
	_, err := sel.Element(opts.Selector())
	sel.CancelTimeout()
	if err != nil {
		return "", "", &stepError{step: "waiting for " + opts.Selector(), err: err}
	}

	if opts.Scroll() {
		if err := scrollToBottom(page); err != nil {
			return "", "", err
		}
		if err := sleep(page.GetContext(), opts.ScrollWait()); err != nil {
			return "", "", err
		}
	}

	res, err := page.Eval(`() => document.title`)
	if err != nil {
		return "", "", err
	}
	title := strings.TrimSpace(res.Value.Str())
	if title == "" {
		title = "Untitled"
	}

	raw, err := pagetext.ExtractContent(&pageDocument{page: page})
	if err != nil {
		return "", "", err
	}
	return title, raw, nil
}

// navigate loads url and waits until network requests are quiet or the
// timeout elapses.
func navigate(page *rod.Page, url string, timeout time.Duration) error {
	nav := page.Timeout(timeout)
	defer nav.CancelTimeout()

	wait := nav.WaitRequestIdle(requestIdle, nil, nil, nil)
	if err := nav.Navigate(url); err != nil {
		return &stepError{step: "navigating", err: err}
	}
	wait()

	if err := nav.GetContext().Err(); err != nil {
		return &stepError{step: "waiting for network idle", err: err}
	}
	return nil
}

// scrollToBottom scrolls in fixed steps until the scrolled distance reaches
// the body height or exceeds maxScroll.
func scrollToBottom(page *rod.Page) error {
	total := 0
	for {
		res, err := page.Eval(`(d) => {
			const h = document.body ? document.body.scrollHeight : 0;
			window.scrollBy(0, d);
			return h;
		}`, scrollStep)
		if err != nil {
			return err
		}
		total += scrollStep
		if total >= res.Value.Int() || total > maxScroll {
			return nil
		}
		if err := sleep(page.GetContext(), scrollInterval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// stepError records which page step a failure happened in.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// classify maps a page failure into the error taxonomy. Failures that are
// not attributable to the page or the deadline trigger a health probe, and a
// session that fails it is marked disconnected.
func (f *Fetcher) classify(ctx context.Context, session *Session, err error, url string) error {
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		for _, reason := range unreachableReasons {
			if strings.Contains(navErr.Reason, reason) {
				return pagetext.WrapError(pagetext.EUNREACHABLE, err, "website not found or unreachable: %s", url)
			}
		}
		return pagetext.WrapError(pagetext.EUNKNOWN, err, "navigating to %s", url)
	}

	if cerr := ctx.Err(); cerr != nil {
		return contextError(cerr, "extracting %s", url)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		step := "loading page"
		var se *stepError
		if errors.As(err, &se) {
			step = se.step
		}
		return pagetext.WrapError(pagetext.ETIMEOUT, err, "timed out %s %s", step, url)
	}

	if !healthy(session) {
		return pagetext.WrapError(pagetext.EUNKNOWN, err, "browser connection lost while extracting %s", url)
	}
	return pagetext.WrapError(pagetext.EUNKNOWN, err, "extracting %s", url)
}

// healthy runs the session's health probe. A session that fails it is
// marked disconnected so the next Acquire relaunches.
func healthy(session *Session) bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return session.Ping(ctx) == nil
}

// contextError maps a caller's context error into the taxonomy.
func contextError(err error, format string, args ...any) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pagetext.WrapError(pagetext.ETIMEOUT, err, format, args...)
	}
	return pagetext.WrapError(pagetext.EUNKNOWN, err, format, args...)
}

// Close closes the session provider.
func (f *Fetcher) Close() error {
	return f.sessions.Close()
}

// pageDocument runs the content-area heuristic against the live DOM.
type pageDocument struct {
	page *rod.Page
}

var _ pagetext.Document = (*pageDocument)(nil)

func (d *pageDocument) Remove(selector string) error {
	_, err := d.page.Eval(`(s) => { document.querySelectorAll(s).forEach((el) => el.remove()) }`, selector)
	return err
}

func (d *pageDocument) Text(selector string) (string, bool, error) {
	res, err := d.page.Eval(`(s) => {
		const el = document.querySelector(s);
		return el ? el.innerText : null;
	}`, selector)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}
