package pagetext

import "time"

const (
	// DefaultDynamicTimeout bounds navigation and selector waits on the browser path.
	DefaultDynamicTimeout = 30 * time.Second

	// DefaultStaticTimeout bounds the HTTP request on the static path.
	DefaultStaticTimeout = 10 * time.Second

	// DefaultWaitForSelector is the selector the browser waits for after navigation.
	DefaultWaitForSelector = "body"

	// DefaultPostScrollWait is how long the browser waits for lazy content after scrolling.
	DefaultPostScrollWait = 2 * time.Second

	// UserAgent is sent by both fetch paths so pages serve their desktop markup.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// ExtractionOptions configures a single extraction.
// The zero value carries the documented defaults: wait for "body", scroll to
// the bottom and wait DefaultPostScrollWait afterwards.
type ExtractionOptions struct {
	// UseJavaScript asks for the browser path first, falling back to a
	// static fetch if it fails.
	UseJavaScript bool

	// ForceBrowser asks for the browser path only. Its failure is returned
	// to the caller without a static fallback.
	ForceBrowser bool

	// Timeout bounds each blocking step. Zero means the fetcher's default
	// (DefaultDynamicTimeout or DefaultStaticTimeout).
	Timeout time.Duration

	// WaitForSelector is the CSS selector the browser waits for after
	// navigation. Empty means DefaultWaitForSelector.
	WaitForSelector string

	// NoScroll skips scrolling the rendered page to trigger lazy-loaded content.
	NoScroll bool

	// PostScrollWait is waited once after scrolling finishes. Zero means
	// DefaultPostScrollWait; a negative value disables the wait.
	PostScrollWait time.Duration
}

// DefaultOptions returns options with every default spelled out.
func DefaultOptions() ExtractionOptions {
	return ExtractionOptions{
		WaitForSelector: DefaultWaitForSelector,
		PostScrollWait:  DefaultPostScrollWait,
	}
}

// Scroll reports whether the browser should scroll to the bottom.
func (o ExtractionOptions) Scroll() bool {
	return !o.NoScroll
}

// ScrollWait returns how long to wait after scrolling.
func (o ExtractionOptions) ScrollWait() time.Duration {
	switch {
	case o.PostScrollWait < 0:
		return 0
	case o.PostScrollWait == 0:
		return DefaultPostScrollWait
	}
	return o.PostScrollWait
}

// TimeoutOr returns the configured timeout, or def when none is set.
func (o ExtractionOptions) TimeoutOr(def time.Duration) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return def
}

// Selector returns the configured wait selector or DefaultWaitForSelector.
func (o ExtractionOptions) Selector() string {
	if o.WaitForSelector == "" {
		return DefaultWaitForSelector
	}
	return o.WaitForSelector
}
