package pagetext

import "context"

// Fetcher retrieves a page and extracts its content.
// Implementations either parse the raw HTTP response or render the page in a
// browser first.
type Fetcher interface {
	// Fetch retrieves the URL and returns its normalized content.
	// Failures are *Error values in the package taxonomy.
	// The context controls cancellation; opts.Timeout bounds each step.
	Fetch(ctx context.Context, url string, opts ExtractionOptions) (*ExtractionResult, error)

	// Close releases resources held by the fetcher.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// Extractor is the single entry point combining strategy selection,
// fetching and output bounding.
type Extractor interface {
	Extract(ctx context.Context, url string, opts ExtractionOptions) (*ExtractionResult, error)
}

// ResultCache stores successful extraction results.
type ResultCache interface {
	// Get returns a cached result, or nil when there is no fresh entry.
	Get(ctx context.Context, url string, opts ExtractionOptions) (*ExtractionResult, error)

	// Put stores a result for the URL and options.
	Put(ctx context.Context, url string, opts ExtractionOptions, result *ExtractionResult) error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
