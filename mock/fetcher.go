package mock

import (
	"context"

	"github.com/fwojciec/pagetext"
)

var _ pagetext.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of pagetext.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	return f.FetchFn(ctx, url, opts)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}
