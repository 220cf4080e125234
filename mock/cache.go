package mock

import (
	"context"

	"github.com/fwojciec/pagetext"
)

var _ pagetext.ResultCache = (*ResultCache)(nil)

// ResultCache is a mock implementation of pagetext.ResultCache.
type ResultCache struct {
	GetFn func(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error)
	PutFn func(ctx context.Context, url string, opts pagetext.ExtractionOptions, result *pagetext.ExtractionResult) error
}

func (c *ResultCache) Get(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	return c.GetFn(ctx, url, opts)
}

func (c *ResultCache) Put(ctx context.Context, url string, opts pagetext.ExtractionOptions, result *pagetext.ExtractionResult) error {
	return c.PutFn(ctx, url, opts, result)
}
