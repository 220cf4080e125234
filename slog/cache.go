package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/pagetext"
)

// Ensure LoggingCache implements pagetext.ResultCache.
var _ pagetext.ResultCache = (*LoggingCache)(nil)

// LoggingCache wraps a ResultCache with debug logging of hits and misses.
type LoggingCache struct {
	next   pagetext.ResultCache
	logger *slog.Logger
}

// NewLoggingCache creates a new LoggingCache.
func NewLoggingCache(next pagetext.ResultCache, logger *slog.Logger) *LoggingCache {
	return &LoggingCache{next: next, logger: logger}
}

// Get logs whether the lookup hit and delegates to the wrapped cache.
func (c *LoggingCache) Get(ctx context.Context, url string, opts pagetext.ExtractionOptions) (result *pagetext.ExtractionResult, err error) {
	defer func(begin time.Time) {
		c.logger.Debug("cache get",
			"url", url,
			"hit", result != nil,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Get(ctx, url, opts)
}

// Put logs the stored entry and delegates to the wrapped cache.
func (c *LoggingCache) Put(ctx context.Context, url string, opts pagetext.ExtractionOptions, result *pagetext.ExtractionResult) (err error) {
	defer func(begin time.Time) {
		c.logger.Debug("cache put",
			"url", url,
			"source", result.Source,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Put(ctx, url, opts, result)
}
