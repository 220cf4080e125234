// Package slog provides logging decorators for pagetext services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/pagetext"
)

// Ensure LoggingFetcher implements pagetext.Fetcher.
var _ pagetext.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with one log line per fetch.
type LoggingFetcher struct {
	next   pagetext.Fetcher
	name   string
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher. name identifies the fetch
// path in log output.
func NewLoggingFetcher(next pagetext.Fetcher, name string, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, name: name, logger: logger}
}

// Fetch logs the URL, result size and duration and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string, opts pagetext.ExtractionOptions) (result *pagetext.ExtractionResult, err error) {
	defer func(begin time.Time) {
		if err != nil {
			f.logger.Warn("fetch",
				"fetcher", f.name,
				"url", url,
				"duration", time.Since(begin),
				"code", pagetext.ErrorCode(err),
				"err", err,
			)
			return
		}
		f.logger.Info("fetch",
			"fetcher", f.name,
			"url", url,
			"chars", len([]rune(result.Content)),
			"duration", time.Since(begin),
		)
	}(time.Now())
	return f.next.Fetch(ctx, url, opts)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}
