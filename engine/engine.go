// Package engine is the single entry point for content extraction. It picks
// a fetch strategy per URL, falls back from the browser to a static fetch
// when allowed and maps every failure into the pagetext error taxonomy.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/pagetext"
	"github.com/google/uuid"
)

var _ pagetext.Extractor = (*Engine)(nil)

// Engine routes extractions between a static and a dynamic fetcher.
// Fields must be set before the first call to Extract.
// Engine is safe for concurrent use.
type Engine struct {
	// Static fetches raw HTML without running scripts.
	Static pagetext.Fetcher

	// Dynamic renders pages in a browser. Nil disables the browser path.
	Dynamic pagetext.Fetcher

	// Policy decides which strategy a URL gets. Nil means no denylist.
	Policy *pagetext.Policy

	// Cache stores successful results. Optional.
	Cache pagetext.ResultCache

	// Limiter paces outbound fetches per host. Optional.
	Limiter pagetext.DomainLimiter

	Logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New creates an Engine with the default policy and a discarding logger.
func New(static, dynamic pagetext.Fetcher) *Engine {
	return &Engine{
		Static:  static,
		Dynamic: dynamic,
		Policy:  pagetext.DefaultPolicy(),
		Logger:  slog.New(slog.DiscardHandler),
	}
}

// Extract returns the clean text of the page at url. Every returned error is
// a *pagetext.Error.
func (e *Engine) Extract(ctx context.Context, url string, opts pagetext.ExtractionOptions) (result *pagetext.ExtractionResult, err error) {
	url = pagetext.NormalizeURL(url)
	strategy := e.Policy.Select(url, opts)
	logger := e.logger().With("request_id", uuid.NewString(), "url", url)

	defer func(begin time.Time) {
		attrs := []any{
			"strategy", strategy.String(),
			"duration", time.Since(begin),
		}
		if err != nil {
			logger.Warn("extract", append(attrs, "code", pagetext.ErrorCode(err), "err", err)...)
			return
		}
		logger.Info("extract", append(attrs, "source", result.Source, "chars", len([]rune(result.Content)))...)
	}(time.Now())

	if cached := e.cached(ctx, logger, url, opts); cached != nil {
		return cached, nil
	}

	switch strategy {
	case pagetext.StrategyDynamicOnly:
		result, err = e.fetchDynamic(ctx, url, opts)
	case pagetext.StrategyDynamicFirst:
		result, err = e.fetchDynamic(ctx, url, opts)
		if err != nil {
			logger.Warn("browser fetch failed, falling back to static", "code", pagetext.ErrorCode(err), "err", err)
			result, err = e.fetchStatic(ctx, url, opts)
		}
	default:
		result, err = e.fetchStatic(ctx, url, opts)
	}
	if err != nil {
		return nil, pagetext.AsError(err)
	}

	if e.Cache != nil {
		if perr := e.Cache.Put(ctx, url, opts, result); perr != nil {
			logger.Warn("caching result", "err", perr)
		}
	}
	return result, nil
}

// cached returns a fresh cached result or nil. Cache failures are logged
// and treated as misses.
func (e *Engine) cached(ctx context.Context, logger *slog.Logger, url string, opts pagetext.ExtractionOptions) *pagetext.ExtractionResult {
	if e.Cache == nil {
		return nil
	}
	result, err := e.Cache.Get(ctx, url, opts)
	if err != nil {
		logger.Warn("reading cache", "err", err)
		return nil
	}
	if result != nil {
		logger.Debug("cache hit")
	}
	return result
}

func (e *Engine) fetchDynamic(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	if e.Dynamic == nil {
		return nil, pagetext.Errorf(pagetext.ELAUNCH, "browser fetching is not configured")
	}
	return e.fetch(ctx, e.Dynamic, url, opts)
}

func (e *Engine) fetchStatic(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	if e.Static == nil {
		return nil, pagetext.Errorf(pagetext.EUNKNOWN, "static fetching is not configured")
	}
	return e.fetch(ctx, e.Static, url, opts)
}

func (e *Engine) fetch(ctx context.Context, f pagetext.Fetcher, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx, pagetext.Hostname(url)); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, pagetext.WrapError(pagetext.EUNKNOWN, err, "extraction canceled")
			}
			return nil, pagetext.WrapError(pagetext.ETIMEOUT, err, "waiting for rate limit on %s", url)
		}
	}

	result, err := f.Fetch(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if result == nil || utf8.RuneCountInString(result.Content) < pagetext.MinContentLength {
		return nil, pagetext.Errorf(pagetext.ENOCONTENT, "could not extract meaningful content from the page")
	}
	return result, nil
}

// Close shuts down both fetchers, releasing the browser if one is running.
// Close is safe to call multiple times; later calls return the first result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if e.Dynamic != nil {
			errs = append(errs, e.Dynamic.Close())
		}
		if e.Static != nil {
			errs = append(errs, e.Static.Close())
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
