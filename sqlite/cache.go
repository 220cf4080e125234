package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/pagetext"
)

// DefaultTTL is how long a cached result stays fresh.
const DefaultTTL = time.Hour

// Ensure ResultCache implements pagetext.ResultCache at compile time.
var _ pagetext.ResultCache = (*ResultCache)(nil)

// ResultCache stores extraction results in SQLite, keyed by URL and the
// options that change how a page is fetched.
type ResultCache struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// CacheOption configures a ResultCache.
type CacheOption func(*ResultCache)

// WithTTL sets how long entries stay fresh. Defaults to DefaultTTL.
func WithTTL(d time.Duration) CacheOption {
	return func(c *ResultCache) {
		c.ttl = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *ResultCache) {
		c.now = now
	}
}

// NewResultCache creates a ResultCache on an open DB.
func NewResultCache(db *DB, opts ...CacheOption) *ResultCache {
	c := &ResultCache{
		db:  db,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for a URL and options. Timeouts and waits do not
// change what a successful fetch returns, so they are not part of the key.
func Key(url string, opts pagetext.ExtractionOptions) string {
	h := xxhash.New()
	_, _ = h.WriteString(pagetext.NormalizeURL(url))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.FormatBool(opts.UseJavaScript))
	_, _ = h.WriteString(strconv.FormatBool(opts.ForceBrowser))
	_, _ = h.WriteString(strconv.FormatBool(opts.Scroll()))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(opts.Selector())
	return strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the fresh result for url and opts, or nil on a miss.
func (c *ResultCache) Get(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
	var r pagetext.ExtractionResult
	err := c.db.QueryRowContext(ctx, `
		SELECT url, title, content, description, source
		FROM results
		WHERE key = ? AND expires_at > ?
	`, Key(url, opts), c.now().Unix()).Scan(&r.URL, &r.Title, &r.Content, &r.Description, &r.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached result: %w", err)
	}
	return &r, nil
}

// Put stores result for url and opts, replacing any existing entry.
func (c *ResultCache) Put(ctx context.Context, url string, opts pagetext.ExtractionOptions, result *pagetext.ExtractionResult) error {
	now := c.now()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO results (key, url, title, content, description, source, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			content = excluded.content,
			description = excluded.description,
			source = excluded.source,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`,
		Key(url, opts),
		result.URL,
		result.Title,
		result.Content,
		result.Description,
		result.Source,
		now.UTC().Format(time.RFC3339),
		now.Add(c.ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("caching result: %w", err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed.
func (c *ResultCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM results WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}
