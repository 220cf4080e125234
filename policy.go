package pagetext

import (
	"net/url"
	"strings"
)

// Strategy is the fetch plan chosen for one request.
type Strategy int

const (
	// StrategyStaticOnly runs the static fetcher and never the browser.
	StrategyStaticOnly Strategy = iota

	// StrategyDynamicFirst runs the browser and falls back to a static fetch
	// when it fails.
	StrategyDynamicFirst

	// StrategyDynamicOnly runs the browser and returns its failure as-is.
	StrategyDynamicOnly
)

// String returns the strategy name used in logs.
func (s Strategy) String() string {
	switch s {
	case StrategyStaticOnly:
		return "static"
	case StrategyDynamicFirst:
		return "dynamic-first"
	case StrategyDynamicOnly:
		return "dynamic-only"
	default:
		return "unknown"
	}
}

// Policy decides which strategy a URL gets. Hosts and Substrings form a
// denylist of sites known to render their content with JavaScript.
type Policy struct {
	// Hosts match the URL host exactly or as a parent domain,
	// so "github.com" matches "gist.github.com" but not "notgithub.com".
	Hosts []string

	// Substrings match anywhere in the URL host and path.
	Substrings []string
}

// DefaultPolicy returns the built-in denylist of major social, collaboration
// and SPA-hosting platforms.
func DefaultPolicy() *Policy {
	return &Policy{
		Hosts: []string{
			"twitter.com",
			"x.com",
			"facebook.com",
			"instagram.com",
			"linkedin.com",
			"gmail.com",
			"docs.google.com",
			"github.com",
			"gitlab.com",
			"youtube.com",
			"netflix.com",
			"amazon.com",
			"airbnb.com",
			"trello.com",
			"notion.so",
			"airtable.com",
			"webflow.com",
			"vercel.com",
			"netlify.com",
			"heroku.com",
			"shopify.com",
		},
	}
}

// Select returns the strategy for rawURL under opts.
// ForceBrowser wins over everything; UseJavaScript or a denylist match asks
// for the browser first; everything else is static only.
func (p *Policy) Select(rawURL string, opts ExtractionOptions) Strategy {
	if opts.ForceBrowser {
		return StrategyDynamicOnly
	}
	if opts.UseJavaScript || p.RequiresJavaScript(rawURL) {
		return StrategyDynamicFirst
	}
	return StrategyStaticOnly
}

// RequiresJavaScript reports whether rawURL is on the denylist.
func (p *Policy) RequiresJavaScript(rawURL string) bool {
	if p == nil {
		return false
	}

	u, err := url.Parse(NormalizeURL(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())

	for _, h := range p.Hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}

	target := host + strings.ToLower(u.EscapedPath())
	for _, s := range p.Substrings {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(target, s) {
			return true
		}
	}
	return false
}
