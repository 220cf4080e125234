package pagetext

import (
	"net/url"
	"strings"
)

// NormalizeURL trims surrounding whitespace and prepends "https://" when the
// URL has no http or https scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// Hostname returns the lowercase host of a URL without port, or "" when
// the URL cannot be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(NormalizeURL(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
