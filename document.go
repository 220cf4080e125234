package pagetext

// NoiseSelector matches elements removed before looking for content.
const NoiseSelector = "script, style, noscript, nav, header, footer, aside, .advertisement, .ads, .social-media, iframe"

// ContentSelectors are probed in order. Semantic tags come first; class and
// id conventions are a fallback layer.
var ContentSelectors = []string{
	"main",
	"article",
	".content",
	".main-content",
	"#content",
	"#main",
	".post-content",
	".entry-content",
}

// Document is the minimal traversal surface the content-area heuristic needs.
// The browser path implements it against a live page; the static path
// implements it against a parsed HTML tree.
type Document interface {
	// Remove deletes every element matching selector.
	Remove(selector string) error

	// Text returns the text of the first element matching selector in
	// document order. found is false when nothing matches.
	Text(selector string) (text string, found bool, err error)
}

// ExtractContent removes noise from doc and returns the raw text of its
// primary content area: the first element of the first matching
// ContentSelectors entry, or the body when none matches. The result is not
// normalized; see FinalizeContent.
func ExtractContent(doc Document) (string, error) {
	if err := doc.Remove(NoiseSelector); err != nil {
		return "", err
	}

	for _, selector := range ContentSelectors {
		text, found, err := doc.Text(selector)
		if err != nil {
			return "", err
		}
		if found {
			return text, nil
		}
	}

	text, _, err := doc.Text("body")
	return text, err
}
