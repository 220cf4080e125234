package pagetext

// Strategy names recorded on ExtractionResult.
const (
	SourceStatic  = "static"
	SourceDynamic = "dynamic"
)

// ExtractionResult is the clean text of one page.
type ExtractionResult struct {
	// Title is the page title, "Untitled" when the page has none.
	Title string

	// URL is the requested URL with a scheme added when it had none.
	URL string

	// Content is normalized text between MinContentLength and
	// MaxContentLength characters, followed by TruncationMarker when cut.
	Content string

	// Description is the page's OpenGraph or meta description, if any.
	Description string

	// Source is the fetch path that produced the content (SourceStatic or SourceDynamic).
	Source string
}
