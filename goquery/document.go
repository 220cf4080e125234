// Package goquery implements pagetext.Document over a parsed HTML tree.
package goquery

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/pagetext"
)

// Ensure Document implements pagetext.Document at compile time.
var _ pagetext.Document = (*Document)(nil)

// UntitledTitle is reported for pages with neither a <title> nor an <h1>.
const UntitledTitle = "Untitled"

// Document adapts a goquery document to the content-area heuristic.
// Remove mutates the parsed tree; parse a fresh Document per extraction.
type Document struct {
	doc *goquery.Document
}

// NewDocument parses HTML from r.
func NewDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// NewDocumentFromString parses an HTML string.
func NewDocumentFromString(html string) (*Document, error) {
	return NewDocument(strings.NewReader(html))
}

// Remove deletes every element matching selector.
func (d *Document) Remove(selector string) error {
	d.doc.Find(selector).Remove()
	return nil
}

// Text returns the text of the first element matching selector.
func (d *Document) Text(selector string) (string, bool, error) {
	sel := d.doc.Find(selector)
	if sel.Length() == 0 {
		return "", false, nil
	}
	return sel.First().Text(), true, nil
}

// Title returns the <title> text, else the first <h1> text, else UntitledTitle.
func (d *Document) Title() string {
	if title := strings.TrimSpace(d.doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(d.doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return UntitledTitle
}

// Description returns the content of the meta description tag, if any.
func (d *Document) Description() string {
	content, _ := d.doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// Content runs the content-area heuristic and returns the raw text.
func (d *Document) Content() (string, error) {
	return pagetext.ExtractContent(d)
}
