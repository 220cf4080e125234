package mock

import "github.com/fwojciec/pagetext"

var _ pagetext.Document = (*Document)(nil)

// Document is a mock implementation of pagetext.Document.
type Document struct {
	RemoveFn func(selector string) error
	TextFn   func(selector string) (string, bool, error)
}

func (d *Document) Remove(selector string) error {
	return d.RemoveFn(selector)
}

func (d *Document) Text(selector string) (string, bool, error) {
	return d.TextFn(selector)
}
