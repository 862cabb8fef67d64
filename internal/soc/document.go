package soc

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is the host page the presenter reads its payload from
type Document interface {
	// ElementText returns the text content of the element with the given id
	ElementText(id string) (string, bool)
}

// HTMLDocument is a parsed HTML page
type HTMLDocument struct {
	doc *goquery.Document
}

// NewHTMLDocument parses an HTML page
func NewHTMLDocument(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html document: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// NewHTMLDocumentFromString parses an HTML page held in memory
func NewHTMLDocumentFromString(html string) (*HTMLDocument, error) {
	return NewHTMLDocument(strings.NewReader(html))
}

// ElementText implements Document. Only the first element with the id counts.
func (d *HTMLDocument) ElementText(id string) (string, bool) {
	sel := d.doc.Find(fmt.Sprintf("[id=%q]", id)).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// HasElement reports whether an element with the id exists
func (d *HTMLDocument) HasElement(id string) bool {
	_, ok := d.ElementText(id)
	return ok
}

// MapDocument is an in-memory Document keyed by element id
type MapDocument map[string]string

// ElementText implements Document
func (m MapDocument) ElementText(id string) (string, bool) {
	text, ok := m[id]
	return text, ok
}
