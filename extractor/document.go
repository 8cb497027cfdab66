package extractor

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed, queryable view of a product page. It is immutable
// after parsing and safe for concurrent reads.
type Document struct {
	doc *goquery.Document
}

// ParseDocument parses raw HTML into a Document. This is the only point in
// the extraction pipeline that can fail hard; everything downstream degrades
// to zero values instead of returning errors.
func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %v", err)
	}
	return &Document{doc: doc}, nil
}

// ParseDocumentString parses an in-memory HTML string.
func ParseDocumentString(html string) (*Document, error) {
	return ParseDocument(strings.NewReader(html))
}

// Find returns all nodes matching the selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// First returns the first node matching the selector.
func (d *Document) First(selector string) *goquery.Selection {
	return d.doc.Find(selector).First()
}

// FullText returns the text content of the entire page.
func (d *Document) FullText() string {
	return d.doc.Text()
}
