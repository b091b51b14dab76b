package fetcher

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

const xpathPrefix = "xpath="

// Signal is what a selector found in a page.
type Signal struct {
	Present bool
	// Visible is only meaningful for rendered pages; static pages report
	// every present element as visible.
	Visible bool
	Text    string
}

// Document is a parsed page that can answer CSS and XPath selectors.
type Document struct {
	root *html.Node
	dom  *goquery.Document
}

// ParseDocument parses markup once for both selector flavors.
func ParseDocument(body []byte) (*Document, error) {
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root, dom: goquery.NewDocumentFromNode(root)}, nil
}

// Query resolves selector against the document. An empty selector yields
// an absent signal; an invalid XPath expression is treated as absent.
func (d *Document) Query(selector string) Signal {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Signal{}
	}
	if expr, ok := strings.CutPrefix(selector, xpathPrefix); ok {
		node, err := htmlquery.Query(d.root, expr)
		if err != nil || node == nil {
			return Signal{}
		}
		return Signal{Present: true, Visible: true, Text: strings.TrimSpace(htmlquery.InnerText(node))}
	}
	sel := d.dom.Find(selector).First()
	if sel.Length() == 0 {
		return Signal{}
	}
	return Signal{Present: true, Visible: true, Text: strings.TrimSpace(sel.Text())}
}

// IsXPath reports whether selector uses the xpath= prefix.
func IsXPath(selector string) bool {
	return strings.HasPrefix(strings.TrimSpace(selector), xpathPrefix)
}
