// Package dom is the page model the chat widget mutates: an HTML node tree with
// just enough browser behaviour (focus, disabled and hidden flags, scroll
// geometry) for a front-end to project it onto a screen.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Layout returns the height, in rows, of a child block inside a scrollable
// element.
type Layout func(n *html.Node) int

// DefaultLayout gives every block one row plus one per line break in its text.
func DefaultLayout(n *html.Node) int {
	return 1 + strings.Count(strings.TrimSpace(textContent(n)), "\n")
}

type box struct {
	scrollTop    int
	clientHeight int
}

// Document is a parsed HTML page.
type Document struct {
	root   *html.Node
	focus  *html.Node
	boxes  map[*html.Node]*box
	layout Layout
}

// New wraps an already parsed node tree.
func New(root *html.Node) *Document {
	return &Document{
		root:   root,
		boxes:  make(map[*html.Node]*box),
		layout: DefaultLayout,
	}
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return New(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// SetLayout replaces the function measuring blocks in scrollable elements.
func (d *Document) SetLayout(l Layout) {
	if l == nil {
		l = DefaultLayout
	}
	d.layout = l
}

// ByID returns the element with the given id. The result does not exist when
// no element matches.
func (d *Document) ByID(id string) Element {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return d.wrap(found)
}

// Query returns the first element matching a CSS selector.
func (d *Document) Query(selector string) Element {
	return d.Root().Query(selector)
}

// QueryAll returns every element matching a CSS selector, in document order.
func (d *Document) QueryAll(selector string) []Element {
	return d.Root().QueryAll(selector)
}

// Root is the document node.
func (d *Document) Root() Element {
	return d.wrap(d.root)
}

// Focus moves the input focus to e.
func (d *Document) Focus(e Element) {
	d.focus = e.node
}

// Focused returns the element holding the focus.
func (d *Document) Focused() Element {
	return d.wrap(d.focus)
}

// HTML serialises the whole page. Text nodes are escaped.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return buf.String(), nil
}

// Element wraps a node of the page, such as the one a Layout is given.
func (d *Document) Element(n *html.Node) Element {
	return d.wrap(n)
}

func (d *Document) wrap(n *html.Node) Element {
	return Element{doc: d, node: n}
}

func (d *Document) box(n *html.Node) *box {
	b, ok := d.boxes[n]
	if !ok {
		b = &box{}
		d.boxes[n] = b
	}
	return b
}

func selection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}
