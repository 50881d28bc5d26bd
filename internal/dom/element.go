package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is a handle on an element node. The zero value, and any lookup that
// found nothing, does not exist; every method on it is a no-op.
type Element struct {
	doc  *Document
	node *html.Node
}

// Exists reports whether the handle points at a node
func (e Element) Exists() bool {
	return e.node != nil
}

// Node returns the underlying node.
func (e Element) Node() *html.Node {
	return e.node
}

// Tag returns the lower-case tag name.
func (e Element) Tag() string {
	if e.node == nil {
		return ""
	}
	return e.node.Data
}

// Is reports whether e matches a CSS selector.
func (e Element) Is(selector string) bool {
	if e.node == nil {
		return false
	}
	return selection(e.node).Is(selector)
}

func (e Element) sel() *goquery.Selection {
	return selection(e.node)
}

// Attr returns an attribute value.
func (e Element) Attr(name string) (string, bool) {
	if e.node == nil {
		return "", false
	}
	return e.sel().Attr(name)
}

// SetAttr sets an attribute value.
func (e Element) SetAttr(name, value string) {
	if e.node == nil {
		return
	}
	e.sel().SetAttr(name, value)
}

// RemoveAttr deletes an attribute.
func (e Element) RemoveAttr(name string) {
	if e.node == nil {
		return
	}
	e.sel().RemoveAttr(name)
}

// Data returns the data-* attribute with the given key.
func (e Element) Data(key string) string {
	v, _ := e.Attr("data-" + key)
	return v
}

// HasClass reports whether e carries the class
func (e Element) HasClass(class string) bool {
	if e.node == nil {
		return false
	}
	return e.sel().HasClass(class)
}

// AddClass adds classes.
func (e Element) AddClass(class ...string) {
	if e.node == nil {
		return
	}
	e.sel().AddClass(class...)
}

// RemoveClass removes classes.
func (e Element) RemoveClass(class ...string) {
	if e.node == nil {
		return
	}
	e.sel().RemoveClass(class...)
}

// SetClassName replaces the whole class attribute.
func (e Element) SetClassName(classes string) {
	e.SetAttr("class", classes)
}

// Text returns the concatenated text of e and its descendants.
func (e Element) Text() string {
	if e.node == nil {
		return ""
	}
	return textContent(e.node)
}

// SetText replaces the children of e with a single text node. The text is
// never interpreted as markup.
func (e Element) SetText(s string) {
	if e.node == nil {
		return
	}
	e.Clear()
	if s != "" {
		e.node.AppendChild(Text(s))
	}
}

// Value returns the current value of a form control.
func (e Element) Value() string {
	if e.node == nil {
		return ""
	}
	if e.node.Data == "textarea" {
		return e.Text()
	}
	v, _ := e.Attr("value")
	return v
}

// SetValue sets the current value of a form control.
func (e Element) SetValue(s string) {
	if e.node == nil {
		return
	}
	if e.node.Data == "textarea" {
		e.SetText(s)
		return
	}
	e.SetAttr("value", s)
}

// Disabled reports whether the disabled attribute is present.
func (e Element) Disabled() bool {
	_, ok := e.Attr("disabled")
	return ok
}

// SetDisabled adds or removes the disabled attribute.
func (e Element) SetDisabled(disabled bool) {
	if disabled {
		e.SetAttr("disabled", "")
		return
	}
	e.RemoveAttr("disabled")
}

// Hidden reports whether e has been hidden with SetHidden.
func (e Element) Hidden() bool {
	_, ok := e.Attr("hidden")
	return ok
}

// SetHidden toggles display of e.
func (e Element) SetHidden(hidden bool) {
	if hidden {
		e.SetAttr("hidden", "")
		e.SetAttr("style", "display: none")
		return
	}
	e.RemoveAttr("hidden")
	e.RemoveAttr("style")
}

// Children returns the element children of e.
func (e Element) Children() []Element {
	if e.node == nil {
		return nil
	}
	var out []Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// ChildElementCount is the number of element children.
func (e Element) ChildElementCount() int {
	return len(e.Children())
}

// Clear removes every child node.
func (e Element) Clear() {
	if e.node == nil {
		return
	}
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

// Append adds detached nodes as the last children of e.
func (e Element) Append(nodes ...*html.Node) {
	if e.node == nil {
		return
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		e.node.AppendChild(n)
	}
}

// ReplaceChildren clears e and appends nodes.
func (e Element) ReplaceChildren(nodes ...*html.Node) {
	e.Clear()
	e.Append(nodes...)
}

// CloneChildren returns deep copies of every child node.
func (e Element) CloneChildren() []*html.Node {
	if e.node == nil {
		return nil
	}
	var out []*html.Node
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, clone(c))
	}
	return out
}

// Closest returns e or its nearest ancestor matching selector.
func (e Element) Closest(selector string) Element {
	if e.node == nil {
		return Element{doc: e.doc}
	}
	return e.first(e.sel().Closest(selector))
}

// Query returns the first descendant matching selector.
func (e Element) Query(selector string) Element {
	if e.node == nil {
		return Element{doc: e.doc}
	}
	return e.first(e.sel().Find(selector))
}

// QueryAll returns every descendant matching selector.
func (e Element) QueryAll(selector string) []Element {
	if e.node == nil {
		return nil
	}
	var out []Element
	e.sel().Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, e.doc.wrap(s.Get(0)))
	})
	return out
}

// Contains reports whether other is e or one of its descendants.
func (e Element) Contains(other Element) bool {
	if e.node == nil {
		return false
	}
	for n := other.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// InnerHTML serialises the children of e.
func (e Element) InnerHTML() string {
	if e.node == nil {
		return ""
	}
	s, err := e.sel().Html()
	if err != nil {
		return ""
	}
	return s
}

// OuterHTML serialises e itself.
func (e Element) OuterHTML() string {
	if e.node == nil {
		return ""
	}
	s, err := goquery.OuterHtml(e.sel())
	if err != nil {
		return ""
	}
	return s
}

func (e Element) first(s *goquery.Selection) Element {
	if s.Length() == 0 {
		return Element{doc: e.doc}
	}
	return e.doc.wrap(s.Get(0))
}

func clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(clone(child))
	}
	return c
}

// El builds a detached element. attrs are key, value pairs.
func El(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: strings.ToLower(tag)}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text builds a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Append attaches children to parent and returns parent.
func Append(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		parent.AppendChild(c)
	}
	return parent
}
