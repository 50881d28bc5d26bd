package dom

import "golang.org/x/net/html"

// ClientHeight is the visible height of a scrollable element.
func (e Element) ClientHeight() int {
	if e.node == nil {
		return 0
	}
	return e.doc.box(e.node).clientHeight
}

// SetClientHeight is called by front-ends when the viewport is resized. The
// scroll offset is clamped to the new range.
func (e Element) SetClientHeight(h int) {
	if e.node == nil {
		return
	}
	if h < 0 {
		h = 0
	}
	e.doc.box(e.node).clientHeight = h
	e.SetScrollTop(e.ScrollTop())
}

// ScrollHeight is the height of the content of e, never less than its client
// height.
func (e Element) ScrollHeight() int {
	if e.node == nil {
		return 0
	}
	total := 0
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			total += e.doc.layout(c)
		}
	}
	if ch := e.ClientHeight(); total < ch {
		return ch
	}
	return total
}

// ScrollTop is the current vertical scroll offset.
func (e Element) ScrollTop() int {
	if e.node == nil {
		return 0
	}
	return e.doc.box(e.node).scrollTop
}

// SetScrollTop scrolls e, clamping to [0, ScrollHeight-ClientHeight] the way
// browsers do.
func (e Element) SetScrollTop(top int) {
	if e.node == nil {
		return
	}
	max := e.ScrollHeight() - e.ClientHeight()
	if top > max {
		top = max
	}
	if top < 0 {
		top = 0
	}
	e.doc.box(e.node).scrollTop = top
}
