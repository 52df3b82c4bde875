// Package page models a rendered web page as an injected capability object.
// All DOM reads and mutations the anchoring core performs go through a
// Document, so the same logic runs against a synthetic document in tests
// and against real captured page HTML in the service.
package page

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Document wraps a parsed HTML tree.
type Document struct {
	root *html.Node
}

// noRender lists container elements whose text is never visible to the
// user and therefore never eligible for highlighting.
var noRender = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"title":    true,
	"iframe":   true,
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render serializes the document back to HTML, including any highlight
// spans currently present.
func (d *Document) Render() (string, error) {
	var buf strings.Builder
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// Title returns the text of the first <title> element, or "".
func (d *Document) Title() string {
	if n := findElement(d.root, "title"); n != nil {
		return strings.TrimSpace(textContent(n))
	}
	return ""
}

// MetaDescription returns the content attribute of <meta name="description">,
// or "" when the element is absent.
func (d *Document) MetaDescription() string {
	var found string
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "meta" {
			if attrVal(n, "name") == "description" {
				found = attrVal(n, "content")
				return false
			}
		}
		return true
	})
	return found
}

// BodyText returns the rendered body text: the concatenation of visible
// text nodes with whitespace runs collapsed. Highlight spans are
// transparent to this view, which is what makes clearing round-trip safe.
func (d *Document) BodyText() string {
	body := findElement(d.root, "body")
	if body == nil {
		body = d.root
	}
	var buf strings.Builder
	walk(body, func(n *html.Node) bool {
		if n.Type == html.ElementNode && noRender[n.Data] {
			return false
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		return true
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// TextLeaves returns the text nodes eligible for highlighting, in document
// order. A leaf qualifies when its parent renders text and the node is not
// entirely whitespace.
func (d *Document) TextLeaves() []*html.Node {
	body := findElement(d.root, "body")
	if body == nil {
		body = d.root
	}
	var leaves []*html.Node
	walk(body, func(n *html.Node) bool {
		if n.Type == html.ElementNode && noRender[n.Data] {
			return false
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

// walk visits nodes in pre-order. Returning false from fn skips the
// node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	walk(n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		return true
	})
	return buf.String()
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
