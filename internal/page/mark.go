package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Role tags a highlight span with its purpose.
type Role string

const (
	RoleMatch  Role = "match"  // the located fragment
	RoleSearch Role = "search" // a query occurrence outside a chunk
	RoleChunk  Role = "chunk"  // a whole located chunk
	RoleTerm   Role = "term"   // a query term inside a chunk
)

// AllRoles is the full set; a new highlight pass clears every one of them.
var AllRoles = []Role{RoleMatch, RoleSearch, RoleChunk, RoleTerm}

const roleAttr = "data-whs-role"

// Span is a live highlight annotation. It carries no identity beyond its
// position in the tree and is not tracked across calls.
type Span struct {
	Element *html.Node
	Text    string
}

// run is one segment of a text node after matching: either plain text or
// a matched substring to be wrapped.
type run struct {
	text string
	hit  bool
}

// splitRuns divides text into plain and matched runs for every
// case-insensitive occurrence of needle. The concatenation of all runs is
// always exactly the input text; marking never loses or duplicates
// content.
func splitRuns(text, needle string) []run {
	if needle == "" || text == "" {
		return []run{{text: text}}
	}
	lowerText := strings.ToLower(text)
	lowerNeedle := strings.ToLower(needle)
	if len(lowerText) != len(text) {
		// Lowercasing shifted byte offsets; match case-sensitively
		// rather than risk slicing mid-rune.
		lowerText, lowerNeedle = text, needle
	}

	var runs []run
	pos := 0
	for {
		i := strings.Index(lowerText[pos:], lowerNeedle)
		if i < 0 {
			break
		}
		start := pos + i
		end := start + len(lowerNeedle)
		if start > pos {
			runs = append(runs, run{text: text[pos:start]})
		}
		runs = append(runs, run{text: text[start:end], hit: true})
		pos = end
	}
	if pos < len(text) {
		runs = append(runs, run{text: text[pos:]})
	}
	return runs
}

func newSpanElement(role Role, text string) *html.Node {
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     "mark",
		DataAtom: atom.Mark,
		Attr: []html.Attribute{
			{Key: "class", Val: "whs-highlight whs-" + string(role)},
			{Key: roleAttr, Val: string(role)},
		},
	}
	el.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return el
}

// MarkLeaf replaces a text leaf with an equivalent run of nodes in which
// every case-insensitive occurrence of needle is wrapped in a highlight
// span of the given role. Returns the created span elements, in order.
func (d *Document) MarkLeaf(leaf *html.Node, needle string, role Role) []*html.Node {
	parent := leaf.Parent
	if parent == nil || leaf.Type != html.TextNode {
		return nil
	}
	runs := splitRuns(leaf.Data, needle)
	hit := false
	for _, r := range runs {
		if r.hit {
			hit = true
			break
		}
	}
	if !hit {
		return nil
	}

	var created []*html.Node
	for _, r := range runs {
		var n *html.Node
		if r.hit {
			n = newSpanElement(role, r.text)
			created = append(created, n)
		} else {
			n = &html.Node{Type: html.TextNode, Data: r.text}
		}
		parent.InsertBefore(n, leaf)
	}
	parent.RemoveChild(leaf)
	return created
}

// MarkWithin wraps occurrences of needle in text nodes underneath el,
// skipping text already inside another highlight span. Used to nest term
// spans inside a located chunk span.
func (d *Document) MarkWithin(el *html.Node, needle string, role Role) int {
	var leaves []*html.Node
	walk(el, func(n *html.Node) bool {
		if n != el && n.Type == html.ElementNode && attrVal(n, roleAttr) != "" {
			return false
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			leaves = append(leaves, n)
		}
		return true
	})
	count := 0
	for _, leaf := range leaves {
		count += len(d.MarkLeaf(leaf, needle, role))
	}
	return count
}

// Spans returns the live spans of a role in document order.
func (d *Document) Spans(role Role) []Span {
	var spans []Span
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attrVal(n, roleAttr) == string(role) {
			spans = append(spans, Span{Element: n, Text: textContent(n)})
		}
		return true
	})
	return spans
}

// Clear removes all spans of the given roles, splicing their text back
// into place and re-merging adjacent text nodes so the document is
// textually identical to its pre-highlight state.
func (d *Document) Clear(roles ...Role) {
	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[string(r)] = true
	}
	var marks []*html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && want[attrVal(n, roleAttr)] {
			marks = append(marks, n)
		}
		return true
	})
	// Pre-order collection puts outer spans before the ones nested in
	// them; unwrapping in that order keeps every pointer valid.
	for _, m := range marks {
		unwrap(m)
	}
	mergeText(d.root)
}

// ClearAll removes every highlight span of every role.
func (d *Document) ClearAll() {
	d.Clear(AllRoles...)
}

// unwrap replaces an element with its children.
func unwrap(el *html.Node) {
	parent := el.Parent
	if parent == nil {
		return
	}
	for el.FirstChild != nil {
		c := el.FirstChild
		el.RemoveChild(c)
		parent.InsertBefore(c, el)
	}
	parent.RemoveChild(el)
}

// mergeText joins adjacent sibling text nodes so later passes can match
// across what used to be a span boundary.
func mergeText(n *html.Node) {
	c := n.FirstChild
	for c != nil {
		next := c.NextSibling
		if c.Type == html.TextNode && next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			n.RemoveChild(next)
			continue // re-check c against its new sibling
		}
		if c.Type == html.ElementNode {
			mergeText(c)
		}
		c = next
	}
}

// AddClass appends a class to an element if not already present.
func AddClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return
				}
			}
			n.Attr[i].Val = a.Val + " " + class
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

// RemoveClass removes a class from an element.
func RemoveClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			var kept []string
			for _, c := range strings.Fields(a.Val) {
				if c != class {
					kept = append(kept, c)
				}
			}
			n.Attr[i].Val = strings.Join(kept, " ")
			return
		}
	}
}

// HasClass reports whether an element carries a class.
func HasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}
