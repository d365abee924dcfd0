// Package dom provides small query helpers over golang.org/x/net/html
// parse trees. Selectors in this project are either attribute-based
// (data-tid style markers) or legacy class-based, so only those two
// lookup shapes are implemented.
package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parse parses a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseString parses an HTML document held in memory.
func ParseString(markup string) (*html.Node, error) {
	return html.Parse(strings.NewReader(markup))
}

// Attr returns the value of the named attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether the element's class list contains name.
func HasClass(n *html.Node, name string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == name {
			return true
		}
	}
	return false
}

// FindByAttr returns the first element (depth-first) whose attribute key
// equals val, or nil.
func FindByAttr(root *html.Node, key, val string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if Attr(n, key) == val {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAllByAttr returns every element whose attribute key equals val, in
// document order.
func FindAllByAttr(root *html.Node, key, val string) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if Attr(n, key) == val {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindByClass returns the first element carrying the class, or nil.
func FindByClass(root *html.Node, name string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if HasClass(n, name) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAllByClass returns every element carrying the class, in document order.
func FindAllByClass(root *html.Node, name string) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if HasClass(n, name) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindByID returns the first element with the given id attribute, or nil.
func FindByID(root *html.Node, id string) *html.Node {
	return FindByAttr(root, "id", id)
}

// Text returns the concatenated text content of the subtree, the way
// innerText collapses it: text nodes joined as-is, then trimmed.
func Text(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.TrimSpace(sb.String())
}

// walk visits element nodes depth-first. Returning false from fn stops
// the traversal.
func walk(root *html.Node, fn func(*html.Node) bool) {
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if !fn(n) {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(root)
}
