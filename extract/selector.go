package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// The marker registry uses a small CSS subset, enough to express every
// platform's structural markers without a full selector engine:
//
//   - tag:            "div", "article"
//   - .class:         ".markdown"
//   - #id:            "#main"
//   - [attr]:         "[data-message-author-role]"
//   - [attr=val]:     "[data-testid=chat-message]"
//   - combinations:   "div.prose", "div[data-testid=x]"
//   - descendant:     "main div.prose" (space-separated)
//
// Results are always in document order.

type simpleSelector struct {
	tag     string
	class   string
	id      string
	attr    string
	attrVal string
	hasVal  bool
}

func parseSimpleSelector(sel string) simpleSelector {
	var m simpleSelector
	rest := sel

	if i := strings.IndexByte(rest, '['); i >= 0 {
		inner := strings.TrimSuffix(rest[i+1:], "]")
		if eq := strings.IndexByte(inner, '='); eq >= 0 {
			m.attr = inner[:eq]
			m.attrVal = strings.Trim(inner[eq+1:], `"'`)
			m.hasVal = true
		} else {
			m.attr = inner
		}
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		m.id = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		m.class = rest[i+1:]
		rest = rest[:i]
	}
	m.tag = rest
	return m
}

func matchesSelector(n *html.Node, m simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if m.tag != "" && n.Data != m.tag {
		return false
	}
	if m.id != "" && attrValue(n, "id") != m.id {
		return false
	}
	if m.class != "" && !hasClass(n, m.class) {
		return false
	}
	if m.attr != "" {
		val, ok := lookupAttr(n, m.attr)
		if !ok {
			return false
		}
		if m.hasVal && val != m.attrVal {
			return false
		}
	}
	return true
}

// querySelectorAll returns all nodes under root matching the selector,
// in document order. Space-separated parts are descendant combinators.
func querySelectorAll(root *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matchers := make([]simpleSelector, len(parts))
	for i, p := range parts {
		matchers[i] = parseSimpleSelector(p)
	}

	var results []*html.Node
	// ancestry tracks how many leading matchers are satisfied on the
	// current path from root.
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		d := depth
		if d < len(matchers) && matchesSelector(n, matchers[d]) {
			d++
			if d == len(matchers) {
				results = append(results, n)
				d-- // allow nested matches of the final part
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, d)
		}
	}
	walk(root, 0)
	return results
}

// querySelector returns the first match in document order, or nil.
func querySelector(root *html.Node, selector string) *html.Node {
	matches := querySelectorAll(root, selector)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// collectText gathers the visible text under a node, skipping script and
// style subtrees.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// renderNode serialises a node subtree back to HTML.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
