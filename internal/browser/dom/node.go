// internal/browser/dom/node.go
package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// nonRendered elements never contribute matchable text.
var nonRendered = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// GetAttr returns the value of key on n and whether it is present.
func GetAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// SetAttr sets key on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	if n == nil {
		return
	}
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key from n.
func RemoveAttr(n *html.Node, key string) {
	if n == nil {
		return
	}
	attrs := n.Attr[:0]
	for _, attr := range n.Attr {
		if attr.Key != key {
			attrs = append(attrs, attr)
		}
	}
	n.Attr = attrs
}

// HasClass reports whether the class attribute of n contains class.
func HasClass(n *html.Node, class string) bool {
	val, _ := GetAttr(n, "class")
	for _, c := range strings.Fields(val) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class to n's class list if missing.
func AddClass(n *html.Node, class string) {
	if n == nil || HasClass(n, class) {
		return
	}
	val, _ := GetAttr(n, "class")
	SetAttr(n, "class", strings.TrimSpace(val+" "+class))
}

// RemoveClass removes class from n, dropping the attribute when it becomes empty.
func RemoveClass(n *html.Node, class string) {
	val, ok := GetAttr(n, "class")
	if !ok {
		return
	}
	var kept []string
	for _, c := range strings.Fields(val) {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// TagName returns the lower-cased tag of an element node, or "" for other node types.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	return htmlquery.InnerText(n)
}

// NormalizeText collapses runs of whitespace into single spaces and trims the ends.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsTextInput reports whether n is primarily used for text entry.
// Checkboxes, radios and buttons are click targets, not text inputs.
func IsTextInput(n *html.Node) bool {
	switch TagName(n) {
	case "input":
		inputType, _ := GetAttr(n, "type")
		switch strings.ToLower(inputType) {
		case "hidden", "submit", "button", "reset", "image", "checkbox", "radio":
			return false
		}
		return true
	case "textarea":
		return true
	}
	if val, ok := GetAttr(n, "contenteditable"); ok {
		val = strings.TrimSpace(strings.ToLower(val))
		return val == "true" || val == ""
	}
	return false
}

// walkElements visits element nodes under root in document order, skipping
// non-rendered subtrees when skipHidden is set. Returning false from fn stops the walk.
func walkElements(root *html.Node, skipHidden bool, fn func(*html.Node) bool) bool {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if skipHidden && nonRendered[TagName(c)] {
				continue
			}
			if !fn(c) {
				return false
			}
		}
		if !walkElements(c, skipHidden, fn) {
			return false
		}
	}
	return true
}

// isDescendant reports whether n is a strict descendant of ancestor.
func isDescendant(n, ancestor *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
