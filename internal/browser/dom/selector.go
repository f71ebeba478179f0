// internal/browser/dom/selector.go
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// GenerateSelector builds a CSS path for el that resolves back to it through
// FindAll. The nearest id on el or an ancestor anchors the path; below it each
// step is the tag name, qualified with :nth-of-type when same-tag siblings
// precede the element.
func (f *Finder) GenerateSelector(el *html.Node) string {
	var selector string
	f.doc.View(func(*html.Node) {
		selector = CSSPath(el)
	})
	return selector
}

// GenerateXPath is the XPath counterpart of GenerateSelector.
func (f *Finder) GenerateXPath(el *html.Node) string {
	var xpath string
	f.doc.View(func(*html.Node) {
		xpath = XPath(el)
	})
	return xpath
}

// CSSPath computes the selector GenerateSelector returns, without locking.
func CSSPath(el *html.Node) string {
	var parts []string
	for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if id, ok := GetAttr(n, "id"); ok && id != "" {
			parts = append(parts, idSelector(id))
			break
		}
		step := TagName(n)
		if idx := sameTagIndex(n); idx > 1 {
			step = fmt.Sprintf("%s:nth-of-type(%d)", step, idx)
		}
		parts = append(parts, step)
	}
	reverse(parts)
	return strings.Join(parts, " > ")
}

// XPath computes an absolute XPath for el, anchored at the nearest id.
func XPath(el *html.Node) string {
	if el == nil {
		return ""
	}

	var path []string
	for n := el; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if id, ok := GetAttr(n, "id"); ok && id != "" {
			path = append(path, fmt.Sprintf("//*[@id=%s]", xpathLiteral(id)))
			break
		}
		path = append(path, fmt.Sprintf("%s[%d]", TagName(n), sameTagIndex(n)))
	}
	if len(path) == 0 {
		return "/"
	}

	reverse(path)
	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//") {
		xpath = "/" + xpath
	}
	return xpath
}

// sameTagIndex is the 1-based position of n among its same-tag siblings.
func sameTagIndex(n *html.Node) int {
	tag := TagName(n)
	index := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if TagName(prev) == tag {
			index++
		}
	}
	return index
}

func idSelector(id string) string {
	if isPlainIdentifier(id) {
		return "#" + id
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id)
	return `[id="` + escaped + `"]`
}

// isPlainIdentifier reports whether id can be written as #id without escaping.
func isPlainIdentifier(id string) bool {
	if id == "" {
		return false
	}
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case (r >= '0' && r <= '9') || r == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// xpathLiteral quotes s for use in an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
