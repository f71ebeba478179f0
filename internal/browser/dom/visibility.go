// internal/browser/dom/visibility.go
package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/style"
)

var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"details":  true,
	"summary":  true,
	"option":   true,
	"label":    true,
}

var interactiveRoles = map[string]bool{
	"button":   true,
	"link":     true,
	"checkbox": true,
	"radio":    true,
	"menuitem": true,
	"tab":      true,
	"switch":   true,
	"option":   true,
	"combobox": true,
	"textbox":  true,
	"slider":   true,
}

// IsVisible reports whether el takes part in layout: it has an offset parent
// and its computed display and visibility are not "none" and "hidden".
func (f *Finder) IsVisible(el *html.Node) bool {
	if el == nil || el.Type != html.ElementNode {
		return false
	}
	visible := false
	f.doc.View(func(root *html.Node) {
		if !f.doc.attached(el) {
			return
		}
		engine := style.NewEngineForDocument(root)
		if !hasOffsetParent(engine, el) {
			return
		}
		cs := engine.Compute(el)
		visible = cs.Display() != "none" && cs.Visibility() != "hidden"
	})
	return visible
}

// hasOffsetParent mirrors HTMLElement.offsetParent being non-null.
func hasOffsetParent(engine *style.Engine, el *html.Node) bool {
	switch TagName(el) {
	case "html", "body":
		return false
	}
	if engine.Compute(el).Position() == "fixed" {
		return false
	}
	for n := el; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && engine.Compute(n).Display() == "none" {
			return false
		}
	}
	return true
}

// IsInteractive reports whether a user would expect el to respond to input.
func (f *Finder) IsInteractive(el *html.Node) bool {
	if el == nil || el.Type != html.ElementNode {
		return false
	}
	if interactiveTags[TagName(el)] {
		return true
	}
	if role, ok := GetAttr(el, "role"); ok && interactiveRoles[strings.ToLower(strings.TrimSpace(role))] {
		return true
	}
	if _, ok := GetAttr(el, "onclick"); ok || f.doc.HasListener(el, "click") {
		return true
	}

	pointer := false
	f.doc.View(func(root *html.Node) {
		pointer = style.NewEngineForDocument(root).Compute(el).Cursor() == "pointer"
	})
	return pointer
}
