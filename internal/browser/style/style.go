// internal/browser/style/style.go
package style

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/parser"
)

// DefaultUserAgentCSS covers only the properties the engine resolves:
// display, visibility, cursor and position.
const DefaultUserAgentCSS = `
html, body, address, article, aside, blockquote, details, dialog, dd, div, dl, dt,
fieldset, figcaption, figure, footer, form, h1, h2, h3, h4, h5, h6, header, hr,
legend, main, nav, ol, p, pre, section, summary, table, ul {
    display: block;
}
li { display: list-item; }
head, script, style, template, title, meta, link, noscript, base, datalist {
    display: none;
}
[hidden], input[type="hidden"] { display: none; }
button, input, select, textarea { display: inline-block; }
a[href] { cursor: pointer; }
`

// inherited lists the resolved properties that inherit from the parent element.
var inherited = map[parser.Property]bool{
	"visibility":     true,
	"cursor":         true,
	"pointer-events": true,
}

var initialValues = map[parser.Property]string{
	"display":        "inline",
	"visibility":     "visible",
	"cursor":         "auto",
	"position":       "static",
	"pointer-events": "auto",
}

type StyleOrigin int

const (
	OriginUserAgent StyleOrigin = iota
	OriginAuthor
	OriginInline
)

type compiledRule struct {
	selectors    cascadia.SelectorGroup
	declarations []parser.Declaration
}

type declarationWithContext struct {
	declaration parser.Declaration
	specificity cascadia.Specificity
	origin      StyleOrigin
	order       int
}

// Engine resolves the cascade for a single document snapshot. It is not safe
// for concurrent use and should be rebuilt after the document's stylesheets change.
type Engine struct {
	userAgentRules []compiledRule
	authorRules    []compiledRule
	computed       map[*html.Node]*ComputedStyle
}

// NewEngine creates an engine preloaded with the default user agent stylesheet.
func NewEngine() *Engine {
	se := &Engine{computed: make(map[*html.Node]*ComputedStyle)}
	se.userAgentRules = compileSheet(parser.NewParser(DefaultUserAgentCSS).Parse())
	return se
}

// NewEngineForDocument creates an engine and registers every <style> element under root.
func NewEngineForDocument(root *html.Node) *Engine {
	se := NewEngine()
	if root == nil {
		return se
	}
	goquery.NewDocumentFromNode(root).Find("style").Each(func(_ int, s *goquery.Selection) {
		se.AddAuthorSheet(parser.NewParser(s.Text()).Parse())
	})
	return se
}

// AddAuthorSheet adds a stylesheet provided by the page. Rules whose selectors
// fail to compile are dropped, as a browser would.
func (se *Engine) AddAuthorSheet(sheet parser.StyleSheet) {
	se.authorRules = append(se.authorRules, compileSheet(sheet)...)
	se.computed = make(map[*html.Node]*ComputedStyle)
}

func compileSheet(sheet parser.StyleSheet) []compiledRule {
	rules := make([]compiledRule, 0, len(sheet.Rules))
	for _, rule := range sheet.Rules {
		group, err := cascadia.ParseGroup(rule.Selector)
		if err != nil || len(group) == 0 {
			continue
		}
		rules = append(rules, compiledRule{selectors: group, declarations: rule.Declarations})
	}
	return rules
}

// CalculateStyles returns the cascaded (not inherited) declarations for node.
func (se *Engine) CalculateStyles(node *html.Node) map[parser.Property]string {
	var declarations []declarationWithContext
	order := 0

	processRules := func(rules []compiledRule, origin StyleOrigin) {
		for _, rule := range rules {
			spec, ok := bestMatch(rule.selectors, node)
			if !ok {
				continue
			}
			for _, decl := range rule.declarations {
				declarations = append(declarations, declarationWithContext{
					declaration: decl,
					specificity: spec,
					origin:      origin,
					order:       order,
				})
				order++
			}
		}
	}

	processRules(se.userAgentRules, OriginUserAgent)
	processRules(se.authorRules, OriginAuthor)

	for _, attr := range node.Attr {
		if attr.Key != "style" {
			continue
		}
		for _, decl := range parser.ParseInline(attr.Val) {
			declarations = append(declarations, declarationWithContext{
				declaration: decl,
				specificity: cascadia.Specificity{1, 0, 0},
				origin:      OriginInline,
				order:       order,
			})
			order++
		}
	}

	sort.SliceStable(declarations, func(i, j int) bool {
		d1, d2 := declarations[i], declarations[j]
		p1, p2 := cascadePriority(d1), cascadePriority(d2)
		if p1 != p2 {
			return p1 < p2
		}
		if d1.specificity != d2.specificity {
			return d1.specificity.Less(d2.specificity)
		}
		return d1.order < d2.order
	})

	styles := make(map[parser.Property]string, len(declarations))
	for _, dc := range declarations {
		styles[dc.declaration.Property] = strings.ToLower(strings.TrimSpace(dc.declaration.Value))
	}
	return styles
}

// bestMatch returns the highest specificity among the selectors in group that match node.
func bestMatch(group cascadia.SelectorGroup, node *html.Node) (cascadia.Specificity, bool) {
	var best cascadia.Specificity
	matched := false
	for _, sel := range group {
		if sel.PseudoElement() != "" || !sel.Match(node) {
			continue
		}
		spec := sel.Specificity()
		if !matched || best.Less(spec) {
			best = spec
		}
		matched = true
	}
	return best, matched
}

func cascadePriority(d declarationWithContext) int {
	important := d.declaration.Important
	switch d.origin {
	case OriginUserAgent:
		if important {
			return 5
		}
		return 1
	case OriginAuthor:
		if important {
			return 4
		}
		return 2
	case OriginInline:
		if important {
			return 4
		}
		return 3
	}
	return 0
}

// ComputedStyle holds the resolved values for one element.
type ComputedStyle struct {
	values map[parser.Property]string
}

// Lookup returns the computed value of property, or fallback when unresolved.
func (cs *ComputedStyle) Lookup(property, fallback string) string {
	if cs == nil {
		return fallback
	}
	if v, ok := cs.values[parser.Property(property)]; ok && v != "" {
		return v
	}
	return fallback
}

func (cs *ComputedStyle) Display() string { return cs.Lookup("display", initialValues["display"]) }
func (cs *ComputedStyle) Visibility() string {
	return cs.Lookup("visibility", initialValues["visibility"])
}
func (cs *ComputedStyle) Cursor() string   { return cs.Lookup("cursor", initialValues["cursor"]) }
func (cs *ComputedStyle) Position() string { return cs.Lookup("position", initialValues["position"]) }

// Compute resolves the cascade and inheritance for node. Results are memoized per engine.
func (se *Engine) Compute(node *html.Node) *ComputedStyle {
	if node == nil || node.Type != html.ElementNode {
		return rootStyle()
	}
	if cs, ok := se.computed[node]; ok {
		return cs
	}

	parentStyle := rootStyle()
	for p := node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			parentStyle = se.Compute(p)
			break
		}
	}

	declared := se.CalculateStyles(node)
	values := make(map[parser.Property]string, len(initialValues))
	for prop, initial := range initialValues {
		v, ok := declared[prop]
		switch {
		case ok && v == "inherit":
			values[prop] = parentStyle.values[prop]
		case ok && (v == "initial" || v == "unset" && !inherited[prop]):
			values[prop] = initial
		case ok && v != "unset":
			values[prop] = v
		case inherited[prop]:
			values[prop] = parentStyle.values[prop]
		default:
			values[prop] = initial
		}
	}

	cs := &ComputedStyle{values: values}
	se.computed[node] = cs
	return cs
}

func rootStyle() *ComputedStyle {
	values := make(map[parser.Property]string, len(initialValues))
	for k, v := range initialValues {
		values[k] = v
	}
	return &ComputedStyle{values: values}
}
