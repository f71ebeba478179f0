// internal/browser/dom/query.go
package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	labelableSelector = `input:not([type="hidden"]), select, textarea, button, meter, output, progress`
	buttonSelector    = `button, input[type="button"], input[type="submit"], input[type="reset"], input[type="image"], [role="button"]`
)

// FindAll returns every element matching a CSS selector, in document order.
func (f *Finder) FindAll(selector string) []*html.Node {
	sel, err := compileSelector(selector)
	if err != nil {
		f.logger.Debug("FindAll rejected selector.", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	var nodes []*html.Node
	f.doc.View(func(root *html.Node) {
		nodes = cascadia.QueryAll(root, sel)
	})
	return nodes
}

// FindByLabelText returns the form control bound to the first <label> whose
// text contains text, either through the label's for attribute or by nesting.
func (f *Finder) FindByLabelText(text string) *html.Node {
	needle := NormalizeText(text)
	if needle == "" {
		return nil
	}

	var found *html.Node
	f.doc.View(func(root *html.Node) {
		doc := goquery.NewDocumentFromNode(root)
		doc.Find("label").EachWithBreak(func(_ int, label *goquery.Selection) bool {
			if !strings.Contains(NormalizeText(label.Text()), needle) {
				return true
			}
			if id, ok := label.Attr("for"); ok && id != "" {
				found = elementByID(root, id)
			} else if control := label.Find(labelableSelector).First(); control.Length() > 0 {
				found = control.Get(0)
			}
			return found == nil
		})
	})
	return found
}

// FindByButtonText returns the first button-like element whose trimmed text
// or value attribute equals text.
func (f *Finder) FindByButtonText(text string) *html.Node {
	want := strings.TrimSpace(text)
	if want == "" {
		return nil
	}

	var found *html.Node
	f.doc.View(func(root *html.Node) {
		goquery.NewDocumentFromNode(root).Find(buttonSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value, _ := s.Attr("value")
			label := s.Text()
			if strings.TrimSpace(label) == want || NormalizeText(label) == want || strings.TrimSpace(value) == want {
				found = s.Get(0)
				return false
			}
			return true
		})
	})
	return found
}

// FindByPlaceholder returns the first element whose placeholder equals text.
func (f *Finder) FindByPlaceholder(text string) *html.Node {
	if text == "" {
		return nil
	}
	var found *html.Node
	f.doc.View(func(root *html.Node) {
		walkElements(root, false, func(el *html.Node) bool {
			if p, ok := GetAttr(el, "placeholder"); ok && p == text {
				found = el
				return false
			}
			return true
		})
	})
	return found
}

// FindClosestParent returns the nearest ancestor of el (el itself excluded)
// that matches selector.
func (f *Finder) FindClosestParent(el *html.Node, selector string) *html.Node {
	if el == nil {
		return nil
	}
	sel, err := compileSelector(selector)
	if err != nil {
		f.logger.Debug("FindClosestParent rejected selector.", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	var found *html.Node
	f.doc.View(func(*html.Node) {
		for p := el.Parent; p != nil; p = p.Parent {
			if p.Type == html.ElementNode && sel.Match(p) {
				found = p
				return
			}
		}
	})
	return found
}

// FindInContainer returns the first descendant of container matching
// selector. A nil container searches the whole document. The container may
// belong to a different tree, such as a parsed frame document.
func (f *Finder) FindInContainer(container *html.Node, selector string) *html.Node {
	sel, err := compileSelector(selector)
	if err != nil {
		f.logger.Debug("FindInContainer rejected selector.", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	var found *html.Node
	f.doc.View(func(root *html.Node) {
		if container == nil {
			container = root
		}
		found = cascadia.Query(container, sel)
	})
	return found
}

// QuerySelector returns the first element matching a CSS selector, stripping
// wrapping quotes the way the CSS strategy does. It bypasses the Finder's
// other strategies and its cache.
func (d *Document) QuerySelector(selector string) (*html.Node, error) {
	sel, err := compileSelector(selector)
	if err != nil {
		return nil, err
	}
	var found *html.Node
	d.View(func(root *html.Node) {
		found = cascadia.Query(root, sel)
	})
	return found, nil
}

func elementByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walkElements(root, false, func(el *html.Node) bool {
		if v, ok := GetAttr(el, "id"); ok && v == id {
			found = el
			return false
		}
		return true
	})
	return found
}
