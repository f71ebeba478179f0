// internal/browser/dom/finder.go
package dom

import (
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Strategy names the resolution step that produced a match.
type Strategy string

const (
	StrategyNone        Strategy = ""
	StrategyCache       Strategy = "cache"
	StrategyExactText   Strategy = "exact_text"
	StrategyCSS         Strategy = "css"
	StrategyAriaLabel   Strategy = "aria_label"
	StrategyXPath       Strategy = "xpath"
	StrategyPartialText Strategy = "partial_text"
)

// DefaultPollInterval is how often WaitFor re-runs resolution.
const DefaultPollInterval = 100 * time.Millisecond

type strategy struct {
	name Strategy
	find func(root *html.Node, descriptor string) (*html.Node, error)
}

// Finder resolves target descriptors against a Document. A descriptor may be
// visible text, a CSS selector, an aria-label, or an XPath expression; the
// strategies are tried in a fixed order and the first match wins. Successful
// resolutions are cached by descriptor and revalidated on every hit.
type Finder struct {
	doc          *Document
	logger       *zap.Logger
	cache        *resolutionCache
	cacheSize    int
	pollInterval time.Duration
	strategies   []strategy
}

// Option is a function that configures a Finder.
type Option func(*Finder)

// WithCacheSize bounds the number of cached descriptors.
func WithCacheSize(size int) Option {
	return func(f *Finder) {
		f.cacheSize = size
	}
}

// WithPollInterval changes how often WaitFor polls.
func WithPollInterval(interval time.Duration) Option {
	return func(f *Finder) {
		if interval > 0 {
			f.pollInterval = interval
		}
	}
}

// WithLogger sets the logger used for demoted strategy failures.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Finder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFinder creates a Finder bound to doc.
func NewFinder(doc *Document, opts ...Option) *Finder {
	f := &Finder{
		doc:          doc,
		logger:       zap.NewNop(),
		cacheSize:    DefaultCacheSize,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(zap.String("component", "finder"))
	f.cache = newResolutionCache(f.cacheSize)
	f.strategies = []strategy{
		{StrategyExactText, findExactText},
		{StrategyCSS, findCSS},
		{StrategyAriaLabel, findAriaLabel},
		{StrategyXPath, findXPath},
		{StrategyPartialText, findPartialText},
	}
	return f
}

// Document returns the document this finder resolves against.
func (f *Finder) Document() *Document {
	return f.doc
}

// Find resolves descriptor to an element, or nil when nothing matches.
func (f *Finder) Find(descriptor string) *html.Node {
	n, _ := f.Resolve(descriptor)
	return n
}

// Resolve is Find that also reports which strategy produced the match.
func (f *Finder) Resolve(descriptor string) (*html.Node, Strategy) {
	if descriptor == "" {
		return nil, StrategyNone
	}

	if cached, ok := f.cache.get(descriptor); ok {
		if f.doc.Contains(cached) {
			return cached, StrategyCache
		}
		f.logger.Debug("Evicting detached element from cache.", zap.String("descriptor", descriptor))
		f.cache.remove(descriptor)
	}

	var (
		found *html.Node
		used  = StrategyNone
	)
	f.doc.View(func(root *html.Node) {
		for _, s := range f.strategies {
			if n := f.try(s, root, descriptor); n != nil {
				found, used = n, s.name
				return
			}
		}
	})

	if found != nil {
		f.cache.put(descriptor, found)
	}
	return found, used
}

// try runs one strategy, demoting errors and panics to a miss.
func (f *Finder) try(s strategy, root *html.Node, descriptor string) (found *html.Node) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Debug("Resolution strategy panicked.",
				zap.String("strategy", string(s.name)),
				zap.String("descriptor", descriptor),
				zap.Any("panic", r))
			found = nil
		}
	}()

	n, err := s.find(root, descriptor)
	if err != nil {
		f.logger.Debug("Resolution strategy failed.",
			zap.String("strategy", string(s.name)),
			zap.String("descriptor", descriptor),
			zap.Error(err))
		return nil
	}
	return n
}

// ClearCache forgets every cached resolution.
func (f *Finder) ClearCache() {
	f.cache.clear()
}

// CacheStats reports the current and maximum cache size.
func (f *Finder) CacheStats() CacheStats {
	return f.cache.stats()
}

// CachedDescriptors lists cached descriptors, oldest first.
func (f *Finder) CachedDescriptors() []string {
	return f.cache.keys()
}

// -- Strategies --

func findExactText(root *html.Node, descriptor string) (*html.Node, error) {
	return findByText(root, func(text string) bool {
		return strings.TrimSpace(text) == descriptor || NormalizeText(text) == descriptor
	}), nil
}

func findPartialText(root *html.Node, descriptor string) (*html.Node, error) {
	needle := NormalizeText(descriptor)
	if needle == "" {
		return nil, nil
	}
	return findByText(root, func(text string) bool {
		return strings.Contains(NormalizeText(text), needle)
	}), nil
}

// findByText returns the innermost element whose rendered text satisfies
// match, preferring the first candidate in document order.
func findByText(root *html.Node, match func(string) bool) *html.Node {
	var outer *html.Node
	walkElements(root, true, func(el *html.Node) bool {
		if match(renderedText(el)) {
			outer = el
			return false
		}
		return true
	})
	if outer == nil {
		return nil
	}

	n := outer
	for {
		var next *html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && !nonRendered[TagName(c)] && match(renderedText(c)) {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

// renderedText is the text content of n excluding non-rendered subtrees.
func renderedText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if nonRendered[TagName(n)] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

func findCSS(root *html.Node, descriptor string) (*html.Node, error) {
	sel, err := compileSelector(descriptor)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(root, sel), nil
}

// compileSelector strips wrapping quote characters and compiles the rest.
func compileSelector(descriptor string) (cascadia.Selector, error) {
	selector := strings.TrimSpace(strings.Trim(descriptor, "'\"`"))
	if selector == "" {
		return nil, fmt.Errorf("empty selector")
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

func findAriaLabel(root *html.Node, descriptor string) (*html.Node, error) {
	var found *html.Node
	walkElements(root, false, func(el *html.Node) bool {
		if label, ok := GetAttr(el, "aria-label"); ok && label == descriptor {
			found = el
			return false
		}
		return true
	})
	return found, nil
}

func findXPath(root *html.Node, descriptor string) (*html.Node, error) {
	nodes, err := htmlquery.QueryAll(root, descriptor)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, nil
}
