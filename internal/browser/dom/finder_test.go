package dom_test

import (
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
)

const finderHTML = `
	<html>
	<head><title>Login</title><script>var Save = 1;</script></head>
	<body>
		<div id="main">
			<span class="label">Save</span>
			<button id="save-btn" aria-label="Save changes">  Save
				draft </button>
			<p>Some <b>bold</b> text</p>
			<div id="wrap"><section><em>Only</em></section></div>
		</div>
	</body>
	</html>
	`

// setup parses markup into a document and a finder with a test logger.
func setup(t *testing.T, markup string, opts ...dom.Option) (*dom.Document, *dom.Finder) {
	t.Helper()
	doc, err := dom.ParseString(markup)
	require.NoError(t, err)
	opts = append([]dom.Option{dom.WithLogger(zaptest.NewLogger(t))}, opts...)
	return doc, dom.NewFinder(doc, opts...)
}

// byXPath fetches a node for assertions, failing the test if it is missing.
func byXPath(t *testing.T, doc *dom.Document, expr string) *html.Node {
	t.Helper()
	n := htmlquery.FindOne(doc.Root(), expr)
	require.NotNil(t, n, "test setup: nothing matches %s", expr)
	return n
}

func newElement(tag, id, text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	if id != "" {
		n.Attr = []html.Attribute{{Key: "id", Val: id}}
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}

func TestResolveStrategies(t *testing.T) {
	doc, finder := setup(t, finderHTML)

	tests := []struct {
		name       string
		descriptor string
		expected   string
		strategy   dom.Strategy
	}{
		{"Exact Text", "Save", "//span[@class='label']", dom.StrategyExactText},
		{"Normalized Text", "Save draft", "//button", dom.StrategyExactText},
		{"Innermost Exact Text", "Only", "//em", dom.StrategyExactText},
		{"Nested Inline Text", "bold", "//b", dom.StrategyExactText},
		{"CSS Selector", "#save-btn", "//button", dom.StrategyCSS},
		{"Quoted CSS Selector", `"#save-btn"`, "//button", dom.StrategyCSS},
		{"Backtick CSS Selector", "`div#wrap section`", "//section", dom.StrategyCSS},
		{"Aria Label", "Save changes", "//button", dom.StrategyAriaLabel},
		{"XPath", "//p/b", "//b", dom.StrategyXPath},
		{"Partial Text", "bold text", "//p", dom.StrategyPartialText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder.ClearCache()
			node, strategy := finder.Resolve(tt.descriptor)
			require.NotNil(t, node)
			assert.Equal(t, byXPath(t, doc, tt.expected), node)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestFindTextBeatsSelector(t *testing.T) {
	doc, finder := setup(t, `<html><body><p>div</p><div id="d">x</div></body></html>`)

	node, strategy := finder.Resolve("div")
	assert.Equal(t, byXPath(t, doc, "//p"), node)
	assert.Equal(t, dom.StrategyExactText, strategy)
}

func TestFindMisses(t *testing.T) {
	_, finder := setup(t, finderHTML)

	tests := []struct {
		name       string
		descriptor string
	}{
		{"Empty", ""},
		{"Head Text Is Skipped", "Login"},
		{"Script Text Is Skipped", "var Save = 1;"},
		{"Missing Id", "#missing"},
		{"Malformed Selector And XPath", "div[[ (("},
		{"Unbalanced XPath", "//p[@id='x'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Nil(t, finder.Find(tt.descriptor))
			})
		})
	}
	assert.Zero(t, finder.CacheStats().Size, "misses are never cached")
}

func TestFindOnElementFreeDocument(t *testing.T) {
	finder := dom.NewFinder(dom.NewDocument(nil))
	assert.Nil(t, finder.Find("#missing"))
}

func TestCacheRevalidatesDetachedNodes(t *testing.T) {
	doc, finder := setup(t, `<html><body><div id="box"><span id="late">old</span></div></body></html>`)

	first, strategy := finder.Resolve("#late")
	require.NotNil(t, first)
	assert.Equal(t, dom.StrategyCSS, strategy)

	cached, strategy := finder.Resolve("#late")
	assert.Same(t, first, cached)
	assert.Equal(t, dom.StrategyCache, strategy)

	replacement := newElement("span", "late", "new")
	doc.Update(func(root *html.Node) {
		box := first.Parent
		box.RemoveChild(first)
		box.AppendChild(replacement)
	})
	require.False(t, doc.Contains(first))

	second, strategy := finder.Resolve("#late")
	assert.Same(t, replacement, second)
	assert.Equal(t, dom.StrategyCSS, strategy, "a detached hit must trigger full resolution")
}

func TestCacheIsBoundedFIFO(t *testing.T) {
	_, finder := setup(t, `<html><body><i id="a"></i><i id="b"></i><i id="c"></i></body></html>`,
		dom.WithCacheSize(2))

	require.NotNil(t, finder.Find("#a"))
	require.NotNil(t, finder.Find("#b"))
	assert.Equal(t, dom.CacheStats{Size: 2, MaxSize: 2}, finder.CacheStats())

	// A hit does not refresh the entry's position.
	_, strategy := finder.Resolve("#a")
	assert.Equal(t, dom.StrategyCache, strategy)

	require.NotNil(t, finder.Find("#c"))
	assert.Equal(t, []string{"#b", "#c"}, finder.CachedDescriptors())
	assert.Equal(t, 2, finder.CacheStats().Size)

	_, strategy = finder.Resolve("#a")
	assert.Equal(t, dom.StrategyCSS, strategy)
	assert.Equal(t, []string{"#c", "#a"}, finder.CachedDescriptors())

	finder.ClearCache()
	assert.Equal(t, dom.CacheStats{Size: 0, MaxSize: 2}, finder.CacheStats())
}

func TestDefaultCacheSize(t *testing.T) {
	_, finder := setup(t, `<html><body></body></html>`)
	assert.Equal(t, dom.DefaultCacheSize, finder.CacheStats().MaxSize)

	_, finder = setup(t, `<html><body></body></html>`, dom.WithCacheSize(0))
	assert.Equal(t, dom.DefaultCacheSize, finder.CacheStats().MaxSize)
}
