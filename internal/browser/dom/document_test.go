package dom_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
)

const controlsHTML = `
	<html><body>
		<form id="f">
			<input id="agree" type="checkbox">
			<input id="r1" type="radio" name="size" value="s" checked>
			<input id="r2" type="radio" name="size" value="m">
			<input id="name" name="name">
			<textarea id="bio">old</textarea>
			<select id="color">
				<option value="r">Red</option>
				<option selected>Green</option>
				<option value="b">Blue</option>
			</select>
			<button id="send">Send</button>
			<button id="plain" type="button">Plain</button>
		</form>
		<input id="outside" type="submit" form="f">
		<div id="scroller"></div>
	</body></html>
	`

func record(doc *dom.Document, n *html.Node, types ...string) *[]string {
	var seen []string
	for _, eventType := range types {
		doc.AddEventListener(n, eventType, func(ev *dom.Event) {
			seen = append(seen, ev.Type+"@"+idOf(ev.Target))
		})
	}
	return &seen
}

func idOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.DocumentNode {
		return "#document"
	}
	id, _ := dom.GetAttr(n, "id")
	return id
}

func checked(n *html.Node) bool {
	_, ok := dom.GetAttr(n, "checked")
	return ok
}

func TestDispatchBubbles(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	name := byXPath(t, doc, "//input[@id='name']")
	form := byXPath(t, doc, "//form")

	var order []string
	doc.AddEventListener(name, "custom", func(ev *dom.Event) { order = append(order, "target:"+idOf(ev.CurrentTarget)) })
	doc.AddEventListener(form, "custom", func(ev *dom.Event) { order = append(order, "form:"+idOf(ev.CurrentTarget)) })
	doc.AddEventListener(doc.Root(), "custom", func(ev *dom.Event) { order = append(order, "doc:"+idOf(ev.CurrentTarget)) })

	assert.True(t, doc.Dispatch(dom.NewEvent("custom", name)))
	assert.Equal(t, []string{"target:name", "form:f", "doc:#document"}, order)

	order = nil
	ev := dom.NewEvent("custom", name)
	ev.Bubbles = false
	doc.Dispatch(ev)
	assert.Equal(t, []string{"target:name"}, order)
	assert.Nil(t, ev.CurrentTarget)
}

func TestDispatchStopAndPrevent(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	name := byXPath(t, doc, "//input[@id='name']")

	reachedDoc := false
	doc.AddEventListener(doc.Root(), "custom", func(*dom.Event) { reachedDoc = true })
	remove := doc.AddEventListener(name, "custom", func(ev *dom.Event) {
		ev.StopPropagation()
		ev.PreventDefault()
	})

	assert.False(t, doc.Dispatch(dom.NewEvent("custom", name)))
	assert.False(t, reachedDoc)

	remove()
	assert.True(t, doc.Dispatch(dom.NewEvent("custom", name)))
	assert.True(t, reachedDoc)

	uncancelable := dom.NewEvent("custom", name)
	uncancelable.Cancelable = false
	doc.AddEventListener(name, "custom", func(ev *dom.Event) { ev.PreventDefault() })
	assert.True(t, doc.Dispatch(uncancelable))
}

func TestListenersMayMutateTheDocument(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	name := byXPath(t, doc, "//input[@id='name']")

	doc.AddEventListener(name, "custom", func(ev *dom.Event) {
		doc.Update(func(*html.Node) { dom.SetAttr(ev.Target, "data-seen", "1") })
	})
	doc.Dispatch(dom.NewEvent("custom", name))

	v, ok := dom.GetAttr(name, "data-seen")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestClickCheckbox(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	agree := byXPath(t, doc, "//input[@id='agree']")
	seen := record(doc, agree, "click", "input", "change")

	assert.True(t, doc.Click(agree))
	assert.True(t, checked(agree))
	assert.Equal(t, []string{"click@agree", "input@agree", "change@agree"}, *seen)

	assert.True(t, doc.Click(agree))
	assert.False(t, checked(agree))

	// A canceled click reverts the toggle.
	doc.AddEventListener(agree, "click", func(ev *dom.Event) { ev.PreventDefault() })
	assert.False(t, doc.Click(agree))
	assert.False(t, checked(agree))
}

func TestClickRadio(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	r1 := byXPath(t, doc, "//input[@id='r1']")
	r2 := byXPath(t, doc, "//input[@id='r2']")
	seen := record(doc, r2, "change")

	assert.True(t, doc.Click(r2))
	assert.True(t, checked(r2))
	assert.False(t, checked(r1))
	assert.Equal(t, []string{"change@r2"}, *seen)

	assert.True(t, doc.Click(r2))
	assert.True(t, checked(r2), "clicking a checked radio keeps it checked")
	assert.Len(t, *seen, 1, "no change event when the state did not change")

	doc.AddEventListener(r1, "click", func(ev *dom.Event) { ev.PreventDefault() })
	assert.False(t, doc.Click(r1))
	assert.True(t, checked(r2))
	assert.False(t, checked(r1))
}

func TestClickSubmits(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	form := byXPath(t, doc, "//form")
	submits := record(doc, form, "submit")

	doc.Click(byXPath(t, doc, "//button[@id='send']"))
	assert.Equal(t, []string{"submit@f"}, *submits)

	doc.Click(byXPath(t, doc, "//button[@id='plain']"))
	assert.Len(t, *submits, 1, "type=button does not submit")

	doc.Click(byXPath(t, doc, "//input[@id='outside']"))
	assert.Len(t, *submits, 2, "form attribute associates the control")

	send := byXPath(t, doc, "//button[@id='send']")
	doc.AddEventListener(send, "click", func(ev *dom.Event) { ev.PreventDefault() })
	doc.Click(send)
	assert.Len(t, *submits, 2, "canceled click does not submit")
}

func TestSetValue(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	name := byXPath(t, doc, "//input[@id='name']")
	bio := byXPath(t, doc, "//textarea")
	seen := record(doc, doc.Root(), "input", "change")

	doc.SetValue(name, "Ada")
	assert.Equal(t, "Ada", doc.Value(name))
	doc.SetValue(bio, "new bio")
	assert.Equal(t, "new bio", doc.Value(bio))
	doc.SetValue(bio, "")
	assert.Equal(t, "", doc.Value(bio))

	assert.Equal(t, []string{
		"input@name", "change@name",
		"input@bio", "change@bio",
		"input@bio", "change@bio",
	}, *seen)
}

func TestSelectOption(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	sel := byXPath(t, doc, "//select")
	seen := record(doc, sel, "change")

	assert.Equal(t, "Green", doc.Value(sel))

	assert.True(t, doc.SelectOption(sel, "b"))
	assert.Equal(t, "b", doc.Value(sel))

	assert.True(t, doc.SelectOption(sel, "Red"), "falls back to option text")
	assert.Equal(t, "r", doc.Value(sel))

	assert.False(t, doc.SelectOption(sel, "purple"))
	assert.Equal(t, "r", doc.Value(sel), "with nothing selected the first option is the value")
	assert.Len(t, *seen, 3)
}

func TestScroll(t *testing.T) {
	doc, _ := setup(t, controlsHTML)
	scroller := byXPath(t, doc, "//div[@id='scroller']")
	seen := record(doc, doc.Root(), "scroll")

	doc.ScrollBy(0, 300)
	doc.ScrollBy(0, -100)
	x, y := doc.ScrollPosition()
	assert.Equal(t, 0, x)
	assert.Equal(t, 200, y)

	doc.ScrollBy(0, -1000)
	_, y = doc.ScrollPosition()
	assert.Equal(t, 0, y)

	doc.ScrollElementBy(scroller, 50)
	assert.Equal(t, 50, doc.ElementScrollTop(scroller))
	assert.Len(t, *seen, 3, "element scroll events do not bubble")
}

func TestRender(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(`<p id="x">hi</p>`))
	require.NoError(t, err)
	assert.Contains(t, doc.String(), `<p id="x">hi</p>`)
	assert.NotNil(t, doc.Body())
}

func TestNodeHelpers(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "div"}

	dom.AddClass(n, "a")
	dom.AddClass(n, "b")
	dom.AddClass(n, "a")
	v, _ := dom.GetAttr(n, "class")
	assert.Equal(t, "a b", v)
	assert.True(t, dom.HasClass(n, "b"))

	dom.RemoveClass(n, "a")
	dom.RemoveClass(n, "b")
	_, ok := dom.GetAttr(n, "class")
	assert.False(t, ok, "empty class attribute is removed")

	assert.Equal(t, "a b c", dom.NormalizeText("  a\n\tb   c "))
	assert.Equal(t, "div", dom.TagName(n))
	assert.Equal(t, "", dom.TagName(nil))
}

func TestIsTextInput(t *testing.T) {
	doc, _ := setup(t, `<html><body>
		<input id="text"><input id="email" type="email"><input id="cb" type="checkbox">
		<textarea id="ta"></textarea><div id="ce" contenteditable></div><div id="plain"></div>
	</body></html>`)

	tests := map[string]bool{"text": true, "email": true, "cb": false, "ta": true, "ce": true, "plain": false}
	for id, expected := range tests {
		assert.Equal(t, expected, dom.IsTextInput(byXPath(t, doc, "//*[@id='"+id+"']")), id)
	}
}
