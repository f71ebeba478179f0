// internal/browser/dom/document.go
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document owns a parsed HTML tree together with the state a page keeps
// outside the markup: event listeners and scroll offsets.
//
// Tree reads go through View and writes through Update. Event listeners are
// always invoked with no lock held so they may call back into the document.
type Document struct {
	mu   sync.RWMutex
	root *html.Node

	listenerMu sync.Mutex
	listeners  map[*html.Node]map[string][]listenerEntry
	nextID     int

	scrollX, scrollY int
	elementScroll    map[*html.Node]int
}

// Listener handles a dispatched event.
type Listener func(ev *Event)

type listenerEntry struct {
	id int
	fn Listener
}

// NewDocument wraps an existing node tree. A nil root yields an empty document.
func NewDocument(root *html.Node) *Document {
	if root == nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	return &Document{
		root:          root,
		listeners:     make(map[*html.Node]map[string][]listenerEntry),
		elementScroll: make(map[*html.Node]int),
	}
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node. Callers that traverse it must do so inside View or Update.
func (d *Document) Root() *html.Node {
	return d.root
}

// View runs fn with the tree locked for reading.
func (d *Document) View(fn func(root *html.Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.root)
}

// Update runs fn with the tree locked for writing.
func (d *Document) Update(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Contains reports whether n is still attached to the document tree.
func (d *Document) Contains(n *html.Node) bool {
	if n == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.attached(n)
}

func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// Body returns the <body> element, or nil if the document has none.
func (d *Document) Body() *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return htmlquery.FindOne(d.root, "//body")
}

// Render serializes the current tree.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String returns the serialized document.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// -- Events --

// Event is a synthetic DOM event. Only the fields the replay engine needs are modeled.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Bubbles       bool
	Cancelable    bool
	// Button follows MouseEvent.button: 0 primary, 2 secondary.
	Button int
	// Detail follows UIEvent.detail: the click count for mouse events.
	Detail int

	defaultPrevented bool
	stopped          bool
}

// NewEvent creates a bubbling, cancelable event of the given type.
func NewEvent(eventType string, target *html.Node) *Event {
	return &Event{Type: eventType, Target: target, Bubbles: true, Cancelable: true}
}

func (e *Event) PreventDefault() {
	if e.Cancelable {
		e.defaultPrevented = true
	}
}

func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

func (e *Event) StopPropagation() { e.stopped = true }

// AddEventListener registers fn for events of eventType reaching n, either as
// target or while bubbling. Listeners on the document node observe every
// bubbling event. The returned func removes the registration.
func (d *Document) AddEventListener(n *html.Node, eventType string, fn Listener) (remove func()) {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()

	d.nextID++
	id := d.nextID
	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string][]listenerEntry)
		d.listeners[n] = byType
	}
	byType[eventType] = append(byType[eventType], listenerEntry{id: id, fn: fn})

	return func() {
		d.listenerMu.Lock()
		defer d.listenerMu.Unlock()
		entries := d.listeners[n][eventType]
		for i, e := range entries {
			if e.id == id {
				d.listeners[n][eventType] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// HasListener reports whether n itself has a listener for eventType.
func (d *Document) HasListener(n *html.Node, eventType string) bool {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()
	return len(d.listeners[n][eventType]) > 0
}

func (d *Document) listenersFor(n *html.Node, eventType string) []listenerEntry {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()
	entries := d.listeners[n][eventType]
	if len(entries) == 0 {
		return nil
	}
	return append([]listenerEntry(nil), entries...)
}

// Dispatch delivers ev to its target and, if it bubbles, to every ancestor up
// to the document node. It returns false if a listener called PreventDefault.
func (d *Document) Dispatch(ev *Event) bool {
	if ev == nil || ev.Target == nil {
		return true
	}

	// The propagation path is fixed before any listener runs.
	var path []*html.Node
	d.View(func(*html.Node) {
		for n := ev.Target; n != nil; n = n.Parent {
			path = append(path, n)
			if !ev.Bubbles {
				break
			}
		}
	})

	for _, n := range path {
		ev.CurrentTarget = n
		for _, entry := range d.listenersFor(n, ev.Type) {
			entry.fn(ev)
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

// -- Default actions --

// Click dispatches a click on n and performs its activation behavior:
// checkboxes and radios change state, submit buttons submit their form.
// It returns false if the click was canceled.
func (d *Document) Click(n *html.Node) bool {
	var (
		kind       = activationKind(n)
		wasChecked bool
		restore    func()
	)

	if kind == activationCheckbox || kind == activationRadio {
		d.Update(func(*html.Node) {
			_, wasChecked = GetAttr(n, "checked")
			restore = d.setChecked(n, kind, wasChecked)
		})
	}

	ev := NewEvent("click", n)
	ev.Detail = 1
	if !d.Dispatch(ev) {
		if restore != nil {
			d.Update(func(*html.Node) { restore() })
		}
		return false
	}

	switch kind {
	case activationCheckbox, activationRadio:
		if kind == activationCheckbox || !wasChecked {
			d.Dispatch(NewEvent("input", n))
			d.Dispatch(NewEvent("change", n))
		}
	case activationSubmit:
		var form *html.Node
		d.View(func(*html.Node) { form = formOwner(n) })
		if form != nil {
			d.Dispatch(NewEvent("submit", form))
		}
	}
	return true
}

type activation int

const (
	activationNone activation = iota
	activationCheckbox
	activationRadio
	activationSubmit
)

func activationKind(n *html.Node) activation {
	switch TagName(n) {
	case "input":
		inputType, _ := GetAttr(n, "type")
		switch strings.ToLower(inputType) {
		case "checkbox":
			return activationCheckbox
		case "radio":
			return activationRadio
		case "submit", "image":
			return activationSubmit
		}
	case "button":
		buttonType, ok := GetAttr(n, "type")
		if !ok || strings.EqualFold(buttonType, "submit") || buttonType == "" {
			return activationSubmit
		}
	}
	return activationNone
}

// setChecked applies the pre-activation state change and returns a func that undoes it.
// Must be called with the write lock held.
func (d *Document) setChecked(n *html.Node, kind activation, wasChecked bool) func() {
	if kind == activationCheckbox {
		if wasChecked {
			RemoveAttr(n, "checked")
		} else {
			SetAttr(n, "checked", "")
		}
		return func() {
			if wasChecked {
				SetAttr(n, "checked", "")
			} else {
				RemoveAttr(n, "checked")
			}
		}
	}

	// Radio: checking one unchecks the rest of its group.
	var previous []*html.Node
	name, _ := GetAttr(n, "name")
	if name != "" {
		scope := formOwner(n)
		if scope == nil {
			scope = d.root
		}
		walkElements(scope, false, func(el *html.Node) bool {
			if el == n || TagName(el) != "input" {
				return true
			}
			elType, _ := GetAttr(el, "type")
			elName, _ := GetAttr(el, "name")
			if strings.EqualFold(elType, "radio") && elName == name {
				if _, checked := GetAttr(el, "checked"); checked {
					previous = append(previous, el)
					RemoveAttr(el, "checked")
				}
			}
			return true
		})
	}
	SetAttr(n, "checked", "")
	return func() {
		if !wasChecked {
			RemoveAttr(n, "checked")
		}
		for _, el := range previous {
			SetAttr(el, "checked", "")
		}
	}
}

// formOwner returns the form n belongs to: the form named by its form
// attribute, or its nearest <form> ancestor.
func formOwner(n *html.Node) *html.Node {
	if id, ok := GetAttr(n, "form"); ok && id != "" {
		root := n
		for root.Parent != nil {
			root = root.Parent
		}
		var found *html.Node
		walkElements(root, false, func(el *html.Node) bool {
			if TagName(el) == "form" {
				if elID, _ := GetAttr(el, "id"); elID == id {
					found = el
					return false
				}
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if TagName(p) == "form" {
			return p
		}
	}
	return nil
}

// SetValue assigns value to a form control, then dispatches input and change.
// Textareas and contenteditable elements receive the value as their text content.
func (d *Document) SetValue(n *html.Node, value string) {
	d.Update(func(*html.Node) {
		if TagName(n) == "input" || TagName(n) == "select" {
			SetAttr(n, "value", value)
			return
		}
		setText(n, value)
	})
	d.Dispatch(NewEvent("input", n))
	d.Dispatch(NewEvent("change", n))
}

// Value returns the current value of a form control.
func (d *Document) Value(n *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	switch TagName(n) {
	case "input":
		v, _ := GetAttr(n, "value")
		return v
	case "select":
		for _, opt := range options(n) {
			if _, ok := GetAttr(opt, "selected"); ok {
				return optionValue(opt)
			}
		}
		if opts := options(n); len(opts) > 0 {
			return optionValue(opts[0])
		}
		return ""
	}
	return TextContent(n)
}

// SelectOption marks the option of a <select> whose value, or failing that
// trimmed text, equals value as selected and clears the rest, then dispatches
// change. It reports whether a matching option existed; with no match every
// option ends up unselected.
func (d *Document) SelectOption(n *html.Node, value string) bool {
	matched := false
	d.Update(func(*html.Node) {
		opts := options(n)
		var pick *html.Node
		for _, opt := range opts {
			if optionValue(opt) == value {
				pick = opt
				break
			}
		}
		if pick == nil {
			for _, opt := range opts {
				if strings.TrimSpace(TextContent(opt)) == value {
					pick = opt
					break
				}
			}
		}
		for _, opt := range opts {
			if opt == pick {
				SetAttr(opt, "selected", "")
			} else {
				RemoveAttr(opt, "selected")
			}
		}
		matched = pick != nil
	})
	d.Dispatch(NewEvent("input", n))
	d.Dispatch(NewEvent("change", n))
	return matched
}

func options(sel *html.Node) []*html.Node {
	var opts []*html.Node
	walkElements(sel, false, func(el *html.Node) bool {
		if TagName(el) == "option" {
			opts = append(opts, el)
		}
		return true
	})
	return opts
}

func optionValue(opt *html.Node) string {
	if v, ok := GetAttr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(TextContent(opt))
}

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// -- Scrolling --

// ScrollBy moves the window viewport. Offsets never go negative.
func (d *Document) ScrollBy(dx, dy int) {
	d.mu.Lock()
	d.scrollX = max(d.scrollX+dx, 0)
	d.scrollY = max(d.scrollY+dy, 0)
	d.mu.Unlock()
	d.dispatchScroll(d.root)
}

// ScrollPosition returns the window scroll offsets.
func (d *Document) ScrollPosition() (x, y int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scrollX, d.scrollY
}

// ScrollElementBy moves the vertical scroll offset of a scroll container.
// Offsets never go negative.
func (d *Document) ScrollElementBy(n *html.Node, dy int) {
	d.mu.Lock()
	d.elementScroll[n] = max(d.elementScroll[n]+dy, 0)
	d.mu.Unlock()
	d.dispatchScroll(n)
}

// ElementScrollTop returns the vertical scroll offset of n.
func (d *Document) ElementScrollTop(n *html.Node) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.elementScroll[n]
}

func (d *Document) dispatchScroll(n *html.Node) {
	ev := NewEvent("scroll", n)
	ev.Bubbles = false
	ev.Cancelable = false
	d.Dispatch(ev)
}
