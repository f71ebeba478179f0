// internal/playback/executor.go
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/scalpel-replay/api/schemas"
	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
)

const (
	// ErrMsgElementNotFound is the Result error for an unresolved target.
	ErrMsgElementNotFound = "Element not found"

	// HighlightClass marks an element outlined by Highlight.
	HighlightClass = "scalpel-replay-highlight"
	// HoverClass marks the element the last hover action landed on.
	HoverClass = "scalpel-replay-hover"

	highlightStyleID = "scalpel-replay-highlight-style"
	highlightOutline = "outline: 3px solid #ff6b35; outline-offset: 2px;"
	highlightSheet   = "." + HighlightClass + " { outline: 3px solid #ff6b35 !important; outline-offset: 2px !important; }\n" +
		"." + HoverClass + " { outline: 1px dashed #ff6b35 !important; }"
)

// Locator resolves a target descriptor to an element. *dom.Finder satisfies it.
type Locator interface {
	Find(descriptor string) *html.Node
}

type highlight struct {
	timer     *time.Timer
	gen       uint64
	hadStyle  bool
	origStyle string
}

// Executor applies single actions to a Document. It also owns the
// highlight decorations it adds, which Cleanup removes.
type Executor struct {
	doc     *dom.Document
	locator Locator
	logger  *zap.Logger

	mu          sync.Mutex
	highlighted map[*html.Node]*highlight
	hovered     map[*html.Node]struct{}
	styleNode   *html.Node
}

// NewExecutor creates an executor acting on doc and resolving targets through locator.
func NewExecutor(doc *dom.Document, locator Locator, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		doc:         doc,
		locator:     locator,
		logger:      logger.With(zap.String("component", "executor")),
		highlighted: make(map[*html.Node]*highlight),
		hovered:     make(map[*html.Node]struct{}),
	}
}

// Execute performs one action and reports the outcome. It never panics;
// failures are returned as an unsuccessful Result.
func (e *Executor) Execute(ctx context.Context, action schemas.Action) (result schemas.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered from panic while executing action.",
				zap.String("type", action.Type.String()),
				zap.Any("panic", r))
			result = schemas.Failed(fmt.Sprintf("action %s failed: %v", action.Type, r))
		}
	}()

	var target *html.Node
	if action.Type.NeedsTarget() {
		target = e.locator.Find(action.Descriptor())
		if target == nil {
			e.logger.Debug("Target not resolved.", zap.String("descriptor", action.Descriptor()))
			return schemas.Failed(ErrMsgElementNotFound)
		}
	}

	switch action.Type {
	case schemas.ActionClick:
		e.doc.Click(target)
	case schemas.ActionInput:
		e.doc.SetValue(target, action.Value)
	case schemas.ActionSelect:
		if !e.doc.SelectOption(target, action.Value) {
			e.logger.Debug("No option matched the selected value.", zap.String("value", action.Value))
		}
	case schemas.ActionHover:
		e.hover(target)
	case schemas.ActionDoubleClick:
		e.pointerSequence(target, "dblclick", 0, 2)
	case schemas.ActionRightClick:
		e.pointerSequence(target, "contextmenu", 2, 1)
	case schemas.ActionScroll:
		e.scroll(action)
	case schemas.ActionWait:
		return e.wait(ctx, action.Duration)
	default:
		return schemas.Failed(fmt.Sprintf("Unsupported action type: %s", action.Type))
	}
	return schemas.OK()
}

// pointerSequence dispatches the mousedown/mouseup pair followed by the
// event that gives the gesture its meaning.
func (e *Executor) pointerSequence(target *html.Node, eventType string, button, detail int) {
	for _, t := range []string{"mousedown", "mouseup", eventType} {
		ev := dom.NewEvent(t, target)
		ev.Button = button
		ev.Detail = detail
		e.doc.Dispatch(ev)
	}
}

func (e *Executor) hover(target *html.Node) {
	e.mu.Lock()
	var previous []*html.Node
	for n := range e.hovered {
		if n != target {
			previous = append(previous, n)
			delete(e.hovered, n)
		}
	}
	e.hovered[target] = struct{}{}
	e.mu.Unlock()

	e.doc.Update(func(*html.Node) {
		for _, n := range previous {
			dom.RemoveClass(n, HoverClass)
		}
		dom.AddClass(target, HoverClass)
	})
	for _, n := range previous {
		e.dispatchPointer(n, "mouseout", true)
		e.dispatchPointer(n, "mouseleave", false)
	}
	e.dispatchPointer(target, "mouseenter", false)
	e.dispatchPointer(target, "mouseover", true)
}

func (e *Executor) dispatchPointer(n *html.Node, eventType string, bubbles bool) {
	ev := dom.NewEvent(eventType, n)
	ev.Bubbles = bubbles
	ev.Cancelable = bubbles
	e.doc.Dispatch(ev)
}

// scroll moves the container named by the action's target when a plain CSS
// query finds it, and the window otherwise.
func (e *Executor) scroll(action schemas.Action) {
	if descriptor := action.Descriptor(); descriptor != "" {
		container, err := e.doc.QuerySelector(descriptor)
		if err != nil {
			e.logger.Debug("Scroll container selector rejected.", zap.String("selector", descriptor), zap.Error(err))
		}
		if container != nil {
			e.doc.ScrollElementBy(container, action.Pixels)
			return
		}
	}
	e.doc.ScrollBy(0, action.Pixels)
}

func (e *Executor) wait(ctx context.Context, durationMs int) schemas.Result {
	if durationMs <= 0 {
		return schemas.OK()
	}
	timer := time.NewTimer(time.Duration(durationMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return schemas.OK()
	case <-ctx.Done():
		return schemas.Failed(ctx.Err().Error())
	}
}

// Highlight outlines the element descriptor resolves to and removes the
// outline after d. Highlighting an already highlighted element restarts its
// timer. Unresolved descriptors are ignored.
func (e *Executor) Highlight(descriptor string, d time.Duration) {
	target := e.locator.Find(descriptor)
	if target == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.doc.Update(func(root *html.Node) {
		e.injectStylesheet(root)
	})

	h, ok := e.highlighted[target]
	if ok {
		h.timer.Stop()
	} else {
		h = &highlight{}
		e.doc.Update(func(*html.Node) {
			h.origStyle, h.hadStyle = dom.GetAttr(target, "style")
			dom.AddClass(target, HighlightClass)
			style := highlightOutline
			if h.hadStyle && h.origStyle != "" {
				style = h.origStyle + "; " + highlightOutline
			}
			dom.SetAttr(target, "style", style)
		})
		e.highlighted[target] = h
	}
	// A timer that already fired may still be waiting on e.mu; the bumped
	// generation makes its expire a no-op.
	h.gen++
	gen := h.gen
	h.timer = time.AfterFunc(d, func() { e.expire(target, h, gen) })
}

// expire runs on the timer goroutine. A highlight restarted or cleaned up in
// the meantime is left alone.
func (e *Executor) expire(target *html.Node, h *highlight, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.highlighted[target] != h || h.gen != gen {
		return
	}
	delete(e.highlighted, target)
	e.doc.Update(func(*html.Node) { restore(target, h) })
}

// ActiveHighlights returns the number of elements currently outlined.
func (e *Executor) ActiveHighlights() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.highlighted)
}

// Cleanup cancels pending highlight timers, restores every decorated
// element, and removes the injected stylesheet.
func (e *Executor) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range e.highlighted {
		h.timer.Stop()
	}
	e.doc.Update(func(*html.Node) {
		for n, h := range e.highlighted {
			restore(n, h)
		}
		for n := range e.hovered {
			dom.RemoveClass(n, HoverClass)
		}
		if e.styleNode != nil && e.styleNode.Parent != nil {
			e.styleNode.Parent.RemoveChild(e.styleNode)
		}
	})
	clear(e.highlighted)
	clear(e.hovered)
	e.styleNode = nil
}

// injectStylesheet adds the highlight rules once per document. Must be called
// with the document write lock held.
func (e *Executor) injectStylesheet(root *html.Node) {
	if e.styleNode != nil && e.styleNode.Parent != nil {
		return
	}
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: highlightStyleID}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: highlightSheet})

	parent := root
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if dom.TagName(n) == "html" {
			parent = n
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if dom.TagName(c) == "head" {
					parent = c
					break
				}
			}
			break
		}
	}
	parent.AppendChild(style)
	e.styleNode = style
}

func restore(n *html.Node, h *highlight) {
	dom.RemoveClass(n, HighlightClass)
	if h.hadStyle {
		dom.SetAttr(n, "style", h.origStyle)
	} else {
		dom.RemoveAttr(n, "style")
	}
}
