// internal/recorder/recorder.go
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-replay/api/schemas"
	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
)

// DefaultWaitThreshold is the idle gap that becomes a wait action when no
// threshold is configured.
const DefaultWaitThreshold = time.Second

const (
	redactedValue  = "[redacted]"
	maxLabelLength = 40
	capturedClicks = 2
)

// ErrAlreadyRecording is returned by Start while a recording is active.
var ErrAlreadyRecording = errors.New("recording already in progress")

// capturedEvents are the DOM events turned into actions.
var capturedEvents = []string{"click", "dblclick", "contextmenu", "change"}

// Recorder captures user interactions on a Document as replayable actions.
// Each action carries a generated CSS selector, an XPath fallback target and
// a human readable description.
type Recorder struct {
	doc       *dom.Document
	logger    *zap.Logger
	threshold time.Duration
	redact    bool
	now       func() time.Time

	mu        sync.Mutex
	recording bool
	actions   []schemas.Action
	last      time.Time
	removers  []func()
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithWaitThreshold sets the idle gap recorded as an explicit wait. Zero
// disables wait insertion.
func WithWaitThreshold(d time.Duration) Option {
	return func(r *Recorder) {
		if d >= 0 {
			r.threshold = d
		}
	}
}

// WithLogger sets the logger used by the recorder.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock replaces time.Now as the source of event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithPasswordRedaction stores password field values as a placeholder.
func WithPasswordRedaction() Option {
	return func(r *Recorder) {
		r.redact = true
	}
}

// New creates a recorder for doc. It does not listen until Start is called.
func New(doc *dom.Document, opts ...Option) *Recorder {
	r := &Recorder{
		doc:       doc,
		logger:    zap.NewNop(),
		threshold: DefaultWaitThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("recorder")
	return r
}

// Start discards any previous recording and begins capturing events.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}

	r.actions = nil
	r.last = time.Time{}
	root := r.doc.Root()
	for _, eventType := range capturedEvents {
		r.removers = append(r.removers, r.doc.AddEventListener(root, eventType, r.handle))
	}
	r.recording = true
	r.logger.Debug("Recording started.")
	return nil
}

// Stop detaches the recorder and returns the captured actions. Calling Stop
// when not recording returns the last recording.
func (r *Recorder) Stop() []schemas.Action {
	r.mu.Lock()
	removers := r.removers
	r.removers = nil
	wasRecording := r.recording
	r.recording = false
	actions := append([]schemas.Action(nil), r.actions...)
	r.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
	if wasRecording {
		r.logger.Debug("Recording stopped.", zap.Int("actions", len(actions)))
	}
	return actions
}

// Actions returns a copy of the actions captured so far.
func (r *Recorder) Actions() []schemas.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schemas.Action(nil), r.actions...)
}

// Recording reports whether the recorder is attached.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *Recorder) handle(ev *dom.Event) {
	el := ev.Target
	if el == nil || el.Type != html.ElementNode {
		return
	}

	var action schemas.Action
	switch ev.Type {
	case "click":
		// Text fields and selects are captured through change.
		if isValueControl(el) || dom.TagName(el) == "option" {
			return
		}
		action.Type = schemas.ActionClick
	case "dblclick":
		action.Type = schemas.ActionDoubleClick
	case "contextmenu":
		action.Type = schemas.ActionRightClick
	case "change":
		// Checkboxes and radios were already captured as clicks.
		if !isValueControl(el) {
			return
		}
		action.Type = schemas.ActionInput
		if dom.TagName(el) == "select" {
			action.Type = schemas.ActionSelect
		}
		action.Value = r.doc.Value(el)
		if r.redact && isPassword(el) {
			action.Value = redactedValue
		}
	default:
		return
	}

	r.doc.View(func(*html.Node) {
		action.Selector = dom.CSSPath(el)
		action.Target = dom.XPath(el)
		action.Description = describe(action, el)
	})
	r.record(action)
}

func (r *Recorder) record(action schemas.Action) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}

	switch action.Type {
	case schemas.ActionDoubleClick:
		// The browser reports the two clicks of a double click first.
		r.dropTrailingClicks(action.Selector)
	case schemas.ActionInput, schemas.ActionSelect:
		// Successive edits of one field collapse into the final value.
		if n := len(r.actions); n > 0 {
			prev := r.actions[n-1]
			if prev.Type == action.Type && prev.Selector == action.Selector {
				r.actions[n-1] = action
				r.last = now
				return
			}
		}
	}

	if !r.last.IsZero() && r.threshold > 0 {
		if gap := now.Sub(r.last); gap >= r.threshold {
			ms := min(gap.Milliseconds(), int64(schemas.MaxWaitDurationMs))
			r.actions = append(r.actions, schemas.Action{
				Type:        schemas.ActionWait,
				Duration:    int(ms),
				Description: fmt.Sprintf("Wait %dms", ms),
			})
		}
	}
	r.actions = append(r.actions, action)
	r.last = now
	r.logger.Debug("Captured action.",
		zap.String("type", action.Type.String()),
		zap.String("selector", action.Selector))
}

func (r *Recorder) dropTrailingClicks(selector string) {
	for i := 0; i < capturedClicks; i++ {
		n := len(r.actions)
		if n == 0 {
			return
		}
		prev := r.actions[n-1]
		if prev.Type != schemas.ActionClick || prev.Selector != selector {
			return
		}
		r.actions = r.actions[:n-1]
	}
}

func isValueControl(n *html.Node) bool {
	return dom.IsTextInput(n) || dom.TagName(n) == "select"
}

func isPassword(n *html.Node) bool {
	t, _ := dom.GetAttr(n, "type")
	return dom.TagName(n) == "input" && t == "password"
}

var verbs = map[schemas.ActionType]string{
	schemas.ActionClick:       "Click",
	schemas.ActionDoubleClick: "Double-click",
	schemas.ActionRightClick:  "Right-click",
	schemas.ActionInput:       "Type into",
	schemas.ActionSelect:      "Select in",
}

// describe names el the way a person would point at it: its accessible label
// or visible text, then its tag.
func describe(action schemas.Action, el *html.Node) string {
	label := elementLabel(el)
	tag := dom.TagName(el)
	if label == "" {
		return fmt.Sprintf("%s %s", verbs[action.Type], action.Selector)
	}
	return fmt.Sprintf("%s %q %s", verbs[action.Type], label, tag)
}

func elementLabel(el *html.Node) string {
	for _, attr := range []string{"aria-label", "placeholder", "name"} {
		if v, ok := dom.GetAttr(el, attr); ok && v != "" {
			return truncate(dom.NormalizeText(v))
		}
	}
	if dom.IsTextInput(el) || dom.TagName(el) == "select" {
		return ""
	}
	return truncate(dom.NormalizeText(dom.TextContent(el)))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabelLength {
		return s
	}
	return string(r[:maxLabelLength-3]) + "..."
}
