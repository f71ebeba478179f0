// api/schemas/action.go
package schemas

// ActionType defines the kind of interaction an Action performs.
type ActionType string

const (
	ActionClick       ActionType = "click"
	ActionInput       ActionType = "input"
	ActionHover       ActionType = "hover"
	ActionScroll      ActionType = "scroll"
	ActionWait        ActionType = "wait"
	ActionSelect      ActionType = "select"
	ActionDoubleClick ActionType = "double_click"
	ActionRightClick  ActionType = "right_click"
)

// MaxWaitDurationMs is the upper bound for a wait action's duration.
const MaxWaitDurationMs = 300000

// ActionTypes lists every supported action type in declaration order.
var ActionTypes = []ActionType{
	ActionClick,
	ActionInput,
	ActionHover,
	ActionScroll,
	ActionWait,
	ActionSelect,
	ActionDoubleClick,
	ActionRightClick,
}

func (t ActionType) String() string { return string(t) }

// IsValid reports whether t belongs to the supported set.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionClick, ActionInput, ActionHover, ActionScroll, ActionWait,
		ActionSelect, ActionDoubleClick, ActionRightClick:
		return true
	}
	return false
}

// NeedsTarget reports whether executing an action of this type requires resolving an element.
func (t ActionType) NeedsTarget() bool {
	switch t {
	case ActionClick, ActionInput, ActionHover, ActionDoubleClick, ActionRightClick, ActionSelect:
		return true
	}
	return false
}

// Action is the atomic automation step exchanged between the recorder, the
// normalization pipeline, storage and the playback executor.
type Action struct {
	Type        ActionType `json:"type" yaml:"type"`
	Selector    string     `json:"selector,omitempty" yaml:"selector,omitempty"`
	Target      string     `json:"target,omitempty" yaml:"target,omitempty"`
	Value       string     `json:"value,omitempty" yaml:"value,omitempty"`
	Duration    int        `json:"duration,omitempty" yaml:"duration,omitempty"` // milliseconds, wait only
	Pixels      int        `json:"pixels,omitempty" yaml:"pixels,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Descriptor returns the effective target descriptor: Selector when set, Target otherwise.
func (a Action) Descriptor() string {
	if a.Selector != "" {
		return a.Selector
	}
	return a.Target
}

// Result is the outcome of executing a single Action.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK returns a successful Result.
func OK() Result { return Result{Success: true} }

// Failed returns an unsuccessful Result carrying msg.
func Failed(msg string) Result { return Result{Success: false, Error: msg} }
