// internal/pipeline/validate.go
package pipeline

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/scalpel-replay/api/schemas"
)

// ErrInvalidAction is matched by every InvalidActionError.
var ErrInvalidAction = errors.New("invalid action")

// InvalidActionError identifies the first structurally invalid entry in an action list.
type InvalidActionError struct {
	Index  int
	Type   string
	Reason string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action at index %d: %s", e.Index, e.Reason)
}

func (e *InvalidActionError) Is(target error) bool {
	return target == ErrInvalidAction
}

// ValidateActions rejects unknown action types and out-of-range wait durations.
func ValidateActions(actions []schemas.Action) error {
	for i, action := range actions {
		if !action.Type.IsValid() {
			return &InvalidActionError{
				Index:  i,
				Type:   string(action.Type),
				Reason: fmt.Sprintf("unknown action type %q", action.Type),
			}
		}
		if action.Type == schemas.ActionWait && (action.Duration < 0 || action.Duration > schemas.MaxWaitDurationMs) {
			return &InvalidActionError{
				Index: i,
				Type:  string(action.Type),
				Reason: fmt.Sprintf("wait duration %dms outside [0, %d]",
					action.Duration, schemas.MaxWaitDurationMs),
			}
		}
	}
	return nil
}

// DecodeActions parses a JSON array of actions and validates the result.
// Entries that are not JSON objects are rejected with an InvalidActionError.
func DecodeActions(data []byte) ([]schemas.Action, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode action list: %w", err)
	}

	actions := make([]schemas.Action, 0, len(raw))
	for i, entry := range raw {
		trimmed := bytes.TrimSpace(entry)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &InvalidActionError{Index: i, Reason: "entry is not an object"}
		}
		var action schemas.Action
		if err := json.Unmarshal(trimmed, &action); err != nil {
			return nil, &InvalidActionError{Index: i, Reason: err.Error()}
		}
		actions = append(actions, action)
	}

	if err := ValidateActions(actions); err != nil {
		return nil, err
	}
	return actions, nil
}
