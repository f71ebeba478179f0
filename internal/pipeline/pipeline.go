// internal/pipeline/pipeline.go
package pipeline

import (
	"github.com/xkilldash9x/scalpel-replay/api/schemas"
)

// MinWaitDurationMs is the shortest wait worth keeping. Shorter waits are dropped as noise.
const MinWaitDurationMs = 100

// Normalize validates actions and then collapses consecutive duplicates and
// redundant waits. The input slice is never modified.
func Normalize(actions []schemas.Action) ([]schemas.Action, error) {
	if err := ValidateActions(actions); err != nil {
		return nil, err
	}
	return OptimizeSequence(MergeDuplicates(actions)), nil
}

// MergeDuplicates drops every action identical in type, effective target and
// value to the previously kept action. Repeats separated by a different action
// survive. Duration and pixels are not compared, so a run of waits collapses to
// its first member before OptimizeSequence sees it.
func MergeDuplicates(actions []schemas.Action) []schemas.Action {
	merged := make([]schemas.Action, 0, len(actions))
	for _, action := range actions {
		if n := len(merged); n > 0 && sameStep(merged[n-1], action) {
			continue
		}
		merged = append(merged, action)
	}
	return merged
}

func sameStep(a, b schemas.Action) bool {
	return a.Type == b.Type && a.Descriptor() == b.Descriptor() && a.Value == b.Value
}

// OptimizeSequence drops a wait that is immediately followed by another wait,
// so a run of waits keeps only its last element and its duration. Waits
// shorter than MinWaitDurationMs are dropped as well.
func OptimizeSequence(actions []schemas.Action) []schemas.Action {
	optimized := make([]schemas.Action, 0, len(actions))
	for i, action := range actions {
		if action.Type == schemas.ActionWait {
			if i+1 < len(actions) && actions[i+1].Type == schemas.ActionWait {
				continue
			}
			if action.Duration < MinWaitDurationMs {
				continue
			}
		}
		optimized = append(optimized, action)
	}
	return optimized
}
