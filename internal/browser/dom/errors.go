// internal/browser/dom/errors.go
package dom

import (
	"errors"
	"fmt"
	"time"
)

// ErrElementNotFound is matched by every NotFoundError.
var ErrElementNotFound = errors.New("element not found")

// NotFoundError is returned by WaitFor when no element appears in time.
type NotFoundError struct {
	Descriptor string
	Timeout    time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element not found: %q after %s", e.Descriptor, e.Timeout)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrElementNotFound
}
