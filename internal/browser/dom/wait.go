// internal/browser/dom/wait.go
package dom

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var errStillMissing = errors.New("descriptor not resolved yet")

// WaitFor polls Find until descriptor resolves or timeout elapses. It returns
// a *NotFoundError on timeout and the context error if ctx ends first.
func (f *Finder) WaitFor(ctx context.Context, descriptor string, timeout time.Duration) (*html.Node, error) {
	var found *html.Node
	poll := func(context.Context) error {
		if n := f.Find(descriptor); n != nil {
			found = n
			return nil
		}
		return retry.RetryableError(errStillMissing)
	}

	backoff := retry.WithMaxDuration(max(timeout, 0), retry.NewConstant(f.pollInterval))
	err := retry.Do(ctx, backoff, poll)
	switch {
	case err == nil:
		return found, nil
	case errors.Is(err, errStillMissing):
		f.logger.Debug("Timed out waiting for element.",
			zap.String("descriptor", descriptor),
			zap.Duration("timeout", timeout))
		return nil, &NotFoundError{Descriptor: descriptor, Timeout: timeout}
	default:
		return nil, err
	}
}
