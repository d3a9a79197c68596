package embed

import (
	"context"
	"time"

	verrors "github.com/veracite/veracite/internal/errors"
)

// RetryOnRateLimit executes fn and, if the provider rate limited the call,
// waits the fixed backoff and tries exactly once more. Every other failure
// is returned as-is: the caller decides whether to skip or abort.
// A cancelled context wins over the backoff wait.
func RetryOnRateLimit(ctx context.Context, backoff time.Duration, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if !verrors.IsRateLimited(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
	}

	return fn()
}
