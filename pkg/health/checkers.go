package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// StaticCheck reports a fixed outcome, typically a dependency that failed to
// initialize at startup. A nil err always passes.
func StaticCheck(err error) CheckFunc {
	return func(context.Context) error {
		return err
	}
}
