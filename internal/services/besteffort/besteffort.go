// Package besteffort runs side effects whose failure must never change the
// response a caller is about to send.
package besteffort

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is the outcome of one best-effort operation
type Result struct {
	Op       string
	Err      error
	Duration time.Duration
}

// OK reports whether the operation succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Log writes the outcome and returns the result unchanged
func (r Result) Log(logger logrus.FieldLogger) Result {
	fields := logrus.Fields{
		"op":       r.Op,
		"duration": r.Duration,
	}
	if r.Err != nil {
		logger.WithFields(fields).WithError(r.Err).Error("Best-effort operation failed")
		return r
	}
	logger.WithFields(fields).Debug("Best-effort operation succeeded")
	return r
}

// Run executes fn with its own timeout. The operation outlives cancellation
// of ctx so a disconnecting client cannot abort it, and a panic inside fn
// is turned into an error.
func Run(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) (result Result) {
	opCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(opCtx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{Op: op, Err: fmt.Errorf("panic: %v", rec), Duration: time.Since(start)}
		}
	}()

	err := fn(opCtx)
	return Result{Op: op, Err: err, Duration: time.Since(start)}
}
