package smallcode

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCancelled means the run was stopped from outside; it is not a worker failure
	ErrCancelled = errors.New("small-codes run cancelled")
	// ErrCollectTimeout means no result arrived in time while results were still expected
	ErrCollectTimeout = errors.New("timed out collecting small codes")

	errNilTransform = errors.New("transform must not be nil")
	errNilElement   = errors.New("element iterator returned nil element")
)

// WorkerError is a fatal failure inside a worker loop
type WorkerError struct {
	Worker int
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d failed: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
