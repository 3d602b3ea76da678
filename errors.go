package pmap

import (
	goerrors "github.com/go-errors/errors"
)

// AssertionError marks an internal invariant violation or a broken
// precondition — a missing key passed to Get or Ref, Clear or Reclaim
// called while read-locks are held, a rehash that lost elements. Mapped
// headers are not validated, so a corrupted header does not raise one.
// These are bugs, not recoverable I/O
// failures, so callers get a panic rather than an error return.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string { return "pmap: assertion failed: " + e.Msg }

func assertf(cond bool, msg string) {
	if !cond {
		panic(&AssertionError{Msg: msg})
	}
}

// wrapErr adds a stack trace to an I/O or mmap failure so a caller
// logging it gets more than a bare os.PathError.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 1)
}
