// SPDX-License-Identifier: MPL-2.0

package iox

import (
	"errors"
	"fmt"
)

// ErrIOFailure is the sentinel for local I/O failures that exhausted their retries
// or were not retryable in the first place.
var ErrIOFailure = errors.New("i/o failure")

// IOFailureError records which operation failed, on which path, after how many attempts.
type IOFailureError struct {
	Op       string
	Path     string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *IOFailureError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s %s: %v (after %d attempts)", e.Op, e.Path, e.Err, e.Attempts)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrIOFailure and the cause.
func (e *IOFailureError) Unwrap() []error { return []error{ErrIOFailure, e.Err} }
