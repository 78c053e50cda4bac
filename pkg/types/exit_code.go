// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Process exit codes of the jmodlink CLI.
const (
	ExitOK ExitCode = iota
	// ExitUsage covers bad flags and errors that fit no other class.
	ExitUsage
	// ExitMalformed reports an unreadable archive, image or module descriptor.
	ExitMalformed
	// ExitUnresolved reports a missing module dependency or a dependency cycle.
	ExitUnresolved
	// ExitPlugin reports a pipeline configuration or stage execution failure.
	ExitPlugin
	// ExitIO reports an I/O failure that survived the retry policy.
	ExitIO
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

// IsRetryable reports whether rerunning the same command may succeed
// without changing its inputs.
func (c ExitCode) IsRetryable() bool { return c == ExitIO }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
