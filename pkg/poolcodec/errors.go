// SPDX-License-Identifier: MPL-2.0

package poolcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedContainer is the sentinel for structural decode failures.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrEntryNotFound is returned when a named entry is absent from a container.
	ErrEntryNotFound = errors.New("entry not found")
)

type (
	// MalformedContainerError reports a structural violation found while decoding.
	// Offset is the absolute byte offset at which the problem was detected, or -1
	// when it is not tied to a position.
	MalformedContainerError struct {
		Offset int64
		Reason string
	}

	// EntryNotFoundError reports a lookup for an entry that the container does not hold.
	EntryNotFoundError struct {
		Name string
	}
)

// Malformed builds a *MalformedContainerError with a formatted reason.
func Malformed(offset int64, format string, args ...any) error {
	return &MalformedContainerError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *MalformedContainerError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("malformed container: %s", e.Reason)
	}
	return fmt.Sprintf("malformed container at offset %d: %s", e.Offset, e.Reason)
}

// Unwrap returns ErrMalformedContainer for errors.Is() compatibility.
func (e *MalformedContainerError) Unwrap() error { return ErrMalformedContainer }

// Error implements the error interface.
func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("entry %q not found", e.Name)
}

// Unwrap returns ErrEntryNotFound for errors.Is() compatibility.
func (e *EntryNotFoundError) Unwrap() error { return ErrEntryNotFound }
