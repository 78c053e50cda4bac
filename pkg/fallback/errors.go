// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"errors"
	"fmt"

	digest "github.com/opencontainers/go-digest"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

var (
	// ErrInvalidList is returned when a fallback list does not parse.
	ErrInvalidList = errors.New("invalid fallback list")

	// ErrHashMismatch is returned when a runtime file no longer matches the
	// hash recorded in a fallback list.
	ErrHashMismatch = errors.New("fallback hash mismatch")

	// ErrNoRuntime is returned when a fallback list must be expanded but no
	// runtime is available.
	ErrNoRuntime = errors.New("no runtime to expand fallback list from")
)

type (
	// InvalidListError describes one bad line of a fallback list.
	InvalidListError struct {
		Line   int
		Text   string
		Reason string
	}

	// EntryMissingError is returned when the runtime lacks a listed entry.
	EntryMissingError struct {
		Module string
		Path   string
	}

	// HashMismatchError names the entry whose runtime copy changed.
	HashMismatchError struct {
		Module string
		Path   string
		Want   digest.Digest
		Got    digest.Digest
	}
)

// Error implements the error interface.
func (e *InvalidListError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("fallback list: %s", e.Reason)
	}
	return fmt.Sprintf("fallback list line %d %q: %s", e.Line, e.Text, e.Reason)
}

// Unwrap matches both ErrInvalidList and poolcodec.ErrMalformedContainer: a
// bad list makes the archive carrying it malformed.
func (e *InvalidListError) Unwrap() []error {
	return []error{ErrInvalidList, poolcodec.ErrMalformedContainer}
}

// Error implements the error interface.
func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("module %s: runtime copy of %s has hash %s, fallback list recorded %s", e.Module, e.Path, e.Got.Encoded(), e.Want.Encoded())
}

// Unwrap returns ErrHashMismatch for errors.Is() compatibility.
func (e *HashMismatchError) Unwrap() error { return ErrHashMismatch }

// Error implements the error interface.
func (e *EntryMissingError) Error() string {
	return fmt.Sprintf("module %s: runtime has no %s", e.Module, e.Path)
}

// Unwrap matches poolcodec.ErrEntryNotFound.
func (e *EntryMissingError) Unwrap() error { return poolcodec.ErrEntryNotFound }
