// SPDX-License-Identifier: MPL-2.0

package linker

import "fmt"

// State is the phase a Linker is in.
type State int

const (
	// StateCollecting accepts module sources.
	StateCollecting State = iota
	// StateResolving computes the module closure.
	StateResolving
	// StateLinking runs the pipeline.
	StateLinking
	// StateDone means the image was written.
	StateDone
	// StateFailed is terminal; Err returns the cause.
	StateFailed
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateCollecting:
		return "COLLECTING"
	case StateResolving:
		return "RESOLVING"
	case StateLinking:
		return "LINKING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }
