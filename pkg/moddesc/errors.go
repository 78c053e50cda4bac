// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModuleDescriptor is the sentinel for descriptors that break a
// structural rule.
var ErrInvalidModuleDescriptor = errors.New("invalid module descriptor")

// InvalidModuleDescriptorError lists every rule a descriptor breaks.
type InvalidModuleDescriptorError struct {
	Module  string
	Reasons []string
	// Cause is set when the descriptor source could not be parsed at all.
	Cause error
}

// Error implements the error interface.
func (e *InvalidModuleDescriptorError) Error() string {
	name := e.Module
	if name == "" {
		name = "<unnamed>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("invalid module descriptor %s: %v", name, e.Cause)
	}
	return fmt.Sprintf("invalid module descriptor %s: %s", name, strings.Join(e.Reasons, "; "))
}

// Unwrap exposes the sentinel and, when present, the parse cause.
func (e *InvalidModuleDescriptorError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidModuleDescriptor, e.Cause}
	}
	return []error{ErrInvalidModuleDescriptor}
}
