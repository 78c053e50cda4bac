// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedDependency is returned when a required module is not available.
	ErrUnresolvedDependency = errors.New("unresolved module dependency")

	// ErrCyclicModuleGraph is returned when requires edges form a cycle.
	ErrCyclicModuleGraph = errors.New("cyclic module graph")

	// ErrNoRootModules is returned when a link has nothing to start from.
	ErrNoRootModules = errors.New("no root modules")

	// ErrInvalidState is returned when an operation is called in the wrong phase.
	ErrInvalidState = errors.New("operation not allowed in current linker state")
)

type (
	// UnresolvedDependencyError names the module whose requirement is missing.
	// Module is empty when a root module itself is missing.
	UnresolvedDependencyError struct {
		Module  string
		Missing string
	}

	// CyclicModuleGraphError carries one cycle, first module repeated at the end.
	CyclicModuleGraphError struct {
		Cycle []string
	}

	// InvalidStateError reports the state an operation was refused in.
	InvalidStateError struct {
		Op    string
		State State
	}
)

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("root module %s not found", e.Missing)
	}
	return fmt.Sprintf("module %s requires %s, which was not found", e.Module, e.Missing)
}

// Unwrap returns ErrUnresolvedDependency for errors.Is() compatibility.
func (e *UnresolvedDependencyError) Unwrap() error { return ErrUnresolvedDependency }

// Error implements the error interface.
func (e *CyclicModuleGraphError) Error() string {
	return fmt.Sprintf("cyclic module dependency: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCyclicModuleGraph for errors.Is() compatibility.
func (e *CyclicModuleGraphError) Unwrap() error { return ErrCyclicModuleGraph }

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: linker is %s", e.Op, e.State)
}

// Unwrap returns ErrInvalidState for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
