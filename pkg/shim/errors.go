// SPDX-License-Identifier: MPL-2.0

package shim

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoNativeImage is returned when the runtime has no native image to read.
	ErrNoNativeImage = errors.New("no native runtime image")

	// ErrNativePluginNotFound is returned when a native plugin is not provided by the binding.
	ErrNativePluginNotFound = errors.New("native plugin not found")

	// ErrUnknownBinding is returned when Select names an unregistered binding.
	ErrUnknownBinding = errors.New("unknown shim binding")
)

type (
	// NativePluginNotFoundError names the missing plugin and the binding asked for it.
	NativePluginNotFoundError struct {
		Binding string
		Plugin  string
	}

	// UnknownBindingError is returned by Select for an unregistered name.
	UnknownBindingError struct {
		Name  string
		Known []string
	}
)

// Error implements the error interface.
func (e *NativePluginNotFoundError) Error() string {
	return fmt.Sprintf("binding %s provides no native plugin %q", e.Binding, e.Plugin)
}

// Unwrap returns ErrNativePluginNotFound for errors.Is() compatibility.
func (e *NativePluginNotFoundError) Unwrap() error { return ErrNativePluginNotFound }

// Error implements the error interface.
func (e *UnknownBindingError) Error() string {
	return fmt.Sprintf("unknown shim binding %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Unwrap returns ErrUnknownBinding for errors.Is() compatibility.
func (e *UnknownBindingError) Unwrap() error { return ErrUnknownBinding }
