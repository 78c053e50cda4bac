// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPipelineConfiguration is the sentinel for pipelines that cannot be ordered.
	ErrPipelineConfiguration = errors.New("pipeline configuration error")

	// ErrUnknownPluginOption is the sentinel for option keys a stage does not declare.
	ErrUnknownPluginOption = errors.New("unknown plugin option")

	// ErrPluginExecutionFailed is the sentinel for a stage that failed while running.
	ErrPluginExecutionFailed = errors.New("plugin execution failed")
)

type (
	// PipelineConfigurationError reports an unknown or duplicate stage, a
	// constraint naming an absent stage, more than one TERMINAL stage, or
	// contradictory constraints (Cycle is set).
	PipelineConfigurationError struct {
		Stage  string
		Reason string
		Cycle  []string
	}

	// UnknownPluginOptionError reports an option key that Stage does not accept.
	UnknownPluginOptionError struct {
		Stage  string
		Option string
		Known  []string
	}

	// PluginExecutionFailedError wraps the error a stage returned or the panic it raised.
	PluginExecutionFailedError struct {
		Stage string
		Cause error
	}
)

// Error implements the error interface.
func (e *PipelineConfigurationError) Error() string {
	msg := e.Reason
	if len(e.Cycle) > 0 {
		msg = fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Cycle, " -> "))
	}
	if e.Stage != "" {
		return fmt.Sprintf("pipeline configuration: stage %s: %s", e.Stage, msg)
	}
	return "pipeline configuration: " + msg
}

// Unwrap returns ErrPipelineConfiguration for errors.Is() compatibility.
func (e *PipelineConfigurationError) Unwrap() error { return ErrPipelineConfiguration }

// Error implements the error interface.
func (e *UnknownPluginOptionError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("stage %s does not accept option %q (it takes no options)", e.Stage, e.Option)
	}
	return fmt.Sprintf("stage %s does not accept option %q (known: %s)", e.Stage, e.Option, strings.Join(e.Known, ", "))
}

// Unwrap returns ErrUnknownPluginOption for errors.Is() compatibility.
func (e *UnknownPluginOptionError) Unwrap() error { return ErrUnknownPluginOption }

// Error implements the error interface.
func (e *PluginExecutionFailedError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

// Unwrap exposes the sentinel and the cause.
func (e *PluginExecutionFailedError) Unwrap() []error {
	return []error{ErrPluginExecutionFailed, e.Cause}
}
