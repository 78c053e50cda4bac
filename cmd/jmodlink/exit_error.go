// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/internal/issue"
	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/fallback"
	"github.com/jmodlink/jmodlink/pkg/linker"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/types"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps err onto the exit code of its class. Order matters: a
// stage failure caused by a malformed fallback list is a plugin failure.
func exitCodeFor(err error) types.ExitCode {
	switch {
	case err == nil:
		return types.ExitOK
	case errors.Is(err, plugin.ErrPluginExecutionFailed),
		errors.Is(err, plugin.ErrPipelineConfiguration),
		errors.Is(err, plugin.ErrUnknownPluginOption):
		return types.ExitPlugin
	case errors.Is(err, linker.ErrUnresolvedDependency),
		errors.Is(err, linker.ErrCyclicModuleGraph):
		return types.ExitUnresolved
	case errors.Is(err, poolcodec.ErrMalformedContainer),
		errors.Is(err, poolcodec.ErrEntryNotFound),
		errors.Is(err, moddesc.ErrInvalidModuleDescriptor),
		errors.Is(err, fallback.ErrHashMismatch):
		return types.ExitMalformed
	case errors.Is(err, iox.ErrIOFailure):
		return types.ExitIO
	default:
		return types.ExitUsage
	}
}

// fail renders err on stderr and returns an ExitError carrying the code of
// its class. Errors that are not yet actionable are wrapped with op and the
// catalog topic that explains them.
func (a *App) fail(cmd *cobra.Command, op string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	code := exitCodeFor(err)
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		ec := issue.NewErrorContext().WithOperation(op)
		if code.IsRetryable() {
			ec.WithSuggestion("The failure may be transient; run the command again or raise retry.attempts")
		}
		ae = ec.Wrap(err).Build()
	}
	fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(ae, a.verboseMode()))
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code, Err: ae}
}
