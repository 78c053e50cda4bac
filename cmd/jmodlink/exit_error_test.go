// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/fallback"
	"github.com/jmodlink/jmodlink/pkg/linker"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/types"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitOK},
		{"unclassified", errors.New("boom"), types.ExitUsage},
		{"malformed", poolcodec.Malformed(8, "bad magic"), types.ExitMalformed},
		{"entry not found", fmt.Errorf("read: %w", poolcodec.ErrEntryNotFound), types.ExitMalformed},
		{"descriptor", &moddesc.InvalidModuleDescriptorError{Module: "m", Reasons: []string{"x"}}, types.ExitMalformed},
		{"hash mismatch", &fallback.HashMismatchError{Module: "m", Path: "p"}, types.ExitMalformed},
		{"unresolved", &linker.UnresolvedDependencyError{Module: "a", Missing: "c"}, types.ExitUnresolved},
		{"cycle", &linker.CyclicModuleGraphError{Cycle: []string{"a", "b", "a"}}, types.ExitUnresolved},
		{"configuration", &plugin.PipelineConfigurationError{Stage: "x", Reason: "unknown stage"}, types.ExitPlugin},
		{"unknown option", &plugin.UnknownPluginOptionError{Stage: "compress", Option: "speed"}, types.ExitPlugin},
		{"stage failure wins over its cause", &plugin.PluginExecutionFailedError{Stage: "s", Cause: poolcodec.Malformed(0, "x")}, types.ExitPlugin},
		{"io", &iox.IOFailureError{Op: "open", Path: "/x", Attempts: 3, Err: errors.New("EIO")}, types.ExitIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &ExitError{Code: types.ExitIO, Err: cause}
	if err.Error() != "boom" || !errors.Is(err, cause) {
		t.Errorf("ExitError = %q, unwraps to cause: %v", err.Error(), errors.Is(err, cause))
	}
	if got := (&ExitError{Code: types.ExitPlugin}).Error(); got != "exit status 4" {
		t.Errorf("Error() = %q", got)
	}
}

func TestApp_Fail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		want      types.ExitCode
		transient bool
	}{
		{"io failure", &iox.IOFailureError{Op: "read", Path: "app.jmod", Attempts: 3, Err: errors.New("EIO")}, types.ExitIO, true},
		{"unresolved", fmt.Errorf("app: %w", linker.ErrUnresolvedDependency), types.ExitUnresolved, false},
		{"plain", errors.New("--output is required"), types.ExitUsage, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			app := NewApp(Dependencies{Config: staticConfig{}, Stdout: &bytes.Buffer{}, Stderr: &stderr})
			cmd := &cobra.Command{Use: "link"}

			err := app.fail(cmd, "link image", tt.err)
			var exitErr *ExitError
			if !errors.As(err, &exitErr) || exitErr.Code != tt.want {
				t.Fatalf("fail() = %v, want ExitError with code %d", err, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("ExitError does not unwrap to the original error")
			}
			out := stderr.String()
			if !strings.Contains(out, "failed to link image") {
				t.Errorf("stderr = %q", out)
			}
			if got := strings.Contains(out, "transient"); got != tt.transient {
				t.Errorf("transient hint shown = %v, want %v\n%s", got, tt.transient, out)
			}
			if !cmd.SilenceErrors || !cmd.SilenceUsage {
				t.Error("fail() did not silence cobra's own error output")
			}
			if again := app.fail(cmd, "other", err); again != err {
				t.Error("fail() rewrapped an ExitError")
			}
		})
	}

	if err := NewApp(Dependencies{}).fail(&cobra.Command{}, "noop", nil); err != nil {
		t.Errorf("fail(nil) = %v", err)
	}
}
