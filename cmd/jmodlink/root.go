// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/internal/issue"
	"github.com/jmodlink/jmodlink/pkg/shim"
	"github.com/jmodlink/jmodlink/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jmodlink",
		Short: "Link modular runtime images from jmod archives",
		Long: TitleStyle.Render("jmodlink") + SubtitleStyle.Render(" - Link modular runtime images from jmod archives") + `

jmodlink resolves a set of modules, runs their resources through a
pipeline of stages (sorting, filtering, compression, verification) and
writes a runtime image. It also creates and inspects jmod archives and
reduces modules against the runtime they will be linked with.

` + SubtitleStyle.Render("Examples:") + `
  jmodlink link -o build/modules app.jmod lib.jmod
  jmodlink link --stage compress:level=9 --platform linux-aarch64 -o img src/app lib.jmod
  jmodlink jmod create --root src/app app.jmod
  jmodlink jmod describe app.jmod
  jmodlink reduce --runtime /opt/jdk app.jmod
  jmodlink explain unresolved-dependency`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd.Context()); err != nil {
				return app.fail(cmd, "load configuration", err)
			}
			return nil
		},
	}

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	flags.StringVar(&app.cfgFile, "config", "", "config file (default is ./jmodlink.cue, then the user config directory)")
	flags.StringVar(&app.runtimePath, "runtime", "", "runtime directory holding lib/modules")
	flags.StringVar(&app.binding, "binding", "", fmt.Sprintf("shim binding %v", shim.Bindings()))

	rootCmd.AddCommand(
		newLinkCommand(app),
		newBatchCommand(app),
		newJmodCommand(app),
		newReduceCommand(app),
		newRestoreCommand(app),
		newImageCommand(app),
		newExplainCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code of the error class.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Code.Validate() == nil && !exitErr.Code.IsSuccess() {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitUsage))
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
