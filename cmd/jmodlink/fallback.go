// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/pkg/fallback"
)

// rewriteFunc reduces or restores the archive at in into out.
type rewriteFunc func(ctx context.Context, rt *fallback.Runtime, in, out string) (fallback.Result, error)

func newReduceCommand(app *App) *cobra.Command {
	var (
		output string
		opts   fallback.ReduceOptions
	)
	cmd := &cobra.Command{
		Use:   "reduce [flags] <jmod>...",
		Short: "Drop the entries a jmod shares with the runtime",
		Long: `Drop the entries a jmod shares with the runtime.

Every class, native library and launcher whose bytes equal the runtime's copy
is removed and recorded in classes/fallback.list with its SHA-256 hash. The
link restores them from the runtime image and runtime directory. Archives
already reduced, or for modules the runtime does not ship, are left as they
are. Archives are rewritten in place unless --output is given.`,
		Example: `  jmodlink reduce --runtime /opt/jdk mods/*.jmod
  jmodlink reduce --runtime /opt/jdk --exclude 'lib/**' --without-verify 'bin/*' -o small.jmod app.jmod`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Logger = app.logger
			return app.rewrite(cmd, "reduce", output, args, func(ctx context.Context, rt *fallback.Runtime, in, out string) (fallback.Result, error) {
				return fallback.ReduceFile(ctx, rt, in, out, opts)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of in place (single input only)")
	cmd.Flags().StringArrayVar(&opts.Exclude, "exclude", nil, "keep entries matching this glob (repeatable)")
	cmd.Flags().StringArrayVar(&opts.WithoutVerify, "without-verify", nil, "record entries matching this glob without a hash (repeatable)")
	return cmd
}

func newRestoreCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "restore [flags] <jmod>...",
		Short: "Put back the entries a reduced jmod left to the runtime",
		Long: `Put back the entries a reduced jmod left to the runtime.

Every entry named by classes/fallback.list is read from the runtime and
checked against its recorded hash; the list is then removed. Archives that
carry no list are left as they are.`,
		Example: `  jmodlink restore --runtime /opt/jdk app.jmod`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.rewrite(cmd, "restore", output, args, fallback.RestoreFile)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of in place (single input only)")
	return cmd
}

// rewrite runs fn over every input against the configured runtime and stops
// at the first failure.
func (a *App) rewrite(cmd *cobra.Command, op, output string, inputs []string, fn rewriteFunc) error {
	if output != "" && len(inputs) > 1 {
		return a.fail(cmd, op, fmt.Errorf("--output needs exactly one input, got %d", len(inputs)))
	}
	rt, err := a.runtime(cmd.Context())
	if err != nil {
		return a.fail(cmd, "open runtime", err)
	}
	defer func() { _ = rt.Close() }()

	for _, in := range inputs {
		out := in
		if output != "" {
			out = output
		}
		a.logger.Debug("rewriting archive", "op", op, "in", in, "out", out)
		res, err := fn(cmd.Context(), rt, in, out)
		if err != nil {
			return a.fail(cmd, op+" "+in, err)
		}
		printOutcome(cmd.OutOrStdout(), in, res)
	}
	return nil
}

func printOutcome(w io.Writer, path string, res fallback.Result) {
	mark := WarningStyle.Render("-")
	if res.Outcome.Changed() {
		mark = SuccessStyle.Render("✓")
	}
	detail := res.Outcome.String()
	if res.Moved > 0 {
		detail = fmt.Sprintf("%s, %d entries", detail, res.Moved)
	}
	fmt.Fprintf(w, "%s %s (%s): %s\n", mark, path, CmdStyle.Render(res.Module), detail)
}
