// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/internal/watch"
	"github.com/jmodlink/jmodlink/pkg/linker"
	"github.com/jmodlink/jmodlink/pkg/plugin"
)

type linkFlags struct {
	output         string
	addModules     []string
	stages         []string
	platform       string
	baseModule     string
	noImplicitBase bool
	listStages     bool
	watch          bool
	ignore         []string
}

func newLinkCommand(app *App) *cobra.Command {
	var f linkFlags
	cmd := &cobra.Command{
		Use:   "link [flags] <module-root|jmod>...",
		Short: "Link modules into a runtime image",
		Long: `Link modules into a runtime image.

Each input is a module root directory or a jmod archive. Later inputs
replace earlier ones that define the same module. The modules named by
--add-modules and everything they require are linked; without
--add-modules every input module is a root.

Stages given with --stage replace the stages of the configuration file.
A stage is written as name or name:key=value,key=value.`,
		Example: `  jmodlink link -o build/modules app.jmod lib.jmod
  jmodlink link --add-modules app --stage sort-resources --stage compress:level=9 -o img app/ lib.jmod
  jmodlink link --watch -o build/modules app/ lib.jmod
  jmodlink link --list-stages`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.listStages {
				return app.fail(cmd, "list stages", app.listStages(cmd.OutOrStdout()))
			}
			if len(args) == 0 {
				return app.fail(cmd, "link", fmt.Errorf("no inputs given"))
			}
			if f.output == "" {
				return app.fail(cmd, "link", fmt.Errorf("--output is required"))
			}
			opts, err := app.linkOptions(f)
			if err != nil {
				return app.fail(cmd, "link", err)
			}
			res, err := linker.Link(cmd.Context(), opts, args...)
			if err != nil {
				return app.fail(cmd, "link "+f.output, err)
			}
			app.printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "path of the image to write")
	flags.StringSliceVar(&f.addModules, "add-modules", nil, "root modules (default: every input module)")
	flags.StringArrayVar(&f.stages, "stage", nil, "pipeline stage as name[:key=value,...] (repeatable)")
	flags.StringVar(&f.platform, "platform", "", "target platform as <os>-<arch> (default: configuration, then host)")
	flags.StringVar(&f.baseModule, "base-module", "", "module every module implicitly requires (default: configuration)")
	flags.BoolVar(&f.noImplicitBase, "no-implicit-base", false, "do not add the base module to every module's requires")
	flags.BoolVar(&f.listStages, "list-stages", false, "list the registered stages and their options")
	flags.BoolVarP(&f.watch, "watch", "w", false, "relink whenever an input changes")
	flags.StringArrayVar(&f.ignore, "watch-ignore", nil, "glob pattern, relative to a module root, that --watch ignores (repeatable)")
	return cmd
}

// linkOptions merges the configuration with flag overrides.
func (a *App) linkOptions(f linkFlags) (linker.Options, error) {
	c, err := a.capability()
	if err != nil {
		return linker.Options{}, err
	}
	opts := linker.Options{
		Roots:          f.addModules,
		OutputPath:     f.output,
		Stages:         a.cfg.PluginStages(),
		Platform:       a.cfg.Platform,
		BaseModule:     a.cfg.BaseModule,
		NoImplicitBase: f.noImplicitBase,
		Shim:           c,
		Retry:          a.cfg.RetryPolicy(),
		Logger:         a.logger,
	}
	if f.platform != "" {
		opts.Platform = f.platform
	}
	if f.baseModule != "" {
		opts.BaseModule = f.baseModule
	}
	if len(f.stages) > 0 {
		opts.Stages = make([]plugin.Config, 0, len(f.stages))
		for _, s := range f.stages {
			sc, err := parseStageFlag(s)
			if err != nil {
				return linker.Options{}, err
			}
			opts.Stages = append(opts.Stages, sc)
		}
	}
	return opts, nil
}

// parseStageFlag parses name[:key=value,...]. Native stage names carry
// their own colon, so options start at the colon after the native name.
func parseStageFlag(s string) (plugin.Config, error) {
	rest := s
	prefix := ""
	if strings.HasPrefix(s, linker.NativeStagePrefix) {
		prefix = linker.NativeStagePrefix
		rest = strings.TrimPrefix(s, prefix)
	}
	name, assignments, _ := strings.Cut(rest, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return plugin.Config{}, &plugin.PipelineConfigurationError{Stage: s, Reason: "empty stage name"}
	}
	opts, err := plugin.ParseAssignments(assignments)
	if err != nil {
		return plugin.Config{}, &plugin.PipelineConfigurationError{Stage: prefix + name, Reason: err.Error()}
	}
	return plugin.Config{Name: prefix + name, Options: opts}, nil
}

func (a *App) listStages(w io.Writer) error {
	c, err := a.capability()
	if err != nil {
		return err
	}
	reg, err := linker.StageRegistry(linker.Options{Shim: c})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, TitleStyle.Render("Stages"))
	for _, f := range reg.Factories() {
		fmt.Fprintf(w, "\n%s %s\n", CmdStyle.Render(f.Name), SubtitleStyle.Render("("+f.Category.String()+")"))
		if f.Description != "" {
			fmt.Fprintf(w, "  %s\n", f.Description)
		}
		switch {
		case f.OpenOptions:
			fmt.Fprintf(w, "  options: %s\n", VerboseStyle.Render("any"))
		case len(f.Options) > 0:
			fmt.Fprintf(w, "  options: %s\n", VerboseStyle.Render(strings.Join(f.Options, ", ")))
		}
	}
	return nil
}

// watchAndRelink relinks on every input change until the command's context
// is cancelled. Link failures are reported and watching continues.
func (a *App) watchAndRelink(cmd *cobra.Command, opts linker.Options, f linkFlags, inputs []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w, err := watch.New(watch.Config{
		Inputs:  inputs,
		Ignore:  f.ignore,
		Exclude: []string{opts.OutputPath},
		Logger:  a.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			a.logger.Info("relinking", "changed", len(changed))
			res, err := linker.Link(ctx, opts, inputs...)
			a.report(cmd, res, err)
			return nil
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("Watching inputs, press Ctrl+C to stop"))
	return w.Run(ctx)
}

// report prints a link result, or the error of a failed link.
func (a *App) report(cmd *cobra.Command, res *linker.Result, err error) {
	if err != nil {
		fmt.Fprintf(a.stderr, "%s %v\n", ErrorStyle.Render("✗"), err)
		return
	}
	a.printResult(cmd.OutOrStdout(), res)
}

func (a *App) printResult(w io.Writer, res *linker.Result) {
	fmt.Fprintf(w, "%s Linked %d module(s) into %s (%d entries, %s)\n",
		SuccessStyle.Render("✓"), len(res.Modules), res.OutputPath, res.EntryCount, formatBytes(res.TotalBytes))
	if a.verboseMode() {
		fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("modules:"), strings.Join(res.Modules, ", "))
		fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("stages:"), strings.Join(res.Stages, " → "))
	}
}

// formatBytes renders n with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
