// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/internal/config"
	"github.com/jmodlink/jmodlink/pkg/types"
)

// newConfigCommand creates the `jmodlink config` command tree. Subcommands
// report the configuration the root command loaded, flags applied.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage jmodlink configuration",
		Long: `Manage jmodlink configuration.

Settings are read, in increasing precedence, from built-in defaults, a CUE
file, a .env file in the working directory and JMODLINK_* environment
variables. The CUE file is the first of:
  - the file given with --config
  - ./jmodlink.cue
  - Linux: ~/.config/jmodlink/config.cue
  - macOS: ~/Library/Application Support/jmodlink/config.cue
  - Windows: %APPDATA%\jmodlink\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ResolveFile(config.LoadOptions{ConfigFilePath: types.FilesystemPath(app.cfgFile)})
			if err != nil {
				return app.fail(cmd, "show configuration", err)
			}
			showConfig(cmd.OutOrStdout(), app.cfg, source)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return app.fail(cmd, "show configuration path", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(w, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName))
			fmt.Fprintf(w, "Project file: %s\n", config.ProjectFileName)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.cfg))
			return nil
		},
	})

	var project, force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ProjectFileName
			if !project {
				cfgDir, err := config.ConfigDir()
				if err != nil {
					return app.fail(cmd, "create configuration", err)
				}
				path = filepath.Join(cfgDir, config.ConfigFileName)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return app.fail(cmd, "create configuration", fmt.Errorf("%s already exists, use --force to overwrite", path))
			}
			if err := config.Save(cmd.Context(), config.DefaultConfig(), path); err != nil {
				return app.fail(cmd, "create configuration", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&project, "project", false, "write ./jmodlink.cue instead of the user config file")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, source string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	none := SubtitleStyle.Render("(none)")
	value := func(s string) string {
		if s == "" {
			return none
		}
		return valueStyle.Render(s)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if source == "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), source)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("base_module"), value(cfg.BaseModule))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("runtime_path"), value(cfg.RuntimePath))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("binding"), value(cfg.Binding))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("platform"), value(cfg.Platform))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("parallelism"), valueStyle.Render(fmt.Sprint(cfg.Parallelism)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("retry"))
	fmt.Fprintf(w, "  attempts: %s\n", valueStyle.Render(fmt.Sprint(cfg.Retry.Attempts)))
	fmt.Fprintf(w, "  backoff: %s\n", valueStyle.Render(cfg.Retry.Backoff.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("stages"))
	if len(cfg.Stages) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, s := range cfg.Stages {
		line := valueStyle.Render(s.Name)
		if len(s.Options) > 0 {
			opts := make([]string, 0, len(s.Options))
			for _, k := range s.PluginConfig().Options.Keys() {
				opts = append(opts, fmt.Sprintf("%s=%v", k, s.Options[k]))
			}
			line += " " + VerboseStyle.Render(strings.Join(opts, ","))
		}
		fmt.Fprintf(w, "  - %s\n", line)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))
}
