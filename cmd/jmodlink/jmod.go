// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/pkg/jmod"
	"github.com/jmodlink/jmodlink/pkg/linker"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

func newJmodCommand(app *App) *cobra.Command {
	jmodCmd := &cobra.Command{
		Use:   "jmod",
		Short: "Create and inspect jmod archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	jmodCmd.AddCommand(
		newJmodCreateCommand(app),
		newJmodListCommand(app),
		newJmodDescribeCommand(app),
	)
	return jmodCmd
}

func newJmodCreateCommand(app *App) *cobra.Command {
	var (
		root          string
		level         int
		compressKinds []string
	)
	cmd := &cobra.Command{
		Use:   "create --root <dir> <out.jmod>",
		Short: "Create a jmod archive from a module root",
		Long: `Create a jmod archive from a module root.

The root holds module-info.cue or module-info.toml and the sections classes/,
conf/, lib/, bin/, man/, legal/ and include/. The package list of the
descriptor is derived from classes/.`,
		Example: `  jmodlink jmod create --root src/app app.jmod
  jmodlink jmod create --root src/app --compress 6 app.jmod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if root == "" {
				return app.fail(cmd, "create archive", fmt.Errorf("--root is required"))
			}
			kinds, err := parseKinds(compressKinds)
			if err != nil {
				return app.fail(cmd, "create archive", err)
			}
			src, err := jmod.OpenDirectoryPath(root)
			if err != nil {
				return app.fail(cmd, "create archive from "+root, err)
			}
			stats, err := jmod.Create(cmd.Context(), args[0], func(w *jmod.Writer) error {
				if level >= 0 {
					if err := w.SetCompression(level, kinds...); err != nil {
						return err
					}
				}
				return jmod.Copy(w, src)
			})
			if err != nil {
				return app.fail(cmd, "create "+args[0], err)
			}
			d, _ := src.Descriptor()
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s for module %s (%d entries, %s)\n",
				SuccessStyle.Render("✓"), args[0], CmdStyle.Render(d.Name), stats.Entries, formatBytes(int64(stats.Bytes)))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "module root directory")
	cmd.Flags().IntVar(&level, "compress", -1, "DEFLATE level 0-9 for compressible entries (default: store)")
	cmd.Flags().StringSliceVar(&compressKinds, "compress-kinds", []string{"class", "config"}, "resource kinds to compress")
	return cmd
}

func parseKinds(names []string) ([]poolcodec.Kind, error) {
	kinds := make([]poolcodec.Kind, 0, len(names))
	for _, n := range names {
		k, err := poolcodec.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func newJmodListCommand(app *App) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "list <jmod>",
		Short: "List the entries of a jmod archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.openArchive(cmd.Context(), args[0])
			if err != nil {
				return app.fail(cmd, "open "+args[0], err)
			}
			defer func() { _ = r.Close() }()
			return app.fail(cmd, "list "+args[0], listArchive(cmd.OutOrStdout(), r, long))
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show kind, compression and sizes")
	return cmd
}

func (a *App) openArchive(ctx context.Context, path string) (*jmod.Reader, error) {
	p := a.cfg.RetryPolicy()
	return jmod.Open(ctx, path, jmod.WithRetry(p.Attempts, p.Backoff))
}

// openSource opens a jmod archive or a module root directory.
func openSource(ctx context.Context, app *App, path string) (jmod.Source, error) {
	return linker.OpenInput(ctx, path, app.cfg.RetryPolicy())
}

func listArchive(w io.Writer, r *jmod.Reader, long bool) error {
	for name := range r.Entries() {
		if !long {
			fmt.Fprintln(w, name)
			continue
		}
		info, err := r.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-10s %-8s %10d %10d  %s\n", info.Kind, info.Compression, info.Size, info.StoredSize, name)
	}
	return nil
}

func newJmodDescribeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <jmod|module-root>",
		Short: "Print the module descriptor of an archive or module root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(cmd.Context(), app, args[0])
			if err != nil {
				return app.fail(cmd, "open "+args[0], err)
			}
			defer func() { _ = src.Close() }()
			d, err := src.Descriptor()
			if err != nil {
				return app.fail(cmd, "describe "+args[0], err)
			}
			describe(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

// describe prints d in the layout of a module declaration.
func describe(w io.Writer, d *moddesc.Descriptor) {
	header := d.Name
	if d.Version != "" {
		header += "@" + d.Version
	}
	if d.Open {
		header = "open " + header
	}
	fmt.Fprintln(w, TitleStyle.Render(header))
	for _, r := range d.Requires {
		if mods := r.Modifiers.String(); mods != "" {
			fmt.Fprintf(w, "requires %s %s\n", mods, r.Name)
		} else {
			fmt.Fprintf(w, "requires %s\n", r.Name)
		}
	}
	for _, e := range d.Exports {
		fmt.Fprintln(w, qualified("exports", e))
	}
	for _, o := range d.Opens {
		fmt.Fprintln(w, qualified("opens", o))
	}
	for _, u := range d.Uses {
		fmt.Fprintf(w, "uses %s\n", u)
	}
	for _, p := range d.Provides {
		fmt.Fprintf(w, "provides %s with %s\n", p.Service, strings.Join(p.Providers, ", "))
	}
	if d.MainClass != "" {
		fmt.Fprintf(w, "main-class %s\n", d.MainClass)
	}
	for _, p := range d.Packages {
		fmt.Fprintf(w, "contains %s\n", p)
	}
}

func qualified(verb string, e moddesc.Exports) string {
	if len(e.Targets) == 0 {
		return verb + " " + e.Package
	}
	return fmt.Sprintf("%s %s to %s", verb, e.Package, strings.Join(e.Targets, ", "))
}
