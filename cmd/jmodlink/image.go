// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/pkg/jimage"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

func newImageCommand(app *App) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Inspect runtime images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		module string
		long   bool
	)
	listCmd := &cobra.Command{
		Use:   "list <image>",
		Short: "List the resources of an image",
		Example: `  jmodlink image list build/modules
  jmodlink image list build/modules --module java.base -l`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := jimage.Open(cmd.Context(), args[0])
			if err != nil {
				return app.fail(cmd, "open "+args[0], err)
			}
			defer func() { _ = r.Close() }()
			if module != "" && !r.HasModule(module) {
				return app.fail(cmd, "list "+args[0], fmt.Errorf("module %s: %w", module, poolcodec.ErrEntryNotFound))
			}
			listImage(cmd.OutOrStdout(), r, module, long)
			return nil
		},
	}
	listCmd.Flags().StringVar(&module, "module", "", "only list this module")
	listCmd.Flags().BoolVarP(&long, "long", "l", false, "show kind, compression and sizes")

	imageCmd.AddCommand(listCmd, &cobra.Command{
		Use:   "modules <image>",
		Short: "List the modules of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := jimage.Open(cmd.Context(), args[0])
			if err != nil {
				return app.fail(cmd, "open "+args[0], err)
			}
			defer func() { _ = r.Close() }()
			for _, m := range r.Modules() {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	})
	return imageCmd
}

func listImage(w io.Writer, r *jimage.Reader, module string, long bool) {
	for loc := range r.Locations() {
		if module != "" && loc.Module != module {
			continue
		}
		if !long {
			fmt.Fprintln(w, loc.Path())
			continue
		}
		fmt.Fprintf(w, "%-10s %-8s %10d %10d  %s\n", loc.Kind, loc.Compression, loc.Size, loc.StoredSize, loc.Path())
	}
}
