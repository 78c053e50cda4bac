// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/internal/issue"
)

// errUnknownTopic is returned by 'jmodlink explain' for a topic the catalog lacks.
var errUnknownTopic = errors.New("unknown topic")

func newExplainCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [topic]",
		Short: "Explain an error class and how to fix it",
		Long: `Explain an error class and how to fix it.

Without a topic, lists every topic. Error messages name the topic that
explains them.`,
		Example: `  jmodlink explain
  jmodlink explain unresolved-dependency`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var names []string
			for _, i := range issue.Values() {
				names = append(names, i.Name())
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listTopics(cmd.OutOrStdout())
				return nil
			}
			i := issue.Lookup(args[0])
			if i == nil {
				return app.fail(cmd, "explain", fmt.Errorf("%w %q, run 'jmodlink explain' for the list", errUnknownTopic, args[0]))
			}
			out, err := i.Render(app.glamourStyle())
			if err != nil {
				return app.fail(cmd, "render "+args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func listTopics(w io.Writer) {
	fmt.Fprintln(w, TitleStyle.Render("Topics"))
	for _, i := range issue.Values() {
		fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render(fmt.Sprintf("%-28s", i.Name())), SubtitleStyle.Render(title(i.MarkdownMsg())))
	}
}

// title returns the first markdown heading of md.
func title(md issue.MarkdownMsg) string {
	for line := range strings.Lines(string(md)) {
		if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return h
		}
	}
	return ""
}

// glamourStyle maps the configured color scheme onto a glamour style.
func (a *App) glamourStyle() string {
	if a.cfg == nil {
		return "auto"
	}
	return string(a.cfg.UI.ColorScheme)
}
