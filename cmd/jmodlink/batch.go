// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/jmodlink/jmodlink/pkg/linker"
)

type (
	// batchManifest is the TOML file read by 'jmodlink batch'.
	batchManifest struct {
		Parallelism int        `toml:"parallelism"`
		Jobs        []batchJob `toml:"job"`
	}

	batchJob struct {
		Name     string   `toml:"name"`
		Inputs   []string `toml:"inputs"`
		Output   string   `toml:"output"`
		Platform string   `toml:"platform"`
		Roots    []string `toml:"roots"`
		Stages   []string `toml:"stages"`
	}
)

// errBatchFailed is returned when at least one job of a batch failed.
var errBatchFailed = errors.New("batch failed")

func newBatchCommand(app *App) *cobra.Command {
	var parallelism int
	cmd := &cobra.Command{
		Use:   "batch <manifest.toml>",
		Short: "Link several independent images in parallel",
		Long: `Link several independent images in parallel.

The manifest lists one [[job]] table per image. Relative paths are resolved
against the manifest's directory. Jobs without stages use the stages of the
configuration file.

  parallelism = 4

  [[job]]
  name = "server"
  inputs = ["mods/app.jmod", "mods/lib.jmod"]
  output = "out/server/modules"
  platform = "linux-x64"
  stages = ["sort-resources", "compress:level=9"]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readBatchManifest(args[0])
			if err != nil {
				return app.fail(cmd, "read batch manifest", err)
			}
			jobs, err := app.batchJobs(m, filepath.Dir(args[0]))
			if err != nil {
				return app.fail(cmd, "read batch manifest", err)
			}
			n := parallelism
			if n == 0 {
				n = m.Parallelism
			}
			if n == 0 {
				n = app.cfg.Parallelism
			}
			results := linker.LinkAll(cmd.Context(), jobs, n)
			return app.fail(cmd, "batch link", app.printBatch(cmd.OutOrStdout(), results))
		},
	}
	cmd.Flags().IntVarP(&parallelism, "parallel", "j", 0, "maximum concurrent links (default: manifest, configuration, then GOMAXPROCS)")
	return cmd
}

func readBatchManifest(path string) (*batchManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m batchManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("%s: no [[job]] tables", path)
	}
	if m.Parallelism < 0 {
		return nil, fmt.Errorf("%s: parallelism must not be negative", path)
	}
	return &m, nil
}

func (a *App) batchJobs(m *batchManifest, dir string) ([]linker.Job, error) {
	seen := make(map[string]bool, len(m.Jobs))
	jobs := make([]linker.Job, 0, len(m.Jobs))
	for i, j := range m.Jobs {
		if j.Name == "" {
			j.Name = fmt.Sprintf("job-%d", i+1)
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("job %q is defined twice", j.Name)
		}
		seen[j.Name] = true
		if j.Output == "" || len(j.Inputs) == 0 {
			return nil, fmt.Errorf("job %q needs inputs and an output", j.Name)
		}

		opts, err := a.linkOptions(linkFlags{
			output:     resolvePath(dir, j.Output),
			addModules: j.Roots,
			platform:   j.Platform,
			stages:     j.Stages,
		})
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Name, err)
		}
		inputs := make([]string, len(j.Inputs))
		for k, in := range j.Inputs {
			inputs[k] = resolvePath(dir, in)
		}
		jobs = append(jobs, linker.Job{Name: j.Name, Inputs: inputs, Options: opts})
	}
	return jobs, nil
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// printBatch reports every job and returns the first failure, if any.
func (a *App) printBatch(w io.Writer, results []linker.JobResult) error {
	var first error
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if first == nil {
				first = r.Err
			}
			fmt.Fprintf(w, "%s %s: %v\n", ErrorStyle.Render("✗"), CmdStyle.Render(r.Name), r.Err)
			continue
		}
		fmt.Fprintf(w, "%s %s: %d module(s), %d entries, %s\n",
			SuccessStyle.Render("✓"), CmdStyle.Render(r.Name), len(r.Result.Modules), r.Result.EntryCount, formatBytes(r.Result.TotalBytes))
	}
	if first == nil {
		return nil
	}
	return fmt.Errorf("%w: %d of %d jobs failed, first: %w", errBatchFailed, failed, len(results), first)
}
