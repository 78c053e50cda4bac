// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/jmodlink/jmodlink/internal/config"
	"github.com/jmodlink/jmodlink/pkg/fallback"
	"github.com/jmodlink/jmodlink/pkg/shim"
	"github.com/jmodlink/jmodlink/pkg/types"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared state. Every command handler receives
	// the App; PersistentPreRunE fills cfg and logger before any RunE runs.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer

		// global flags
		verbose     bool
		cfgFile     string
		runtimePath string
		binding     string

		cfg    *config.Config
		logger *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp builds an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// init loads the configuration and builds the logger. Flags override the
// configuration.
func (a *App) init(ctx context.Context) error {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: types.FilesystemPath(a.cfgFile)})
	if err != nil {
		return err
	}
	if a.runtimePath != "" {
		cfg.RuntimePath = a.runtimePath
	}
	if a.binding != "" {
		cfg.Binding = a.binding
	}
	if a.verbose {
		cfg.UI.Verbose = true
	}
	a.cfg = cfg

	level := log.InfoLevel
	if cfg.UI.Verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "jmodlink",
		Level:           level,
		ReportTimestamp: cfg.UI.Verbose,
	})
	return nil
}

// capability selects the configured shim binding over the runtime path.
func (a *App) capability() (shim.Capability, error) {
	return shim.Select(a.cfg.Binding, shim.BindingOptions{RuntimePath: a.cfg.RuntimePath})
}

// runtime opens the runtime that reduce and restore compare against.
func (a *App) runtime(ctx context.Context) (*fallback.Runtime, error) {
	c, err := a.capability()
	if err != nil {
		return nil, err
	}
	return fallback.OpenRuntime(ctx, c)
}

// verboseMode reports whether full error chains and debug logs are wanted.
func (a *App) verboseMode() bool {
	return a.verbose || (a.cfg != nil && a.cfg.UI.Verbose)
}
