// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/platform"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/shim"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidRetryConfig is the sentinel error wrapped by InvalidRetryConfigError.
	ErrInvalidRetryConfig = errors.New("invalid retry config")
	// ErrInvalidStageConfig is the sentinel error wrapped by InvalidStageConfigError.
	ErrInvalidStageConfig = errors.New("invalid stage config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidRetryConfigError is returned when a RetryConfig is out of range.
	InvalidRetryConfigError struct {
		Reason string
	}

	// InvalidStageConfigError is returned when a StageConfig has invalid fields.
	InvalidStageConfigError struct {
		Index  int
		Name   string
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// BaseModule is the module every module implicitly requires.
		BaseModule string `json:"base_module" mapstructure:"base_module"`
		// RuntimePath is the runtime directory holding lib/modules and the
		// native files fallback lists refer to. Empty means none.
		RuntimePath string `json:"runtime_path" mapstructure:"runtime_path"`
		// Binding selects the shim binding ("portable" or "memory").
		Binding string `json:"binding" mapstructure:"binding"`
		// Platform is the target "<os>-<arch>"; empty means the host.
		Platform string `json:"platform" mapstructure:"platform"`
		// Parallelism bounds concurrent links in batch mode; 0 means GOMAXPROCS.
		Parallelism int `json:"parallelism" mapstructure:"parallelism"`
		// Retry configures retries of transient local I/O errors.
		Retry RetryConfig `json:"retry" mapstructure:"retry"`
		// Stages are the pipeline stages used when the command line names none.
		Stages []StageConfig `json:"stages" mapstructure:"stages"`
		// UI contains user interface settings.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RetryConfig configures the I/O retry policy.
	RetryConfig struct {
		Attempts int           `json:"attempts" mapstructure:"attempts"`
		Backoff  time.Duration `json:"backoff" mapstructure:"backoff"`
	}

	// StageConfig selects and configures one pipeline stage.
	StageConfig struct {
		Name     string         `json:"name" mapstructure:"name"`
		Priority int            `json:"priority" mapstructure:"priority"`
		Before   []string       `json:"before" mapstructure:"before"`
		After    []string       `json:"after" mapstructure:"after"`
		Options  map[string]any `json:"options" mapstructure:"options"`
	}

	// UIConfig contains UI-related configuration.
	UIConfig struct {
		// ColorScheme sets the color scheme ("auto", "dark", "light").
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	p := iox.DefaultPolicy()
	return &Config{
		BaseModule: "java.base",
		Binding:    shim.DefaultBinding,
		Retry: RetryConfig{
			Attempts: p.Attempts,
			Backoff:  p.Backoff,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() iox.Policy {
	return iox.Policy{Attempts: c.Retry.Attempts, Backoff: c.Retry.Backoff}
}

// PluginStages converts the configured stages for plugin.Registry.Build.
func (c *Config) PluginStages() []plugin.Config {
	out := make([]plugin.Config, 0, len(c.Stages))
	for _, s := range c.Stages {
		out = append(out, s.PluginConfig())
	}
	return out
}

// PluginConfig converts s for plugin.Registry.Build.
func (s StageConfig) PluginConfig() plugin.Config {
	opts := plugin.Options{}
	for k, v := range s.Options {
		opts[k] = v
	}
	return plugin.Config{
		Name:     s.Name,
		Priority: s.Priority,
		Before:   slices.Clone(s.Before),
		After:    slices.Clone(s.After),
		Options:  opts,
	}
}

// IsValid returns whether the ColorScheme is one of the defined values.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid returns whether the RetryConfig is usable.
func (r RetryConfig) IsValid() (bool, []error) {
	var errs []error
	if r.Attempts < 1 {
		errs = append(errs, &InvalidRetryConfigError{Reason: fmt.Sprintf("attempts must be at least 1, got %d", r.Attempts)})
	}
	if r.Backoff < 0 {
		errs = append(errs, &InvalidRetryConfigError{Reason: fmt.Sprintf("backoff must not be negative, got %s", r.Backoff)})
	}
	return len(errs) == 0, errs
}

// Error implements the error interface.
func (e *InvalidRetryConfigError) Error() string {
	return "invalid retry config: " + e.Reason
}

// Unwrap returns ErrInvalidRetryConfig for errors.Is() compatibility.
func (e *InvalidRetryConfigError) Unwrap() error { return ErrInvalidRetryConfig }

// Error implements the error interface.
func (e *InvalidStageConfigError) Error() string {
	return fmt.Sprintf("stages[%d] %q: %s", e.Index, e.Name, e.Reason)
}

// Unwrap returns ErrInvalidStageConfig for errors.Is() compatibility.
func (e *InvalidStageConfigError) Unwrap() error { return ErrInvalidStageConfig }

func validateStages(stages []StageConfig) []error {
	var errs []error
	seen := make(map[string]int)
	for i, s := range stages {
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, &InvalidStageConfigError{Index: i, Reason: "name must not be empty"})
			continue
		}
		if first, dup := seen[s.Name]; dup {
			errs = append(errs, &InvalidStageConfigError{Index: i, Name: s.Name, Reason: fmt.Sprintf("already configured at stages[%d]", first)})
			continue
		}
		seen[s.Name] = i
	}
	return errs
}

// IsValid returns whether the Config is valid, collecting the errors of
// every field. Stage names are checked for shape only; the registry
// rejects unknown stages when the pipeline is built.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.BaseModule) == "" {
		errs = append(errs, fmt.Errorf("base_module must not be empty"))
	}
	if !slices.Contains(shim.Bindings(), c.Binding) {
		errs = append(errs, &shim.UnknownBindingError{Name: c.Binding, Known: shim.Bindings()})
	}
	if c.Platform != "" {
		if _, err := platform.ParseTarget(c.Platform); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism))
	}
	if ok, retryErrs := c.Retry.IsValid(); !ok {
		errs = append(errs, retryErrs...)
	}
	errs = append(errs, validateStages(c.Stages)...)
	if ok, uiErrs := c.UI.ColorScheme.IsValid(); !ok {
		errs = append(errs, uiErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
