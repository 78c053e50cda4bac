// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/internal/issue"
	"github.com/jmodlink/jmodlink/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "jmodlink"
	// ConfigFileName is the name of the config file in the config directory.
	ConfigFileName = "config.cue"
	// ProjectFileName is the config file looked up in the base directory.
	ProjectFileName = "jmodlink.cue"
	// EnvPrefix prefixes every environment override, e.g. JMODLINK_BASE_MODULE.
	EnvPrefix = "JMODLINK"
	// DotEnvFileName is read from the base directory when present.
	DotEnvFileName = ".env"
)

//go:embed config_schema.cue
var configSchema []byte

// keys lists every scalar setting that environment variables can override.
var keys = []string{
	"base_module",
	"runtime_path",
	"binding",
	"platform",
	"parallelism",
	"retry.attempts",
	"retry.backoff",
	"ui.color_scheme",
	"ui.verbose",
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ConfigDir returns the jmodlink configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. Sources in increasing precedence: defaults, the CUE
// file, the .env file, the process environment.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("base_module", defaults.BaseModule)
	v.SetDefault("runtime_path", defaults.RuntimePath)
	v.SetDefault("binding", defaults.Binding)
	v.SetDefault("platform", defaults.Platform)
	v.SetDefault("parallelism", defaults.Parallelism)
	v.SetDefault("retry.attempts", defaults.Retry.Attempts)
	v.SetDefault("retry.backoff", defaults.Retry.Backoff)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				Wrap(err).
				BuildError()
		}
	}

	if err := loadDotEnv(v, filepath.Join(opts.baseDir(), DotEnvFileName)); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("read environment file").
			WithResource(filepath.Join(opts.baseDir(), DotEnvFileName)).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Each line must look like KEY=value").
			Wrap(err).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if ok, errs := cfg.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Use 'jmodlink config show' to see the effective configuration").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// ResolveFile returns the config file Load would read for opts, or "" when
// none exists.
func ResolveFile(opts LoadOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	return resolveConfigFile(opts)
}

// Save writes cfg as CUE to path atomically, creating parent directories.
func Save(ctx context.Context, cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return iox.WriteFileAtomic(ctx, cfg.RetryPolicy(), path, func(w io.Writer) error {
		_, err := io.WriteString(w, GenerateCUE(cfg))
		return err
	})
}

// resolveConfigFile picks the CUE file to load: the explicit path, which
// must exist, else jmodlink.cue in the base directory, else config.cue in the
// config directory. An empty result means defaults only.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		path := string(opts.ConfigFilePath)
		if !fileExists(path) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		return path, nil
	}

	if local := filepath.Join(opts.baseDir(), ProjectFileName); fileExists(local) {
		return local, nil
	}

	cfgDir := string(opts.ConfigDirPath)
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	if global := filepath.Join(cfgDir, ConfigFileName); fileExists(global) {
		return global, nil
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper. Concrete(false) keeps optional fields optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config",
		cueutil.WithConcrete(false),
		cueutil.WithFilename(path),
	)
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// loadDotEnv applies JMODLINK_* assignments from a .env file for every key
// the process environment does not already set.
func loadDotEnv(v *viper.Viper, path string) error {
	if !fileExists(path) {
		return nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for _, key := range keys {
		name := EnvName(key)
		val, ok := env[name]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		v.Set(key, val)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// jmodlink configuration\n\n")

	fmt.Fprintf(&sb, "base_module: %q\n", cfg.BaseModule)
	if cfg.RuntimePath != "" {
		fmt.Fprintf(&sb, "runtime_path: %q\n", cfg.RuntimePath)
	}
	fmt.Fprintf(&sb, "binding: %q\n", cfg.Binding)
	if cfg.Platform != "" {
		fmt.Fprintf(&sb, "platform: %q\n", cfg.Platform)
	}
	if cfg.Parallelism > 0 {
		fmt.Fprintf(&sb, "parallelism: %d\n", cfg.Parallelism)
	}

	sb.WriteString("\nretry: {\n")
	fmt.Fprintf(&sb, "\tattempts: %d\n", cfg.Retry.Attempts)
	fmt.Fprintf(&sb, "\tbackoff: %q\n", cfg.Retry.Backoff.String())
	sb.WriteString("}\n")

	if len(cfg.Stages) > 0 {
		sb.WriteString("\nstages: [\n")
		for _, s := range cfg.Stages {
			fmt.Fprintf(&sb, "\t{name: %q", s.Name)
			if s.Priority != 0 {
				fmt.Fprintf(&sb, ", priority: %d", s.Priority)
			}
			if len(s.Before) > 0 {
				fmt.Fprintf(&sb, ", before: %s", cueStrings(s.Before))
			}
			if len(s.After) > 0 {
				fmt.Fprintf(&sb, ", after: %s", cueStrings(s.After))
			}
			if len(s.Options) > 0 {
				sb.WriteString(", options: {")
				for i, k := range sortedKeys(s.Options) {
					if i > 0 {
						sb.WriteString(", ")
					}
					fmt.Fprintf(&sb, "%q: %s", k, cueValue(s.Options[k]))
				}
				sb.WriteString("}")
			}
			sb.WriteString("},\n")
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueStrings(list []string) string {
	quoted := make([]string, len(list))
	for i, s := range list {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func cueValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case bool, int, int32, int64, uint64, float64:
		return fmt.Sprint(x)
	case []string:
		return cueStrings(x)
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = cueValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	default:
		return fmt.Sprintf("%q", fmt.Sprint(x))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
