// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmodlink/jmodlink/internal/config"
	"github.com/jmodlink/jmodlink/pkg/types"
)

func TestConfigShow(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Platform = "linux-aarch64"
	cfg.Stages = []config.StageConfig{{Name: "compress", Options: map[string]any{"level": 9}}}

	res := run(t, cfg, "config", "show")
	if res.err != nil {
		t.Fatalf("config show error = %v", res.err)
	}
	for _, want := range []string{"Current Configuration", "base_module: java.base", "platform: linux-aarch64", "compress level=9", "attempts: 3"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("config show missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestConfigShow_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	res := run(t, nil, "--config", "/no/such/jmodlink.cue", "config", "show")
	if res.err == nil || !strings.Contains(res.stderr, "config-load-failed") {
		t.Errorf("config show with a missing --config = %v\n%s", res.err, res.stderr)
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	res := run(t, nil, "config", "dump")
	if res.err != nil {
		t.Fatalf("config dump error = %v", res.err)
	}
	if !strings.HasPrefix(res.stdout, "// jmodlink configuration") || !strings.Contains(res.stdout, `base_module: "java.base"`) {
		t.Errorf("config dump:\n%s", res.stdout)
	}
}

// Not parallel: the config directory override is package state.
func TestConfigInitAndPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "jmodlink")
	config.SetConfigDirOverride(dir)
	t.Cleanup(config.Reset)

	path := run(t, nil, "config", "path")
	if path.err != nil || !strings.Contains(path.stdout, filepath.Join(dir, config.ConfigFileName)) {
		t.Fatalf("config path = %v\n%s", path.err, path.stdout)
	}

	if res := run(t, nil, "config", "init"); res.err != nil {
		t.Fatalf("config init error = %v\n%s", res.err, res.stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), `binding: "`) {
		t.Errorf("written config:\n%s", data)
	}

	again := run(t, nil, "config", "init")
	if again.code() != types.ExitUsage || !strings.Contains(again.stderr, "already exists") {
		t.Errorf("second config init = %v\n%s", again.err, again.stderr)
	}
	if res := run(t, nil, "config", "init", "--force"); res.err != nil {
		t.Errorf("config init --force error = %v", res.err)
	}

	show := run(t, nil, "config", "show")
	if !strings.Contains(show.stdout, filepath.Join(dir, config.ConfigFileName)) {
		t.Errorf("config show does not name the user config file:\n%s", show.stdout)
	}
}
