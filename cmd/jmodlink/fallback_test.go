// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmodlink/jmodlink/internal/testutil"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
	"github.com/jmodlink/jmodlink/pkg/shim"
	"github.com/jmodlink/jmodlink/pkg/types"
)

var libJava = []byte("\x7fELF libjava")

// writeRuntime creates a runtime directory shipping java.base.
func writeRuntime(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	b := resource.NewBuilder()
	b.Add(resource.NewEntry("java.base", "java/lang/Object.class", poolcodec.KindClass, testutil.ClassBytes("java.lang.Object")))
	b.Add(resource.NewEntry("java.base", "module-info.bin", poolcodec.KindOther, moddesc.Encode(baseModule().Descriptor())))
	if err := shim.InstallImage(osfs.New(dir), b.Build()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib", "libjava.so"), libJava, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func fullBase() testutil.Module {
	m := baseModule()
	m.Files["lib/libjava.so"] = libJava
	m.Files["conf/security.properties"] = []byte("x=1\n")
	return m
}

func TestReduceRestoreCommands(t *testing.T) {
	t.Parallel()

	rt := writeRuntime(t)
	dir := t.TempDir()
	base := testutil.WriteArchive(t, dir, fullBase())

	reduced := run(t, nil, "reduce", "--runtime", rt, base)
	if reduced.err != nil {
		t.Fatalf("reduce error = %v\n%s", reduced.err, reduced.stderr)
	}
	if !strings.Contains(reduced.stdout, "reduced, 2 entries") {
		t.Errorf("reduce output = %q", reduced.stdout)
	}
	list := run(t, nil, "jmod", "list", base)
	if !strings.Contains(list.stdout, "classes/fallback.list") || strings.Contains(list.stdout, "lib/libjava.so") {
		t.Errorf("reduced archive entries:\n%s", list.stdout)
	}

	again := run(t, nil, "reduce", "--runtime", rt, base)
	if !strings.Contains(again.stdout, "already reduced") {
		t.Errorf("second reduce output = %q", again.stdout)
	}

	// The link puts the dropped entries back from the runtime.
	out := filepath.Join(dir, "modules")
	linked := run(t, nil, "link", "--runtime", rt, "-o", out, base)
	if linked.err != nil {
		t.Fatalf("link error = %v\n%s", linked.err, linked.stderr)
	}
	img := run(t, nil, "image", "list", out)
	for _, want := range []string{"/java.base/java/lang/Object.class", "/java.base/lib/libjava.so"} {
		if !strings.Contains(img.stdout, want) {
			t.Errorf("image misses %s:\n%s", want, img.stdout)
		}
	}
	if strings.Contains(img.stdout, "fallback.list") {
		t.Errorf("image still carries the fallback list:\n%s", img.stdout)
	}

	restoredPath := filepath.Join(dir, "restored.jmod")
	restored := run(t, nil, "restore", "--runtime", rt, "-o", restoredPath, base)
	if restored.err != nil {
		t.Fatalf("restore error = %v\n%s", restored.err, restored.stderr)
	}
	if !strings.Contains(restored.stdout, "restored, 2 entries") {
		t.Errorf("restore output = %q", restored.stdout)
	}
	list = run(t, nil, "jmod", "list", restoredPath)
	if strings.Contains(list.stdout, "fallback.list") || !strings.Contains(list.stdout, "lib/libjava.so") {
		t.Errorf("restored archive entries:\n%s", list.stdout)
	}
}

func TestReduceCommand_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := testutil.WriteArchive(t, dir, fullBase())
	b := testutil.WriteArchive(t, dir, appModule())

	tests := []struct {
		name      string
		args      []string
		want      types.ExitCode
		wantTopic string
	}{
		{"output with two inputs", []string{"reduce", "--runtime", writeRuntime(t), "-o", filepath.Join(dir, "x.jmod"), a, b}, types.ExitUsage, ""},
		{"no runtime image", []string{"reduce", "--binding", "memory", a}, types.ExitUsage, "no-runtime-image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, nil, tt.args...)
			if res.code() != tt.want {
				t.Errorf("exit code = %d, want %d (err %v)", res.code(), tt.want, res.err)
			}
			if tt.wantTopic != "" && !strings.Contains(res.stderr, "jmodlink explain "+tt.wantTopic) {
				t.Errorf("stderr does not point to %s:\n%s", tt.wantTopic, res.stderr)
			}
		})
	}
}
