// SPDX-License-Identifier: MPL-2.0

package jmod

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

var classMagic = []byte{0xca, 0xfe, 0xba, 0xbe}

func buildArchive(t *testing.T, configure func(w *Writer)) []byte {
	t.Helper()
	w := NewWriter()
	if err := w.AddDescriptor(&moddesc.Descriptor{
		Name:     "com.example.app",
		Requires: []moddesc.Requires{{Name: "java.base", Modifiers: moddesc.Mandated}},
		Exports:  []moddesc.Exports{{Package: "com.example.app"}},
	}); err != nil {
		t.Fatal(err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.Add("classes/com/example/app/Main.class", poolcodec.KindClass, append(classMagic, bytes.Repeat([]byte{1}, 64)...)))
	must(w.Add("conf/app.properties", poolcodec.KindConfig, bytes.Repeat([]byte("key=value\n"), 50)))
	must(w.Add("lib/libnative.so", poolcodec.KindNativeLib, []byte{0x7f, 'E', 'L', 'F'}))
	must(w.Add("legal/LICENSE", poolcodec.KindLegal, nil))
	if configure != nil {
		configure(w)
	}
	var buf bytes.Buffer
	if _, err := w.Finalize(&buf); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return buf.Bytes()
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, compressed := range []bool{false, true} {
		data := buildArchive(t, func(w *Writer) {
			if compressed {
				if err := w.SetCompression(9, poolcodec.KindConfig, poolcodec.KindClass); err != nil {
					t.Fatal(err)
				}
			}
		})
		r, err := NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}

		want := []string{"classes/com/example/app/Main.class", "conf/app.properties", "legal/LICENSE", "lib/libnative.so", "module-info.bin"}
		if got := slices.Collect(r.Entries()); !slices.Equal(got, want) {
			t.Errorf("Entries() = %v, want %v", got, want)
		}
		// The sequence is restartable.
		if n := len(slices.Collect(r.Entries())); n != len(want) {
			t.Errorf("second iteration yielded %d entries", n)
		}

		conf, err := r.ReadEntry("conf/app.properties")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(conf, bytes.Repeat([]byte("key=value\n"), 50)) {
			t.Error("conf entry content differs")
		}
		info, _ := r.Stat("conf/app.properties")
		if compressed != (info.Compression == poolcodec.CompressionDeflate) {
			t.Errorf("compressed=%v but entry stored as %s", compressed, info.Compression)
		}
		if info.Kind != poolcodec.KindConfig {
			t.Errorf("Kind = %s", info.Kind)
		}

		d, err := r.Descriptor()
		if err != nil {
			t.Fatalf("Descriptor() error = %v", err)
		}
		if d.Name != "com.example.app" || !slices.Equal(d.Packages, []string{"com.example.app"}) {
			t.Errorf("descriptor = %+v", d)
		}
	}
}

func TestReader_EntryNotFound(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, nil)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.ReadEntry("classes/missing.class")
	var nf *poolcodec.EntryNotFoundError
	if !errors.As(err, &nf) || nf.Name != "classes/missing.class" {
		t.Errorf("ReadEntry() error = %v, want EntryNotFoundError", err)
	}
}

func TestReader_Malformed(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, nil)
	flip := func(at int, v byte) []byte {
		c := bytes.Clone(data)
		c[at] = v
		return c
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated by one byte", data[:len(data)-1]},
		{"shorter than header", data[:10]},
		{"bad magic", flip(0, 'X')},
		{"bad major version", flip(2, 7)},
		{"extra trailing byte", append(bytes.Clone(data), 0)},
		{"bad kind byte", flip(headerIndexOffset(data)+4, 0xee)},
		{"bad compression tag", flip(headerIndexOffset(data)+5, 0x09)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewReader(bytes.NewReader(tt.data), int64(len(tt.data)))
			if !errors.Is(err, poolcodec.ErrMalformedContainer) {
				t.Errorf("NewReader() error = %v, want ErrMalformedContainer", err)
			}
		})
	}
}

func headerIndexOffset(data []byte) int {
	// u64 index offset sits after magic, versions, flags, count, pool offset and length.
	off := 0
	for _, b := range data[26:34] {
		off = off<<8 | int(b)
	}
	return off
}

func TestWriter_Rules(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	for _, bad := range []string{"", "/abs", "a/../b", "a//b", "dir/", `a\b`} {
		if err := w.Add(bad, poolcodec.KindOther, nil); !errors.Is(err, ErrInvalidEntryName) {
			t.Errorf("Add(%q) error = %v, want ErrInvalidEntryName", bad, err)
		}
	}
	if err := w.Add("conf/x", poolcodec.KindConfig, []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("conf/x", poolcodec.KindConfig, []byte("2")); err != nil {
		t.Fatal(err)
	}
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after re-adding a name", w.Len())
	}
	if err := w.SetCompression(10); err == nil {
		t.Error("expected error for level 10")
	}

	var buf bytes.Buffer
	if _, err := w.Finalize(&buf); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("conf/y", poolcodec.KindConfig, nil); !errors.Is(err, ErrWriterFinalized) {
		t.Errorf("Add after Finalize error = %v", err)
	}
	if _, err := w.Finalize(&buf); !errors.Is(err, ErrWriterFinalized) {
		t.Errorf("second Finalize error = %v", err)
	}
}

func TestWriter_Deterministic(t *testing.T) {
	t.Parallel()

	a := buildArchive(t, nil)
	b := buildArchive(t, nil)
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different archives")
	}
}

func TestDirectory_CopyToArchive(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	files := map[string]string{
		moddesc.SourceTOML:                   "module = \"com.example.tool\"\nmain_class = \"com.example.tool.Cli\"\n\n[[exports]]\npackage = \"com.example.tool\"\n",
		"classes/com/example/tool/Cli.class": "\xca\xfe\xba\xbe",
		"classes/com/example/tool/msg.txt":   "hello",
		"bin/tool":                           "#!/bin/sh\n",
		"man/man1/tool.1":                    ".TH TOOL 1",
	}
	for name, content := range files {
		if err := util.WriteFile(fsys, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dir, err := OpenDirectory(fsys, "tool")
	if err != nil {
		t.Fatalf("OpenDirectory() error = %v", err)
	}
	want := []string{DescriptorEntry, "bin/tool", "classes/com/example/tool/Cli.class", "classes/com/example/tool/msg.txt", "man/man1/tool.1"}
	if got := slices.Collect(dir.Entries()); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	out := filepath.Join(t.TempDir(), "tool.jmod")
	stats, err := Create(context.Background(), out, func(w *Writer) error { return Copy(w, dir) })
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if stats.Entries != len(want) {
		t.Errorf("Entries = %d, want %d", stats.Entries, len(want))
	}

	r, err := Open(context.Background(), out)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	d, err := r.Descriptor()
	if err != nil {
		t.Fatal(err)
	}
	if d.MainClass != "com.example.tool.Cli" {
		t.Errorf("MainClass = %q", d.MainClass)
	}
	if info, _ := r.Stat("bin/tool"); info.Kind != poolcodec.KindNativeCmd {
		t.Errorf("bin/tool kind = %s", info.Kind)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() != int64(stats.Bytes) {
		t.Errorf("file size = %v (%v), want %d", fi, err, stats.Bytes)
	}
}

func TestDirectory_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no descriptor source", func(t *testing.T) {
		t.Parallel()
		fsys := memfs.New()
		_ = util.WriteFile(fsys, "classes/a/A.class", nil, 0o644)
		if _, err := OpenDirectory(fsys, "x"); !errors.Is(err, ErrNoDescriptorSource) {
			t.Errorf("error = %v, want ErrNoDescriptorSource", err)
		}
	})

	t.Run("export without classes", func(t *testing.T) {
		t.Parallel()
		fsys := memfs.New()
		_ = util.WriteFile(fsys, moddesc.SourceCUE, []byte(`module: "m", exports: [{package: "ghost"}]`), 0o644)
		if _, err := OpenDirectory(fsys, "m"); !errors.Is(err, moddesc.ErrInvalidModuleDescriptor) {
			t.Errorf("error = %v, want ErrInvalidModuleDescriptor", err)
		}
	})

	t.Run("unnamed package class", func(t *testing.T) {
		t.Parallel()
		fsys := memfs.New()
		_ = util.WriteFile(fsys, moddesc.SourceCUE, []byte(`module: "m"`), 0o644)
		_ = util.WriteFile(fsys, "classes/Loose.class", nil, 0o644)
		if _, err := OpenDirectory(fsys, "m"); !errors.Is(err, moddesc.ErrInvalidModuleDescriptor) {
			t.Errorf("error = %v, want ErrInvalidModuleDescriptor", err)
		}
	})
}

func TestSectionMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entry    string
		kind     poolcodec.Kind
		resource string
	}{
		{"classes/com/x/A.class", poolcodec.KindClass, "com/x/A.class"},
		{"conf/security/java.policy", poolcodec.KindConfig, "conf/security/java.policy"},
		{"lib/libzip.so", poolcodec.KindNativeLib, "lib/libzip.so"},
		{"bin/java", poolcodec.KindNativeCmd, "bin/java"},
		{"include/jni.h", poolcodec.KindHeader, "include/jni.h"},
		{"legal/LICENSE", poolcodec.KindLegal, "legal/LICENSE"},
		{"man/man1/java.1", poolcodec.KindManPage, "man/man1/java.1"},
		{DescriptorEntry, poolcodec.KindOther, DescriptorEntry},
	}
	for _, tt := range tests {
		if k := KindForPath(tt.entry); k != tt.kind {
			t.Errorf("KindForPath(%s) = %s, want %s", tt.entry, k, tt.kind)
		}
		if r := ResourceName(tt.entry); r != tt.resource {
			t.Errorf("ResourceName(%s) = %s, want %s", tt.entry, r, tt.resource)
		}
		if e := EntryName(tt.kind, tt.resource); e != tt.entry {
			t.Errorf("EntryName(%s, %s) = %s, want %s", tt.kind, tt.resource, e, tt.entry)
		}
	}
}

func TestReader_DescriptorPackages(t *testing.T) {
	t.Parallel()

	open := func(t *testing.T, d *moddesc.Descriptor, files ...string) (*moddesc.Descriptor, error) {
		t.Helper()
		w := NewWriter()
		if err := w.AddDescriptor(d); err != nil {
			t.Fatal(err)
		}
		for _, f := range files {
			if err := w.Add(f, KindForPath(f), classMagic); err != nil {
				t.Fatal(err)
			}
		}
		var buf bytes.Buffer
		if _, err := w.Finalize(&buf); err != nil {
			t.Fatal(err)
		}
		r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatal(err)
		}
		return r.Descriptor()
	}

	t.Run("resource-only package cannot be exported", func(t *testing.T) {
		t.Parallel()
		d := &moddesc.Descriptor{Name: "app", Exports: []moddesc.Exports{{Package: "app"}, {Package: "app.res"}}}
		_, err := open(t, d, "classes/app/Main.class", "classes/app/res/x.properties")
		if !errors.Is(err, moddesc.ErrInvalidModuleDescriptor) {
			t.Errorf("Descriptor() error = %v, want ErrInvalidModuleDescriptor", err)
		}
	})

	t.Run("resources do not add packages", func(t *testing.T) {
		t.Parallel()
		d := &moddesc.Descriptor{Name: "app", Exports: []moddesc.Exports{{Package: "app"}}}
		got, err := open(t, d, "classes/app/Main.class", "classes/app/res/x.properties")
		if err != nil {
			t.Fatalf("Descriptor() error = %v", err)
		}
		if !slices.Equal(got.Packages, []string{"app"}) {
			t.Errorf("Packages = %v, want [app]", got.Packages)
		}
	})

	t.Run("recorded packages survive reduction", func(t *testing.T) {
		t.Parallel()
		d := &moddesc.Descriptor{Name: "app", Exports: []moddesc.Exports{{Package: "app"}}, Packages: []string{"app"}}
		got, err := open(t, d)
		if err != nil {
			t.Fatalf("Descriptor() error = %v", err)
		}
		if !slices.Equal(got.Packages, []string{"app"}) {
			t.Errorf("Packages = %v, want [app]", got.Packages)
		}
	})
}
