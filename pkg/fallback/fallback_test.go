// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	digest "github.com/opencontainers/go-digest"

	"github.com/jmodlink/jmodlink/pkg/jmod"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
	"github.com/jmodlink/jmodlink/pkg/shim"
)

var (
	objectClass = []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 61, 'O'}
	customClass = []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 61, 'C'}
	libJava     = []byte("\x7fELF libjava")
	jvmDLL      = []byte("MZ jvm")
	props       = []byte("a=1\n")
)

// testRuntime ships java.base with Object.class, libjava.so and jvm.dll.
func testRuntime(t *testing.T) (*Runtime, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	b := resource.NewBuilder()
	b.Add(resource.NewEntry("java.base", "java/lang/Object.class", poolcodec.KindClass, objectClass))
	b.Add(resource.NewEntry("java.base", "module-info.bin", poolcodec.KindOther, moddesc.Encode(&moddesc.Descriptor{Name: "java.base"})))
	if err := shim.InstallImage(fs, b.Build()); err != nil {
		t.Fatal(err)
	}
	for path, data := range map[string][]byte{
		"lib/libjava.so":    libJava,
		"bin/jvm.dll":       jvmDLL,
		"conf/x.properties": props,
	} {
		if err := util.WriteFile(fs, path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c, err := shim.Select(shim.BindingMemory, shim.BindingOptions{FS: fs})
	if err != nil {
		t.Fatal(err)
	}
	rt, err := OpenRuntime(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt, fs
}

func finalize(t *testing.T, w *jmod.Writer) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := w.Finalize(&buf); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return buf.Bytes()
}

func open(t *testing.T, data []byte) *jmod.Reader {
	t.Helper()
	r, err := jmod.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	return r
}

func baseArchive(t *testing.T, module string) []byte {
	t.Helper()
	w := jmod.NewWriter()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.Add("classes/java/lang/Object.class", poolcodec.KindClass, objectClass))
	must(w.Add("classes/java/lang/Custom.class", poolcodec.KindClass, customClass))
	must(w.Add("lib/libjava.so", poolcodec.KindNativeLib, libJava))
	must(w.Add("lib/jvm.dll", poolcodec.KindNativeLib, jvmDLL))
	must(w.Add("conf/x.properties", poolcodec.KindConfig, props))
	must(w.AddDescriptor(&moddesc.Descriptor{Name: module, Exports: []moddesc.Exports{{Package: "java.lang"}}}))
	return finalize(t, w)
}

func TestReduceAndRestore(t *testing.T) {
	t.Parallel()

	rt, _ := testRuntime(t)
	orig := open(t, baseArchive(t, "java.base"))

	w := jmod.NewWriter()
	res, err := Reduce(orig, rt, ReduceOptions{WithoutVerify: []string{"lib/**"}}, w)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if res.Outcome != OutcomeReduced || res.Moved != 3 {
		t.Fatalf("Reduce() = %+v", res)
	}
	reduced := open(t, finalize(t, w))
	names := slices.Collect(reduced.Entries())
	for _, gone := range []string{"classes/java/lang/Object.class", "lib/libjava.so", "lib/jvm.dll"} {
		if slices.Contains(names, gone) {
			t.Errorf("%s still in reduced archive", gone)
		}
	}
	for _, kept := range []string{"classes/java/lang/Custom.class", "conf/x.properties", ListEntry, jmod.DescriptorEntry} {
		if !slices.Contains(names, kept) {
			t.Errorf("%s missing from reduced archive", kept)
		}
	}
	d, err := reduced.Descriptor()
	if err != nil || !slices.Contains(d.Packages, "java.lang") {
		t.Errorf("reduced descriptor = %+v, %v", d, err)
	}
	list, err := ReadList(reduced)
	if err != nil {
		t.Fatal(err)
	}
	if rec, _ := list.Lookup("lib/libjava.so"); rec.Verified() {
		t.Error("lib entry should be recorded without a hash")
	}
	if rec, _ := list.Lookup("classes/java/lang/Object.class"); !rec.Verified() {
		t.Error("class entry should carry a hash")
	}

	again, err := Reduce(reduced, rt, ReduceOptions{}, jmod.NewWriter())
	if err != nil || again.Outcome != OutcomeAlreadyReduced {
		t.Errorf("second Reduce() = %+v, %v", again, err)
	}

	w = jmod.NewWriter()
	res, err = Restore(reduced, rt, w)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.Outcome != OutcomeRestored || res.Moved != 3 {
		t.Fatalf("Restore() = %+v", res)
	}
	restored := open(t, finalize(t, w))
	if got, want := slices.Collect(restored.Entries()), slices.Collect(orig.Entries()); !slices.Equal(got, want) {
		t.Errorf("restored entries = %v, want %v", got, want)
	}
	for name := range orig.Entries() {
		a, _ := orig.ReadEntry(name)
		b, err := restored.ReadEntry(name)
		if err != nil || !bytes.Equal(a, b) {
			t.Errorf("%s differs after restore: %v", name, err)
		}
	}
}

func TestReduce_Skips(t *testing.T) {
	t.Parallel()

	rt, _ := testRuntime(t)

	res, err := Reduce(open(t, baseArchive(t, "com.example")), rt, ReduceOptions{}, jmod.NewWriter())
	if err != nil || res.Outcome != OutcomeNotInRuntime {
		t.Errorf("foreign module: %+v, %v", res, err)
	}

	w := jmod.NewWriter()
	res, err = Reduce(open(t, baseArchive(t, "java.base")), rt, ReduceOptions{Exclude: []string{"classes/**", "lib/*"}}, w)
	if err != nil || res.Outcome != OutcomeNothingShared {
		t.Errorf("everything excluded: %+v, %v", res, err)
	}
	if w.Len() != 0 {
		t.Error("writer filled although nothing was reduced")
	}
}

func TestRestore_HashMismatch(t *testing.T) {
	t.Parallel()

	rt, fs := testRuntime(t)
	w := jmod.NewWriter()
	if _, err := Reduce(open(t, baseArchive(t, "java.base")), rt, ReduceOptions{}, w); err != nil {
		t.Fatal(err)
	}
	reduced := open(t, finalize(t, w))

	if err := util.WriteFile(fs, "lib/libjava.so", []byte("patched"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Restore(reduced, rt, jmod.NewWriter())
	var hm *HashMismatchError
	if !errors.As(err, &hm) || hm.Path != "lib/libjava.so" {
		t.Fatalf("Restore() error = %v, want hash mismatch on lib/libjava.so", err)
	}

	if err := fs.Remove("lib/libjava.so"); err != nil {
		t.Fatal(err)
	}
	if _, err := Restore(reduced, rt, jmod.NewWriter()); !errors.Is(err, poolcodec.ErrEntryNotFound) {
		t.Errorf("missing runtime file error = %v", err)
	}

	res, err := Restore(open(t, baseArchive(t, "java.base")), rt, jmod.NewWriter())
	if err != nil || res.Outcome != OutcomeNotReduced {
		t.Errorf("unreduced archive: %+v, %v", res, err)
	}
}

func TestReduceFile_InPlace(t *testing.T) {
	t.Parallel()

	rt, _ := testRuntime(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "java.base.jmod")
	if _, err := jmod.Create(context.Background(), path, func(w *jmod.Writer) error {
		return jmod.Copy(w, open(t, baseArchive(t, "java.base")))
	}); err != nil {
		t.Fatal(err)
	}

	res, err := ReduceFile(context.Background(), rt, path, path, ReduceOptions{})
	if err != nil || res.Outcome != OutcomeReduced {
		t.Fatalf("ReduceFile() = %+v, %v", res, err)
	}
	res, err = ReduceFile(context.Background(), rt, path, path, ReduceOptions{})
	if err != nil || res.Outcome != OutcomeAlreadyReduced {
		t.Fatalf("second ReduceFile() = %+v, %v", res, err)
	}

	copyPath := filepath.Join(dir, "copy.jmod")
	res, err = RestoreFile(context.Background(), rt, path, copyPath)
	if err != nil || res.Outcome != OutcomeRestored {
		t.Fatalf("RestoreFile() = %+v, %v", res, err)
	}
	r, err := jmod.Open(context.Background(), copyPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()
	if _, err := r.Stat("lib/jvm.dll"); err != nil {
		t.Errorf("restored archive lacks lib/jvm.dll: %v", err)
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("directory holds %v, want only the two archives", entries)
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	rt, _ := testRuntime(t)
	list := NewList()
	for _, p := range []string{"classes/java/lang/Object.class", "lib/jvm.dll", "classes/java/lang/Custom.class"} {
		if err := list.Add(p, ""); err != nil {
			t.Fatal(err)
		}
	}
	b := resource.NewBuilder()
	b.Add(resource.NewEntry("java.base", "java/lang/Custom.class", poolcodec.KindClass, customClass))
	b.Add(resource.NewEntry("java.base", ListResource, poolcodec.KindClass, list.Bytes()))
	pool := b.Build()

	if !HasList(pool) {
		t.Fatal("HasList() = false")
	}
	if _, err := Expand(pool, nil, true); !errors.Is(err, ErrNoRuntime) {
		t.Errorf("Expand(nil runtime) error = %v", err)
	}

	r := plugin.NewRegistry()
	if err := r.Register(StageFactory(rt)); err != nil {
		t.Fatal(err)
	}
	stage, err := r.Instantiate(plugin.Config{Name: StageName})
	if err != nil {
		t.Fatal(err)
	}
	out, err := stage.(plugin.Transformer).Transform(context.Background(), pool)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if _, ok := out.Find(resource.Path("java.base", ListResource)); ok {
		t.Error("fallback list left in the pool")
	}
	obj, ok := out.Find("/java.base/java/lang/Object.class")
	if !ok || obj.Kind() != poolcodec.KindClass {
		t.Fatalf("Object.class not expanded: %v", ok)
	}
	if data, _ := obj.Content(); !bytes.Equal(data, objectClass) {
		t.Error("Object.class content differs from the runtime copy")
	}
	dll, ok := out.Find("/java.base/lib/jvm.dll")
	if !ok || dll.Kind() != poolcodec.KindNativeLib {
		t.Errorf("jvm.dll not expanded from bin/: %v", ok)
	}
	if custom, _ := out.Find("/java.base/java/lang/Custom.class"); custom == nil {
		t.Error("entry already in the pool was dropped")
	} else if data, _ := custom.Content(); !bytes.Equal(data, customClass) {
		t.Error("entry already in the pool was replaced")
	}
	if in := pool.Len(); in != 2 {
		t.Errorf("input pool changed to %d entries", in)
	}

	bad := NewList()
	if err := bad.Add("lib/libjava.so", digest.SHA256.FromString("something else")); err != nil {
		t.Fatal(err)
	}
	b = resource.NewBuilder()
	b.Add(resource.NewEntry("java.base", ListResource, poolcodec.KindClass, bad.Bytes()))
	if _, err := Expand(b.Build(), rt, true); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("Expand() error = %v, want ErrHashMismatch", err)
	}
	if _, err := Expand(b.Build(), rt, false); err != nil {
		t.Errorf("Expand(verify=false) error = %v", err)
	}
}
