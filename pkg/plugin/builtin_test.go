// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

func instantiate(t *testing.T, name string, opts Options) Transformer {
	t.Helper()
	s, err := DefaultRegistry().Instantiate(Config{Name: name, Options: opts})
	if err != nil {
		t.Fatalf("Instantiate(%s) error = %v", name, err)
	}
	tr, ok := s.(Transformer)
	if !ok {
		t.Fatalf("%s is not a transformer", name)
	}
	return tr
}

func paths(p *resource.Pool) []string {
	var out []string
	for e := range p.Entries() {
		out = append(out, e.Path())
	}
	return out
}

func mixedPool() *resource.Pool {
	b := resource.NewBuilder()
	b.Add(resource.NewEntry("zmod", "z/Z.class", poolcodec.KindClass, []byte{0xca, 0xfe, 0xba, 0xbe}))
	b.Add(resource.NewEntry("amod", "lib/libx.so", poolcodec.KindNativeLib, []byte("ELF")))
	b.Add(resource.NewEntry("amod", "lib/libx.pdb", poolcodec.KindNativeLib, []byte("PDB")))
	b.Add(resource.NewEntry("amod", "conf/big.properties", poolcodec.KindConfig, bytes.Repeat([]byte("x=1\n"), 100)))
	b.Add(resource.NewEntry("amod", "a/A.class", poolcodec.KindClass, []byte("not a class")))
	return b.Build()
}

func TestSortResources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		order string
		want  []string
	}{
		{"name", []string{"/amod/a/A.class", "/amod/conf/big.properties", "/amod/lib/libx.pdb", "/amod/lib/libx.so", "/zmod/z/Z.class"}},
		{"kind", []string{"/amod/a/A.class", "/zmod/z/Z.class", "/amod/conf/big.properties", "/amod/lib/libx.pdb", "/amod/lib/libx.so"}},
		{"module", []string{"/amod/lib/libx.so", "/amod/lib/libx.pdb", "/amod/conf/big.properties", "/amod/a/A.class", "/zmod/z/Z.class"}},
	}
	for _, tt := range tests {
		out, err := instantiate(t, StageSortResources, Options{"order": tt.order}).Transform(context.Background(), mixedPool())
		if err != nil {
			t.Fatal(err)
		}
		if got := paths(out); !slices.Equal(got, tt.want) {
			t.Errorf("order=%s: %v, want %v", tt.order, got, tt.want)
		}
	}
}

func TestExcludeResources(t *testing.T) {
	t.Parallel()

	in := mixedPool()
	same, err := instantiate(t, StageExcludeResources, nil).Transform(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if same.Len() != in.Len() {
		t.Error("no patterns must be a no-op")
	}

	out, err := instantiate(t, StageExcludeResources, Options{"patterns": []any{"/amod/conf/**"}, "kinds": "native-lib"}).Transform(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(out); !slices.Equal(got, []string{"/zmod/z/Z.class", "/amod/a/A.class"}) {
		t.Errorf("remaining = %v", got)
	}
	if in.Len() != 5 {
		t.Error("input pool was modified")
	}
}

func TestStripNativeDebug(t *testing.T) {
	t.Parallel()

	out, err := instantiate(t, StageStripNativeDebug, nil).Transform(context.Background(), mixedPool())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.Find("/amod/lib/libx.pdb"); ok {
		t.Error(".pdb survived")
	}
	if _, ok := out.Find("/amod/lib/libx.so"); !ok {
		t.Error(".so was removed")
	}
}

func TestCompress(t *testing.T) {
	t.Parallel()

	out, err := instantiate(t, StageCompress, Options{"level": 9, "affects": "config"}).Transform(context.Background(), mixedPool())
	if err != nil {
		t.Fatal(err)
	}
	conf, _ := out.Find("/amod/conf/big.properties")
	if conf.Compression() != poolcodec.CompressionDeflate || conf.StoredSize() >= conf.Size() {
		t.Errorf("config entry not compressed: %s %d/%d", conf.Compression(), conf.StoredSize(), conf.Size())
	}
	content, err := conf.Content()
	if err != nil || !bytes.Equal(content, bytes.Repeat([]byte("x=1\n"), 100)) {
		t.Errorf("decoded content differs: %v", err)
	}
	if lib, _ := out.Find("/amod/lib/libx.so"); lib.Compression() != poolcodec.CompressionNone {
		t.Error("native lib should be untouched")
	}
}

func TestVerifyPool(t *testing.T) {
	t.Parallel()

	_, err := instantiate(t, StageVerifyPool, Options{"class-magic": true, "require-descriptor": false}).Transform(context.Background(), mixedPool())
	if err == nil || !strings.Contains(err.Error(), "/amod/a/A.class") {
		t.Errorf("class magic error = %v", err)
	}

	_, err = instantiate(t, StageVerifyPool, nil).Transform(context.Background(), mixedPool())
	if err == nil || !strings.Contains(err.Error(), "module amod has no module-info.bin") {
		t.Errorf("descriptor error = %v", err)
	}

	b := resource.NewBuilder()
	b.Add(resource.NewEntry("ok", DescriptorResource, poolcodec.KindOther, []byte("d")))
	if _, err := instantiate(t, StageVerifyPool, nil).Transform(context.Background(), b.Build()); err != nil {
		t.Errorf("valid pool error = %v", err)
	}
}
