// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmodlink/jmodlink/pkg/jmod"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
)

// Module describes a module fixture. Requires entries are module names,
// optionally prefixed with "static ". Files maps archive entry names such as
// "classes/app/Main.class" to their content.
type Module struct {
	Name     string
	Version  string
	Requires []string
	Exports  []string
	Files    map[string][]byte
}

// ClassBytes returns a stand-in class file: the class magic followed by name.
func ClassBytes(name string) []byte {
	return append([]byte{0xca, 0xfe, 0xba, 0xbe}, name...)
}

// Descriptor builds the module descriptor of m.
func (m Module) Descriptor() *moddesc.Descriptor {
	d := &moddesc.Descriptor{Name: m.Name, Version: m.Version}
	for _, r := range m.Requires {
		req := moddesc.Requires{Name: r}
		if name, ok := strings.CutPrefix(r, "static "); ok {
			req = moddesc.Requires{Name: name, Modifiers: moddesc.Static}
		}
		d.Requires = append(d.Requires, req)
	}
	for _, p := range m.Exports {
		d.Exports = append(d.Exports, moddesc.Exports{Package: p})
	}
	return d
}

func (m Module) fill(w *jmod.Writer) error {
	for name, data := range m.Files {
		if err := w.Add(name, jmod.KindForPath(name), data); err != nil {
			return err
		}
	}
	return w.AddDescriptor(m.Descriptor())
}

// ArchiveBytes returns m encoded as a jmod archive.
func ArchiveBytes(t testing.TB, m Module) []byte {
	t.Helper()
	w := jmod.NewWriter()
	if err := m.fill(w); err != nil {
		t.Fatalf("building module %s: %v", m.Name, err)
	}
	var buf bytes.Buffer
	if _, err := w.Finalize(&buf); err != nil {
		t.Fatalf("finalizing module %s: %v", m.Name, err)
	}
	return buf.Bytes()
}

// OpenArchive returns an in-memory reader over m.
func OpenArchive(t testing.TB, m Module) *jmod.Reader {
	t.Helper()
	data := ArchiveBytes(t, m)
	r, err := jmod.NewReader(bytes.NewReader(data), int64(len(data)), jmod.WithOrigin(m.Name+".jmod"))
	if err != nil {
		t.Fatalf("opening module %s: %v", m.Name, err)
	}
	return r
}

// WriteArchive writes m to dir/<name>.jmod and returns the path.
func WriteArchive(t testing.TB, dir string, m Module) string {
	t.Helper()
	path := filepath.Join(dir, m.Name+".jmod")
	if _, err := jmod.Create(context.Background(), path, m.fill); err != nil {
		t.Fatalf("writing module %s: %v", m.Name, err)
	}
	return path
}
