// SPDX-License-Identifier: MPL-2.0

package shim

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmodlink/jmodlink/pkg/jimage"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

// fsBinding backs both built-in bindings; they differ only in where the
// runtime filesystem comes from.
type fsBinding struct {
	name    string
	fs      billy.Filesystem
	plugins map[string]NativePlugin
}

func newPortable(opts BindingOptions) (Capability, error) {
	fsys := opts.FS
	if fsys == nil && opts.RuntimePath != "" {
		info, err := os.Stat(opts.RuntimePath)
		if err != nil {
			return nil, fmt.Errorf("runtime directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("runtime directory %s is not a directory", opts.RuntimePath)
		}
		fsys = osfs.New(opts.RuntimePath)
	}
	return &fsBinding{name: BindingPortable, fs: fsys, plugins: maps.Clone(opts.Plugins)}, nil
}

func newMemory(opts BindingOptions) (Capability, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = memfs.New()
	}
	return &fsBinding{name: BindingMemory, fs: fsys, plugins: maps.Clone(opts.Plugins)}, nil
}

func (b *fsBinding) Name() string { return b.name }

func (b *fsBinding) RuntimeFS() billy.Filesystem { return b.fs }

func (b *fsBinding) NativePlugins() []string {
	return slices.Sorted(maps.Keys(b.plugins))
}

func (b *fsBinding) ReadNativeImage(_ context.Context) (ImageSource, error) {
	if b.fs == nil {
		return nil, fmt.Errorf("%s binding: %w: no runtime directory configured", b.name, ErrNoNativeImage)
	}
	info, err := b.fs.Stat(ImagePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", b.fs.Join(b.fs.Root(), ImagePath), ErrNoNativeImage)
		}
		return nil, err
	}
	f, err := b.fs.Open(ImagePath)
	if err != nil {
		return nil, err
	}
	r, err := jimage.NewReaderCloser(f, info.Size(), b.fs.Join(b.fs.Root(), ImagePath))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func (b *fsBinding) InvokeNativePlugin(ctx context.Context, name string, opts plugin.Options, in *resource.Pool) (*resource.Pool, error) {
	fn, ok := b.plugins[name]
	if !ok {
		return nil, &NativePluginNotFoundError{Binding: b.name, Plugin: name}
	}
	table, err := EncodePool(in)
	if err != nil {
		return nil, err
	}
	out, err := fn(ctx, opts, table)
	if err != nil {
		return nil, err
	}
	return DecodePool(out)
}

// EncodePool writes in as a big-endian resource table. Entries cross the
// boundary uncompressed.
func EncodePool(in *resource.Pool) ([]byte, error) {
	entries := make([]poolcodec.TableEntry, 0, in.Len())
	for e := range in.Entries() {
		content, err := e.Content()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Path(), err)
		}
		entries = append(entries, poolcodec.TableEntry{Path: e.Path(), Kind: e.Kind(), Content: content})
	}
	return poolcodec.EncodeTable(binary.BigEndian, entries), nil
}

// DecodePool is the inverse of EncodePool.
func DecodePool(table []byte) (*resource.Pool, error) {
	entries, err := poolcodec.DecodeTable(binary.BigEndian, table)
	if err != nil {
		return nil, err
	}
	b := resource.NewBuilder()
	for _, te := range entries {
		module, name, _ := strings.Cut(strings.TrimPrefix(te.Path, "/"), "/")
		if module == "" || name == "" {
			return nil, poolcodec.Malformed(-1, "resource path %q is not /<module>/<name>", te.Path)
		}
		b.Add(resource.NewEntry(module, name, te.Kind, te.Content))
	}
	return b.Build(), nil
}

// InstallImage writes in as the native image of the runtime in fsys.
func InstallImage(fsys billy.Filesystem, in *resource.Pool) error {
	if err := fsys.MkdirAll("lib", 0o755); err != nil {
		return err
	}
	f, err := fsys.Create(ImagePath)
	if err != nil {
		return err
	}
	w := jimage.NewWriter(binary.BigEndian)
	if err := w.AddPool(in); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := w.Finalize(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
