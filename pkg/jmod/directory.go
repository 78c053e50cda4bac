// SPDX-License-Identifier: MPL-2.0

package jmod

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

// Directory is a module root on a filesystem: a descriptor source
// (module-info.cue or module-info.toml) next to section directories.
type Directory struct {
	fs      billy.Filesystem
	origin  string
	names   []string
	known   map[string]bool
	desc    *moddesc.Descriptor
	descBin []byte
}

// OpenDirectoryPath opens the module root at dir on the local filesystem.
func OpenDirectoryPath(dir string) (*Directory, error) {
	return OpenDirectory(osfs.New(dir), dir)
}

// OpenDirectory scans a module root. fsys must be rooted at the module root;
// origin names it in error messages. The descriptor is parsed, completed with
// the package list derived from classes/, and validated up front.
func OpenDirectory(fsys billy.Filesystem, origin string) (*Directory, error) {
	d := &Directory{fs: fsys, origin: origin, known: make(map[string]bool)}

	for _, section := range Sections() {
		info, err := fsys.Lstat(section)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &iox.IOFailureError{Op: "stat", Path: path.Join(origin, section), Attempts: 1, Err: err}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: section %s is not a directory", origin, section)
		}
		err = util.Walk(fsys, section, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("%s: %w", p, ErrSymlink)
			}
			if info.IsDir() {
				return nil
			}
			name := strings.TrimPrefix(filepath.ToSlash(p), "/")
			if !ValidEntryName(name) {
				return invalidEntryName(name)
			}
			d.names = append(d.names, name)
			d.known[name] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", origin, err)
		}
	}
	slices.Sort(d.names)

	desc, err := readDescriptorSource(fsys, origin)
	if err != nil {
		return nil, err
	}
	if d.desc, err = withPackages(desc, slices.Values(d.names)); err != nil {
		return nil, err
	}
	d.descBin = moddesc.Encode(d.desc)
	return d, nil
}

func readDescriptorSource(fsys billy.Filesystem, origin string) (*moddesc.Descriptor, error) {
	for _, src := range []struct {
		name  string
		parse func([]byte, string) (*moddesc.Descriptor, error)
	}{
		{moddesc.SourceCUE, moddesc.ParseCUE},
		{moddesc.SourceTOML, moddesc.ParseTOML},
	} {
		data, err := util.ReadFile(fsys, src.name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &iox.IOFailureError{Op: "read", Path: path.Join(origin, src.name), Attempts: 1, Err: err}
		}
		return src.parse(data, path.Join(origin, src.name))
	}
	return nil, fmt.Errorf("%s: %w", origin, ErrNoDescriptorSource)
}

// Origin returns the name given to OpenDirectory.
func (d *Directory) Origin() string { return d.origin }

// Descriptor returns the validated descriptor.
func (d *Directory) Descriptor() (*moddesc.Descriptor, error) { return d.desc, nil }

// Entries yields DescriptorEntry followed by the section files in name order.
func (d *Directory) Entries() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield(DescriptorEntry) {
			return
		}
		for _, n := range d.names {
			if !yield(n) {
				return
			}
		}
	}
}

// ReadEntry reads a section file, or returns the encoded descriptor.
func (d *Directory) ReadEntry(name string) ([]byte, error) {
	if name == DescriptorEntry {
		return slices.Clone(d.descBin), nil
	}
	if !d.known[name] {
		return nil, fmt.Errorf("%s: %w", d.origin, &poolcodec.EntryNotFoundError{Name: name})
	}
	var data []byte
	err := iox.Do(context.Background(), iox.DefaultPolicy(), "read", path.Join(d.origin, name), func() error {
		var err error
		data, err = util.ReadFile(d.fs, name)
		return err
	})
	return data, err
}

// Close is a no-op; directories hold no open handles.
func (d *Directory) Close() error { return nil }
