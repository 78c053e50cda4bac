// SPDX-License-Identifier: MPL-2.0

package fallback

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	digest "github.com/opencontainers/go-digest"

	"github.com/jmodlink/jmodlink/pkg/jmod"
	"github.com/jmodlink/jmodlink/pkg/shim"
)

// binRelocated lists the native library suffixes a runtime installs under
// bin/ instead of lib/.
var binRelocated = []string{".dll", ".diz", ".pdb", ".map"}

// Runtime is the host runtime an archive is reduced against: its native
// image for classes and its directory for everything else.
type Runtime struct {
	Image shim.ImageSource
	FS    billy.Filesystem
}

// OpenRuntime reads the native image through c. The caller closes the result.
func OpenRuntime(ctx context.Context, c shim.Capability) (*Runtime, error) {
	img, err := c.ReadNativeImage(ctx)
	if err != nil {
		return nil, err
	}
	return &Runtime{Image: img, FS: c.RuntimeFS()}, nil
}

// Close releases the image.
func (rt *Runtime) Close() error {
	if rt == nil || rt.Image == nil {
		return nil
	}
	return rt.Image.Close()
}

// HasModule reports whether the runtime image holds module.
func (rt *Runtime) HasModule(module string) bool {
	return rt.Image != nil && slices.Contains(rt.Image.Modules(), module)
}

// RuntimePath maps an archive entry to where the runtime installs it.
func RuntimePath(entry string) string {
	if rest, ok := strings.CutPrefix(entry, jmod.SectionLib+"/"); ok {
		for _, suffix := range binRelocated {
			if strings.HasSuffix(rest, suffix) {
				return jmod.SectionBin + "/" + rest
			}
		}
	}
	return entry
}

// Lookup returns the runtime's copy of a module's archive entry. Classes come
// from the image; other sections from the runtime directory. ok is false when
// the runtime has no such entry.
func (rt *Runtime) Lookup(module, entry string) (data []byte, ok bool, err error) {
	if rest, isClass := strings.CutPrefix(entry, jmod.SectionClasses+"/"); isClass {
		if rt.Image == nil {
			return nil, false, nil
		}
		if _, found := rt.Image.FindLocation(module, rest); !found {
			return nil, false, nil
		}
		data, err = rt.Image.ReadEntry(module, rest)
		return data, err == nil, err
	}
	if rt.FS == nil {
		return nil, false, nil
	}
	path := RuntimePath(entry)
	info, err := rt.FS.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !info.Mode().IsRegular() {
		return nil, false, nil
	}
	data, err = util.ReadFile(rt.FS, path)
	return data, err == nil, err
}

// fetch looks up rec.Path and checks it against the recorded hash.
func (rt *Runtime) fetch(module string, rec Record) ([]byte, error) {
	data, ok, err := rt.Lookup(module, rec.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &EntryMissingError{Module: module, Path: rec.Path}
	}
	if rec.Verified() {
		if got := digest.SHA256.FromBytes(data); got != rec.Hash {
			return nil, &HashMismatchError{Module: module, Path: rec.Path, Want: rec.Hash, Got: got}
		}
	}
	return data, nil
}
