// SPDX-License-Identifier: MPL-2.0

package jimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

// DefaultCacheEntries bounds the decompressed-resource cache of a Reader.
const DefaultCacheEntries = 512

type (
	moduleRange struct {
		name         string
		first, count int
	}

	// Reader gives random access to an image. It is safe for concurrent use
	// once constructed.
	Reader struct {
		ra      io.ReaderAt
		closer  io.Closer
		origin  string
		dataOff uint64
		modules []moduleRange
		byName  map[string]int
		locs    []Location
		cache   *lru.Cache[string, []byte]
	}
)

// Open opens the image at path.
func Open(ctx context.Context, path string) (*Reader, error) {
	f, err := iox.Open(ctx, iox.DefaultPolicy(), path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &iox.IOFailureError{Op: "stat", Path: path, Attempts: 1, Err: err}
	}
	r, err := NewReader(f, info.Size(), path)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReaderCloser is NewReader for sources that must be released with the
// reader, such as a file opened from a virtual filesystem.
func NewReaderCloser(rac interface {
	io.ReaderAt
	io.Closer
}, size int64, origin string) (*Reader, error) {
	r, err := NewReader(rac, size, origin)
	if err != nil {
		return nil, err
	}
	r.closer = rac
	return r, nil
}

// NewReader parses the header and index of an image of the given size.
// Resource data is read lazily.
func NewReader(ra io.ReaderAt, size int64, origin string) (*Reader, error) {
	cache, err := lru.New[string, []byte](DefaultCacheEntries)
	if err != nil {
		return nil, err
	}
	r := &Reader{ra: ra, origin: origin, cache: cache, byName: make(map[string]int)}

	if size < headerSize {
		return nil, poolcodec.Malformed(0, "image of %d bytes is shorter than its header", size)
	}
	hdr, err := r.readAt(0, headerSize)
	if err != nil {
		return nil, err
	}
	order, err := poolcodec.ByteOrderFor(hdr[4])
	if err != nil {
		return nil, err
	}
	c := poolcodec.NewCursor(hdr, order)
	if m, _ := c.Uint32(); m != Magic {
		return nil, poolcodec.Malformed(0, "bad image magic 0x%08x", m)
	}
	_, _ = c.Uint8()
	major, _ := c.Uint8()
	minor, _ := c.Uint8()
	_, _ = c.Uint8()
	if major != majorVersion {
		return nil, poolcodec.Malformed(5, "unsupported image version %d.%d", major, minor)
	}
	modCount, _ := c.Uint32()
	resCount, _ := c.Uint32()
	var f [8]uint64
	for i := range f {
		f[i], _ = c.Uint64()
	}
	stringsOff, modulesOff, offsetsOff, locationsOff, dataOff, stringsLen, dataLen, total := f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7]

	if total != uint64(size) {
		return nil, poolcodec.Malformed(headerSize-8, "declared length %d but image holds %d bytes", total, size)
	}
	switch {
	case modulesOff != headerSize:
		return nil, poolcodec.Malformed(24, "module table offset %d does not follow the header", modulesOff)
	case offsetsOff != modulesOff+uint64(modCount)*moduleSize:
		return nil, poolcodec.Malformed(32, "offset table at %d does not follow %d modules", offsetsOff, modCount)
	case locationsOff != offsetsOff+uint64(resCount)*offsetSize:
		return nil, poolcodec.Malformed(40, "locations at %d do not follow %d offsets", locationsOff, resCount)
	case stringsOff != locationsOff+uint64(resCount)*locationSize:
		return nil, poolcodec.Malformed(16, "strings at %d do not follow %d locations", stringsOff, resCount)
	case stringsOff > total || stringsLen > total-stringsOff || dataOff != stringsOff+stringsLen:
		return nil, poolcodec.Malformed(48, "data offset %d does not follow %d bytes of strings", dataOff, stringsLen)
	case dataLen != total-dataOff:
		return nil, poolcodec.Malformed(64, "data length %d does not reach the end of the image", dataLen)
	}
	r.dataOff = dataOff

	idx, err := r.readAt(modulesOff, stringsOff+stringsLen-modulesOff)
	if err != nil {
		return nil, err
	}
	rel := func(off uint64) []byte { return idx[off-modulesOff:] }
	sp, err := poolcodec.DecodeStringPool(order, rel(stringsOff), int64(stringsOff))
	if err != nil {
		return nil, err
	}

	mc := poolcodec.NewCursorAt(rel(modulesOff)[:offsetsOff-modulesOff], order, int64(modulesOff))
	covered := 0
	for range modCount {
		at := mc.Offset()
		nameIdx, _ := mc.Uint32()
		first, _ := mc.Uint32()
		count, _ := mc.Uint32()
		name, err := sp.Lookup(nameIdx)
		switch {
		case err != nil || nameIdx == 0:
			return nil, poolcodec.Malformed(at, "module name index %d out of range", nameIdx)
		case int(first) != covered || uint64(first)+uint64(count) > uint64(resCount):
			return nil, poolcodec.Malformed(at, "module %s resource range [%d,+%d) is not contiguous", name, first, count)
		}
		if _, dup := r.byName[name]; dup {
			return nil, poolcodec.Malformed(at, "duplicate module %s", name)
		}
		if n := len(r.modules); n > 0 && r.modules[n-1].name >= name {
			return nil, poolcodec.Malformed(at, "module table is not sorted at %s", name)
		}
		r.byName[name] = len(r.modules)
		r.modules = append(r.modules, moduleRange{name: name, first: int(first), count: int(count)})
		covered += int(count)
	}
	if covered != int(resCount) {
		return nil, poolcodec.Malformed(int64(modulesOff), "module table covers %d of %d resources", covered, resCount)
	}

	oc := poolcodec.NewCursorAt(rel(offsetsOff)[:locationsOff-offsetsOff], order, int64(offsetsOff))
	locBlock := rel(locationsOff)[:stringsOff-locationsOff]
	r.locs = make([]Location, resCount)
	mod := 0
	for i := range int(resCount) {
		at := oc.Offset()
		lo, _ := oc.Uint32()
		if uint64(lo)+locationSize > uint64(len(locBlock)) {
			return nil, poolcodec.Malformed(at, "location offset %d out of range", lo)
		}
		lc := poolcodec.NewCursorAt(locBlock[lo:lo+locationSize], order, int64(locationsOff)+int64(lo))
		loc, modIdx, err := readLocation(lc, sp)
		if err != nil {
			return nil, err
		}
		for mod < len(r.modules) && i >= r.modules[mod].first+r.modules[mod].count {
			mod++
		}
		switch {
		case int(modIdx) != mod:
			return nil, poolcodec.Malformed(lc.Offset(), "resource %s belongs to module %d, expected %d", loc.Name, modIdx, mod)
		case loc.offset > dataLen || loc.StoredSize > dataLen-loc.offset:
			return nil, poolcodec.Malformed(lc.Offset(), "resource %s spans outside the data section", loc.Name)
		case loc.Compression == poolcodec.CompressionNone && loc.StoredSize != loc.Size:
			return nil, poolcodec.Malformed(lc.Offset(), "uncompressed resource %s stores %d bytes for size %d", loc.Name, loc.StoredSize, loc.Size)
		}
		first := r.modules[mod].first
		if i > first && r.locs[i-1].Name >= loc.Name {
			return nil, poolcodec.Malformed(lc.Offset(), "resources of %s are not sorted at %s", r.modules[mod].name, loc.Name)
		}
		loc.Module = r.modules[mod].name
		r.locs[i] = loc
	}
	return r, nil
}

func readLocation(c *poolcodec.Cursor, sp *poolcodec.StringPool) (Location, uint32, error) {
	at := c.Offset()
	modIdx, _ := c.Uint32()
	nameIdx, _ := c.Uint32()
	name, err := sp.Lookup(nameIdx)
	if err != nil || nameIdx == 0 {
		return Location{}, 0, poolcodec.Malformed(at, "resource name index %d out of range", nameIdx)
	}
	kind, err := poolcodec.ReadKind(c)
	if err != nil {
		return Location{}, 0, err
	}
	comp, err := poolcodec.ReadCompression(c)
	if err != nil {
		return Location{}, 0, err
	}
	off, _ := c.Uint64()
	stored, _ := c.Uint64()
	size, _ := c.Uint64()
	return Location{Name: name, Kind: kind, Compression: comp, StoredSize: stored, Size: size, offset: off}, modIdx, nil
}

func (r *Reader) readAt(off, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	err := iox.Do(context.Background(), iox.DefaultPolicy(), "read", r.origin, func() error {
		read, err := r.ra.ReadAt(buf, int64(off))
		if read == len(buf) {
			return nil
		}
		if err == nil || errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	})
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, poolcodec.Malformed(int64(off), "unexpected end of image reading %d bytes", n)
	}
	return buf, err
}

// Origin returns the name the image was opened with.
func (r *Reader) Origin() string { return r.origin }

// Modules returns module names in table order (sorted).
func (r *Reader) Modules() []string {
	out := make([]string, len(r.modules))
	for i, m := range r.modules {
		out[i] = m.name
	}
	return out
}

// HasModule reports whether the image holds module.
func (r *Reader) HasModule(module string) bool {
	_, ok := r.byName[module]
	return ok
}

// Entries yields the resource names of module in sorted order.
func (r *Reader) Entries(module string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range r.moduleLocations(module) {
			if !yield(l.Name) {
				return
			}
		}
	}
}

// Locations yields every location, grouped by module.
func (r *Reader) Locations() iter.Seq[Location] {
	return func(yield func(Location) bool) {
		for _, l := range r.locs {
			if !yield(l) {
				return
			}
		}
	}
}

// Len returns the number of resources.
func (r *Reader) Len() int { return len(r.locs) }

func (r *Reader) moduleLocations(module string) []Location {
	i, ok := r.byName[module]
	if !ok {
		return nil
	}
	m := r.modules[i]
	return r.locs[m.first : m.first+m.count]
}

// FindLocation looks up a resource by module and name.
func (r *Reader) FindLocation(module, name string) (Location, bool) {
	locs := r.moduleLocations(module)
	i, found := slices.BinarySearchFunc(locs, name, func(l Location, n string) int {
		return strings.Compare(l.Name, n)
	})
	if !found {
		return Location{}, false
	}
	return locs[i], true
}

// ReadEntry returns the decoded bytes of a resource. The caller owns the slice.
func (r *Reader) ReadEntry(module, name string) ([]byte, error) {
	loc, ok := r.FindLocation(module, name)
	if !ok {
		return nil, &poolcodec.EntryNotFoundError{Name: "/" + module + "/" + name}
	}
	return r.ReadLocation(loc)
}

// ReadLocation returns the decoded bytes at loc.
func (r *Reader) ReadLocation(loc Location) ([]byte, error) {
	key := loc.Path()
	if data, ok := r.cache.Get(key); ok {
		return bytes.Clone(data), nil
	}
	stored, err := r.ReadStored(loc)
	if err != nil {
		return nil, err
	}
	data, err := poolcodec.Decompress(loc.Compression, stored, loc.Size)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", key, err)
	}
	r.cache.Add(key, data)
	return bytes.Clone(data), nil
}

// ReadStored returns the bytes at loc exactly as stored.
func (r *Reader) ReadStored(loc Location) ([]byte, error) {
	return r.readAt(r.dataOff+loc.offset, loc.StoredSize)
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
