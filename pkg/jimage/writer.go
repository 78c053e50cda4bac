// SPDX-License-Identifier: MPL-2.0

package jimage

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

// ErrWriterFinalized is returned when a Writer is used after Finalize.
var ErrWriterFinalized = errors.New("image writer already finalized")

type (
	// Writer lays out an image from pool entries. Data is written in the
	// order entries were added; the index is sorted for lookup.
	Writer struct {
		order     poolcodec.ByteOrder
		modules   map[string]bool
		entries   []*resource.Entry
		paths     map[string]bool
		finalized bool
	}

	// Stats summarizes a finalized image.
	Stats struct {
		Modules int
		Entries int
		Bytes   uint64
	}
)

// NewWriter returns a writer emitting the given byte order.
func NewWriter(order poolcodec.ByteOrder) *Writer {
	return &Writer{order: order, modules: make(map[string]bool), paths: make(map[string]bool)}
}

// AddModule declares a module, which may end up holding no resources.
func (w *Writer) AddModule(name string) error {
	if w.finalized {
		return ErrWriterFinalized
	}
	if name == "" {
		return errors.New("module name is empty")
	}
	w.modules[name] = true
	return nil
}

// Add appends a pool entry; its module is declared implicitly.
func (w *Writer) Add(e *resource.Entry) error {
	if err := w.AddModule(e.Module()); err != nil {
		return err
	}
	if e.Name() == "" {
		return fmt.Errorf("module %s: resource name is empty", e.Module())
	}
	if w.paths[e.Path()] {
		return fmt.Errorf("duplicate resource %s", e.Path())
	}
	w.paths[e.Path()] = true
	w.entries = append(w.entries, e)
	return nil
}

// AddPool adds every entry of p in pool order.
func (w *Writer) AddPool(p *resource.Pool) error {
	for e := range p.Entries() {
		if err := w.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Finalize writes the image to out in one sequential pass.
func (w *Writer) Finalize(out io.Writer) (Stats, error) {
	if w.finalized {
		return Stats{}, ErrWriterFinalized
	}
	w.finalized = true

	modules := make([]string, 0, len(w.modules))
	for m := range w.modules {
		modules = append(modules, m)
	}
	slices.Sort(modules)
	modIdx := make(map[string]int, len(modules))
	for i, m := range modules {
		modIdx[m] = i
	}

	// Data offsets follow insertion order.
	dataOff := make(map[*resource.Entry]uint64, len(w.entries))
	var dataLen uint64
	for _, e := range w.entries {
		dataOff[e] = dataLen
		dataLen += e.StoredSize()
	}

	sorted := slices.Clone(w.entries)
	slices.SortFunc(sorted, func(a, b *resource.Entry) int {
		return cmp.Or(cmp.Compare(modIdx[a.Module()], modIdx[b.Module()]), cmp.Compare(a.Name(), b.Name()))
	})

	sp := poolcodec.NewStringPool()
	for _, m := range modules {
		sp.Add(m)
	}
	for _, e := range sorted {
		sp.Add(e.Name())
	}
	strs := poolcodec.EncodeStringPool(w.order, sp)

	mods := poolcodec.NewEncoder(w.order)
	first := 0
	for _, m := range modules {
		n := 0
		for first+n < len(sorted) && sorted[first+n].Module() == m {
			n++
		}
		idx, _ := sp.Index(m)
		mods.Uint32(idx)
		mods.Count(first)
		mods.Count(n)
		first += n
	}

	offs := poolcodec.NewEncoder(w.order)
	locs := poolcodec.NewEncoder(w.order)
	for _, e := range sorted {
		offs.Count(locs.Len())
		name, _ := sp.Index(e.Name())
		locs.Count(modIdx[e.Module()])
		locs.Uint32(name)
		locs.Uint8(uint8(e.Kind()))
		locs.Uint8(uint8(e.Compression()))
		locs.Uint64(dataOff[e])
		locs.Uint64(e.StoredSize())
		locs.Uint64(e.Size())
	}

	modulesOff := uint64(headerSize)
	offsetsOff := modulesOff + uint64(mods.Len())
	locationsOff := offsetsOff + uint64(offs.Len())
	stringsOff := locationsOff + uint64(locs.Len())
	dataStart := stringsOff + uint64(len(strs))
	total := dataStart + dataLen

	hdr := poolcodec.NewEncoder(w.order)
	hdr.Uint32(Magic)
	hdr.Uint8(poolcodec.OrderFlag(w.order))
	hdr.Uint8(majorVersion)
	hdr.Uint8(minorVersion)
	hdr.Uint8(0)
	hdr.Count(len(modules))
	hdr.Count(len(sorted))
	for _, v := range []uint64{stringsOff, modulesOff, offsetsOff, locationsOff, dataStart, uint64(len(strs)), dataLen, total} {
		hdr.Uint64(v)
	}

	for _, chunk := range [][]byte{hdr.Bytes(), mods.Bytes(), offs.Bytes(), locs.Bytes(), strs} {
		if _, err := out.Write(chunk); err != nil {
			return Stats{}, err
		}
	}
	for _, e := range w.entries {
		if _, err := out.Write(e.Stored()); err != nil {
			return Stats{}, err
		}
	}
	return Stats{Modules: len(modules), Entries: len(sorted), Bytes: total}, nil
}
