// SPDX-License-Identifier: MPL-2.0

package jmod

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

type (
	// Writer collects entries in any order and lays out the archive in Finalize.
	// A Writer is owned by one goroutine.
	Writer struct {
		entries   map[string]pending
		level     int
		compress  map[poolcodec.Kind]bool
		finalized bool
	}

	pending struct {
		kind    poolcodec.Kind
		content []byte
	}

	// Stats summarizes a finalized archive.
	Stats struct {
		Entries    int
		Compressed int
		Bytes      uint64
	}
)

// NewWriter returns an empty writer that stores everything uncompressed.
func NewWriter() *Writer {
	return &Writer{
		entries:  make(map[string]pending),
		level:    poolcodec.DefaultLevel,
		compress: make(map[poolcodec.Kind]bool),
	}
}

// Add stages an entry. Adding a name again replaces the earlier content.
func (w *Writer) Add(name string, kind poolcodec.Kind, content []byte) error {
	if w.finalized {
		return ErrWriterFinalized
	}
	if !ValidEntryName(name) {
		return invalidEntryName(name)
	}
	if !kind.Valid() {
		return fmt.Errorf("entry %s: invalid kind %d", name, kind)
	}
	w.entries[name] = pending{kind: kind, content: content}
	return nil
}

// AddDescriptor stages d as the descriptor entry.
func (w *Writer) AddDescriptor(d *moddesc.Descriptor) error {
	return w.Add(DescriptorEntry, poolcodec.KindOther, moddesc.Encode(d))
}

// Remove unstages an entry and reports whether it was present.
func (w *Writer) Remove(name string) bool {
	_, ok := w.entries[name]
	delete(w.entries, name)
	return ok
}

// Has reports whether name is staged.
func (w *Writer) Has(name string) bool {
	_, ok := w.entries[name]
	return ok
}

// SetCompression enables DEFLATE at level for entries of the given kinds.
// An entry is only stored compressed when that makes it smaller.
func (w *Writer) SetCompression(level int, kinds ...poolcodec.Kind) error {
	if w.finalized {
		return ErrWriterFinalized
	}
	if level < 0 || level > 9 {
		return fmt.Errorf("compression level %d out of range 0-9", level)
	}
	w.level = level
	clear(w.compress)
	for _, k := range kinds {
		w.compress[k] = true
	}
	return nil
}

// Len returns the number of staged entries.
func (w *Writer) Len() int { return len(w.entries) }

// Finalize writes the archive to out in one sequential pass: header, string
// pool, index, data. Entries are laid out in name order. The writer cannot
// be used afterwards, even when Finalize fails.
func (w *Writer) Finalize(out io.Writer) (Stats, error) {
	if w.finalized {
		return Stats{}, ErrWriterFinalized
	}
	w.finalized = true

	order := binary.BigEndian
	names := slices.Sorted(maps.Keys(w.entries))

	sp := poolcodec.NewStringPool()
	stored := make([][]byte, len(names))
	comps := make([]poolcodec.Compression, len(names))
	var stats Stats
	for i, n := range names {
		sp.Add(n)
		e := w.entries[n]
		stored[i], comps[i] = e.content, poolcodec.CompressionNone
		if w.compress[e.kind] && len(e.content) > 0 {
			c, err := poolcodec.Compress(poolcodec.CompressionDeflate, w.level, e.content)
			if err != nil {
				return Stats{}, fmt.Errorf("compress %s: %w", n, err)
			}
			if len(c) < len(e.content) {
				stored[i], comps[i] = c, poolcodec.CompressionDeflate
				stats.Compressed++
			}
		}
	}
	poolBytes := poolcodec.EncodeStringPool(order, sp)

	idx := poolcodec.NewEncoder(order)
	var dataLen uint64
	for i, n := range names {
		nameIdx, _ := sp.Index(n)
		idx.Uint32(nameIdx)
		idx.Uint8(uint8(w.entries[n].kind))
		idx.Uint8(uint8(comps[i]))
		idx.Uint64(dataLen)
		idx.Uint64(uint64(len(stored[i])))
		idx.Uint64(uint64(len(w.entries[n].content)))
		dataLen += uint64(len(stored[i]))
	}

	poolOff := uint64(headerSize)
	idxOff := poolOff + uint64(len(poolBytes))
	dataOff := idxOff + uint64(idx.Len())
	total := dataOff + dataLen

	hdr := poolcodec.NewEncoder(order)
	hdr.Raw(magic)
	hdr.Uint8(majorVersion)
	hdr.Uint8(minorVersion)
	hdr.Uint16(0)
	hdr.Count(len(names))
	for _, v := range []uint64{poolOff, uint64(len(poolBytes)), idxOff, uint64(idx.Len()), dataOff, dataLen, total} {
		hdr.Uint64(v)
	}

	for _, chunk := range append([][]byte{hdr.Bytes(), poolBytes, idx.Bytes()}, stored...) {
		if _, err := out.Write(chunk); err != nil {
			return Stats{}, err
		}
	}
	stats.Entries = len(names)
	stats.Bytes = total
	return stats, nil
}

// Create fills a new Writer with fill and writes it atomically to path.
func Create(ctx context.Context, path string, fill func(w *Writer) error) (Stats, error) {
	w := NewWriter()
	if err := fill(w); err != nil {
		return Stats{}, err
	}
	var stats Stats
	err := iox.WriteFileAtomic(ctx, iox.DefaultPolicy(), path, func(out io.Writer) error {
		var err error
		stats, err = w.Finalize(out)
		return err
	})
	return stats, err
}

// Copy stages every entry of src into w. The descriptor is re-encoded from
// the validated src.Descriptor(), so an archive built from a directory root
// carries the derived package list.
func Copy(w *Writer, src Source) error {
	d, err := src.Descriptor()
	if err != nil {
		return err
	}
	for name := range src.Entries() {
		if name == DescriptorEntry {
			continue
		}
		data, err := src.ReadEntry(name)
		if err != nil {
			return fmt.Errorf("%s: %w", src.Origin(), err)
		}
		if err := w.Add(name, KindForPath(name), data); err != nil {
			return err
		}
	}
	return w.AddDescriptor(d)
}
