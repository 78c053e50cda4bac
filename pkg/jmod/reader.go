// SPDX-License-Identifier: MPL-2.0

package jmod

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

// DefaultCacheEntries bounds the decompressed-entry cache of a Reader.
const DefaultCacheEntries = 256

var magic = []byte{'J', 'M'}

const (
	majorVersion uint8 = 1
	minorVersion uint8 = 0

	headerSize     = 2 + 1 + 1 + 2 + 4 + 7*8
	indexEntrySize = 4 + 1 + 1 + 8 + 8 + 8
)

type (
	// EntryInfo describes one archive entry without reading it.
	EntryInfo struct {
		Name        string
		Kind        poolcodec.Kind
		Compression poolcodec.Compression
		StoredSize  uint64
		Size        uint64
		offset      uint64
	}

	// Reader gives random access to an archive. It is safe for concurrent use.
	Reader struct {
		ra      io.ReaderAt
		closer  io.Closer
		origin  string
		dataOff uint64
		names   []string
		index   map[string]EntryInfo
		cache   *lru.Cache[string, []byte]
		retry   iox.Policy

		descOnce sync.Once
		desc     *moddesc.Descriptor
		descErr  error
	}

	readerOptions struct {
		cacheEntries int
		retry        iox.Policy
		origin       string
	}

	// Option configures a Reader.
	Option func(*readerOptions)
)

// WithCacheEntries sets how many decompressed entries are kept in memory.
func WithCacheEntries(n int) Option {
	return func(o *readerOptions) { o.cacheEntries = n }
}

// WithRetry sets the retry budget for transient read errors.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(o *readerOptions) { o.retry = iox.Policy{Attempts: attempts, Backoff: backoff} }
}

// WithOrigin names the archive in error messages.
func WithOrigin(origin string) Option {
	return func(o *readerOptions) { o.origin = origin }
}

// Open opens the archive at path.
func Open(ctx context.Context, path string, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	f, err := iox.Open(ctx, o.retry, path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &iox.IOFailureError{Op: "stat", Path: path, Attempts: 1, Err: err}
	}
	if o.origin == "" {
		opts = append(opts, WithOrigin(path))
	}
	r, err := NewReader(f, info.Size(), opts...)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

func buildOptions(opts []Option) readerOptions {
	o := readerOptions{cacheEntries: DefaultCacheEntries, retry: iox.DefaultPolicy()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewReader parses the header, string pool and index of an archive of the
// given size. Entry data is read lazily.
func NewReader(ra io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	if o.cacheEntries < 1 {
		o.cacheEntries = 1
	}
	cache, err := lru.New[string, []byte](o.cacheEntries)
	if err != nil {
		return nil, err
	}
	r := &Reader{ra: ra, origin: o.origin, retry: o.retry, cache: cache}
	if r.origin == "" {
		r.origin = "<archive>"
	}

	if size < headerSize {
		return nil, poolcodec.Malformed(0, "archive of %d bytes is shorter than its header", size)
	}
	hdr, err := r.readAt(0, headerSize)
	if err != nil {
		return nil, err
	}
	c := poolcodec.NewCursor(hdr, binary.BigEndian)
	if err := c.Expect(magic, "archive magic"); err != nil {
		return nil, err
	}
	major, _ := c.Uint8()
	minor, _ := c.Uint8()
	if major != majorVersion {
		return nil, poolcodec.Malformed(2, "unsupported archive version %d.%d", major, minor)
	}
	_, _ = c.Uint16() // flags, reserved
	count, _ := c.Uint32()
	var f [7]uint64
	for i := range f {
		f[i], _ = c.Uint64()
	}
	poolOff, poolLen, idxOff, idxLen, dataOff, dataLen, total := f[0], f[1], f[2], f[3], f[4], f[5], f[6]

	if total != uint64(size) {
		return nil, poolcodec.Malformed(headerSize-8, "declared length %d but archive holds %d bytes", total, size)
	}
	switch {
	case poolOff != headerSize:
		return nil, poolcodec.Malformed(10, "string pool offset %d does not follow the header", poolOff)
	case poolLen > total-poolOff:
		return nil, poolcodec.Malformed(18, "string pool length %d exceeds archive", poolLen)
	case idxOff != poolOff+poolLen:
		return nil, poolcodec.Malformed(26, "index offset %d does not follow the string pool", idxOff)
	case idxLen != uint64(count)*indexEntrySize || idxLen > total-idxOff:
		return nil, poolcodec.Malformed(34, "index length %d does not hold %d entries", idxLen, count)
	case dataOff != idxOff+idxLen:
		return nil, poolcodec.Malformed(42, "data offset %d does not follow the index", dataOff)
	case dataLen != total-dataOff:
		return nil, poolcodec.Malformed(50, "data length %d does not reach the end of the archive", dataLen)
	}
	r.dataOff = dataOff

	poolBytes, err := r.readAt(poolOff, poolLen)
	if err != nil {
		return nil, err
	}
	sp, err := poolcodec.DecodeStringPool(binary.BigEndian, poolBytes, int64(poolOff))
	if err != nil {
		return nil, err
	}

	idxBytes, err := r.readAt(idxOff, idxLen)
	if err != nil {
		return nil, err
	}
	ic := poolcodec.NewCursorAt(idxBytes, binary.BigEndian, int64(idxOff))
	r.names = make([]string, 0, count)
	r.index = make(map[string]EntryInfo, count)
	for range count {
		at := ic.Offset()
		nameIdx, _ := ic.Uint32()
		name, err := sp.Lookup(nameIdx)
		if err != nil || nameIdx == 0 {
			return nil, poolcodec.Malformed(at, "entry name index %d out of range", nameIdx)
		}
		kind, err := poolcodec.ReadKind(ic)
		if err != nil {
			return nil, err
		}
		comp, err := poolcodec.ReadCompression(ic)
		if err != nil {
			return nil, err
		}
		off, _ := ic.Uint64()
		stored, _ := ic.Uint64()
		sz, _ := ic.Uint64()

		switch {
		case !ValidEntryName(name):
			return nil, poolcodec.Malformed(at, "entry name %q is not a clean relative path", name)
		case off > dataLen || stored > dataLen-off:
			return nil, poolcodec.Malformed(at, "entry %s spans [%d,+%d) outside the data block", name, off, stored)
		case comp == poolcodec.CompressionNone && stored != sz:
			return nil, poolcodec.Malformed(at, "uncompressed entry %s stores %d bytes for size %d", name, stored, sz)
		}
		if _, dup := r.index[name]; dup {
			return nil, poolcodec.Malformed(at, "duplicate entry %s", name)
		}
		r.names = append(r.names, name)
		r.index[name] = EntryInfo{Name: name, Kind: kind, Compression: comp, StoredSize: stored, Size: sz, offset: off}
	}
	return r, nil
}

func (r *Reader) readAt(off, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	err := iox.Do(context.Background(), r.retry, "read", r.origin, func() error {
		read, err := r.ra.ReadAt(buf, int64(off))
		if read == len(buf) {
			return nil
		}
		if errors.Is(err, io.EOF) || err == nil {
			return io.ErrUnexpectedEOF
		}
		return err
	})
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, poolcodec.Malformed(int64(off), "unexpected end of archive reading %d bytes", n)
	}
	return buf, err
}

// Origin returns the archive path, or the name given with WithOrigin.
func (r *Reader) Origin() string { return r.origin }

// Len returns the number of entries.
func (r *Reader) Len() int { return len(r.names) }

// Entries yields entry names in index order. The sequence can be iterated
// any number of times.
func (r *Reader) Entries() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, n := range r.names {
			if !yield(n) {
				return
			}
		}
	}
}

// Stat returns entry metadata.
func (r *Reader) Stat(name string) (EntryInfo, error) {
	info, ok := r.index[name]
	if !ok {
		return EntryInfo{}, &poolcodec.EntryNotFoundError{Name: name}
	}
	return info, nil
}

// ReadEntry returns the decoded bytes of an entry. The caller owns the slice.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	info, ok := r.index[name]
	if !ok {
		return nil, &poolcodec.EntryNotFoundError{Name: name}
	}
	if data, ok := r.cache.Get(name); ok {
		return bytes.Clone(data), nil
	}
	stored, err := r.readAt(r.dataOff+info.offset, info.StoredSize)
	if err != nil {
		return nil, err
	}
	data, err := poolcodec.Decompress(info.Compression, stored, info.Size)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", name, err)
	}
	r.cache.Add(name, data)
	return bytes.Clone(data), nil
}

// ReadStored returns an entry's bytes exactly as stored, with its compression.
func (r *Reader) ReadStored(name string) ([]byte, EntryInfo, error) {
	info, ok := r.index[name]
	if !ok {
		return nil, EntryInfo{}, &poolcodec.EntryNotFoundError{Name: name}
	}
	stored, err := r.readAt(r.dataOff+info.offset, info.StoredSize)
	return stored, info, err
}

// Descriptor decodes and validates the module descriptor. The result is
// computed once; callers must not modify it.
func (r *Reader) Descriptor() (*moddesc.Descriptor, error) {
	r.descOnce.Do(func() {
		raw, err := r.ReadEntry(DescriptorEntry)
		if err != nil {
			r.descErr = fmt.Errorf("%s: %w", r.origin, err)
			return
		}
		r.desc, r.descErr = describe(raw, r.Entries())
	})
	return r.desc, r.descErr
}

// Close releases the underlying file when the reader was created by Open.
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
