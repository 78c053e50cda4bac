// SPDX-License-Identifier: MPL-2.0

package poolcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Compression tags how an entry's stored bytes are encoded.
type Compression uint8

const (
	// CompressionNone stores bytes verbatim.
	CompressionNone Compression = iota
	// CompressionDeflate stores a raw DEFLATE stream.
	CompressionDeflate
)

// DefaultLevel is the DEFLATE level used when none is configured.
const DefaultLevel = 6

// String returns the tag name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "NONE"
	case CompressionDeflate:
		return "DEFLATE"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// Valid reports whether c is a known tag.
func (c Compression) Valid() bool {
	return c == CompressionNone || c == CompressionDeflate
}

// ReadCompression reads and validates a compression tag byte.
func ReadCompression(cur *Cursor) (Compression, error) {
	at := cur.Offset()
	b, err := cur.Uint8()
	if err != nil {
		return 0, err
	}
	c := Compression(b)
	if !c.Valid() {
		return 0, Malformed(at, "unrecognized compression tag 0x%02x", b)
	}
	return c, nil
}

// Compress encodes data with c. Levels outside 0-9 are rejected.
func Compress(c Compression, level int, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionDeflate:
		if level < flate.NoCompression || level > flate.BestCompression {
			return nil, fmt.Errorf("compression level %d out of range 0-9", level)
		}
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, level)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

// Decompress decodes stored bytes and checks that exactly size bytes come out.
func Decompress(c Compression, stored []byte, size uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(stored)) != size {
			return nil, Malformed(-1, "stored length %d does not match size %d", len(stored), size)
		}
		return stored, nil
	case CompressionDeflate:
		r := flate.NewReader(bytes.NewReader(stored))
		defer r.Close()
		out, err := io.ReadAll(io.LimitReader(r, int64(size)+1))
		if err != nil {
			return nil, Malformed(-1, "corrupt deflate stream: %v", err)
		}
		if uint64(len(out)) != size {
			return nil, Malformed(-1, "inflated length %d does not match size %d", len(out), size)
		}
		return out, nil
	default:
		return nil, Malformed(-1, "unsupported compression %s", c)
	}
}
