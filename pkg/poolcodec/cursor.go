// SPDX-License-Identifier: MPL-2.0

package poolcodec

import (
	"bytes"
	"encoding/binary"
	"math"
)

// ByteOrder is a byte order that can both decode and append.
// binary.BigEndian and binary.LittleEndian satisfy it.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Byte order flags as stored in container headers.
const (
	OrderFlagBig    uint8 = 0
	OrderFlagLittle uint8 = 1
)

// ByteOrderFor maps a header byte-order flag to a ByteOrder.
func ByteOrderFor(flag uint8) (ByteOrder, error) {
	switch flag {
	case OrderFlagBig:
		return binary.BigEndian, nil
	case OrderFlagLittle:
		return binary.LittleEndian, nil
	default:
		return nil, Malformed(-1, "unknown byte order flag %d", flag)
	}
}

// OrderFlag is the inverse of ByteOrderFor.
func OrderFlag(order ByteOrder) uint8 {
	if order == ByteOrder(binary.LittleEndian) {
		return OrderFlagLittle
	}
	return OrderFlagBig
}

// Cursor is a bounds-checked reader over a byte slice.
//
// Every read validates the requested width against the remaining buffer.
// Errors carry the absolute offset, computed from the base passed to NewCursorAt.
type Cursor struct {
	buf   []byte
	pos   int
	base  int64
	order ByteOrder
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte, order ByteOrder) *Cursor {
	return &Cursor{buf: buf, order: order}
}

// NewCursorAt returns a cursor whose reported offsets start at base.
func NewCursorAt(buf []byte, order ByteOrder, base int64) *Cursor {
	return &Cursor{buf: buf, order: order, base: base}
}

// Offset returns the absolute offset of the next unread byte.
func (c *Cursor) Offset() int64 { return c.base + int64(c.pos) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Order returns the cursor's byte order.
func (c *Cursor) Order() ByteOrder { return c.order }

func (c *Cursor) take(n uint64, what string) ([]byte, error) {
	if n > uint64(c.Remaining()) {
		return nil, Malformed(c.Offset(), "%s of %d bytes exceeds remaining %d", what, n, c.Remaining())
	}
	b := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b, nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.take(1, "u8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a two-byte unsigned integer.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.take(2, "u16")
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

// Uint32 reads a four-byte unsigned integer.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.take(4, "u32")
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}

// Uint64 reads an eight-byte unsigned integer.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.take(8, "u64")
	if err != nil {
		return 0, err
	}
	return c.order.Uint64(b), nil
}

// Bytes reads n raw bytes. The returned slice aliases the cursor's buffer.
func (c *Cursor) Bytes(n uint64) ([]byte, error) {
	return c.take(n, "field")
}

// LenBytes reads a u32 length followed by that many bytes.
func (c *Cursor) LenBytes() ([]byte, error) {
	n, err := c.Uint32()
	if err != nil {
		return nil, err
	}
	return c.take(uint64(n), "length-prefixed field")
}

// Expect consumes len(want) bytes and fails unless they equal want.
func (c *Cursor) Expect(want []byte, what string) error {
	at := c.Offset()
	got, err := c.take(uint64(len(want)), what)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return Malformed(at, "bad %s: got %x, want %x", what, got, want)
	}
	return nil
}

// Count reads a u32 element count and checks that count elements of at least
// minSize bytes each can still fit in the buffer.
func (c *Cursor) Count(minSize int, what string) (int, error) {
	at := c.Offset()
	n, err := c.Uint32()
	if err != nil {
		return 0, err
	}
	if minSize > 0 && uint64(n)*uint64(minSize) > uint64(c.Remaining()) {
		return 0, Malformed(at, "%s count %d exceeds remaining buffer", what, n)
	}
	return int(n), nil
}

// Done fails when unread bytes remain.
func (c *Cursor) Done(what string) error {
	if c.Remaining() != 0 {
		return Malformed(c.Offset(), "%d trailing bytes after %s", c.Remaining(), what)
	}
	return nil
}

// Encoder appends fixed-width fields in a chosen byte order.
type Encoder struct {
	buf   []byte
	order ByteOrder
}

// NewEncoder returns an empty encoder.
func NewEncoder(order ByteOrder) *Encoder {
	return &Encoder{order: order}
}

// Bytes returns the encoded buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Uint8 appends one byte.
func (e *Encoder) Uint8(v uint8) { e.buf = append(e.buf, v) }

// Uint16 appends a two-byte unsigned integer.
func (e *Encoder) Uint16(v uint16) { e.buf = e.order.AppendUint16(e.buf, v) }

// Uint32 appends a four-byte unsigned integer.
func (e *Encoder) Uint32(v uint32) { e.buf = e.order.AppendUint32(e.buf, v) }

// Uint64 appends an eight-byte unsigned integer.
func (e *Encoder) Uint64(v uint64) { e.buf = e.order.AppendUint64(e.buf, v) }

// Raw appends b unchanged.
func (e *Encoder) Raw(b []byte) { e.buf = append(e.buf, b...) }

// LenBytes appends a u32 length followed by b.
func (e *Encoder) LenBytes(b []byte) {
	e.Uint32(checkedU32(len(b)))
	e.Raw(b)
}

// Count appends a u32 element count.
func (e *Encoder) Count(n int) { e.Uint32(checkedU32(n)) }

func checkedU32(n int) uint32 {
	if n < 0 || uint64(n) > math.MaxUint32 {
		panic("poolcodec: length does not fit in u32")
	}
	return uint32(n)
}
