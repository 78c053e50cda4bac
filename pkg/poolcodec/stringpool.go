// SPDX-License-Identifier: MPL-2.0

package poolcodec

import (
	"unicode/utf8"
)

// StringPool is an ordered set of unique strings with stable indexes.
//
// Index 0 is reserved for "absent": the empty string maps to it and never
// occupies a slot, so the first real string gets index 1.
type StringPool struct {
	strs  []string
	index map[string]uint32
}

// NewStringPool returns an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{
		strs:  []string{""},
		index: map[string]uint32{"": 0},
	}
}

// Add interns s and returns its index. Adding the same string twice returns
// the index assigned on first sight.
func (p *StringPool) Add(s string) uint32 {
	if i, ok := p.index[s]; ok {
		return i
	}
	i := checkedU32(len(p.strs))
	p.strs = append(p.strs, s)
	p.index[s] = i
	return i
}

// Index returns the index of s, if interned.
func (p *StringPool) Index(s string) (uint32, bool) {
	i, ok := p.index[s]
	return i, ok
}

// Lookup resolves an index. Index 0 resolves to the empty string.
func (p *StringPool) Lookup(i uint32) (string, error) {
	if uint64(i) >= uint64(len(p.strs)) {
		return "", Malformed(-1, "string index %d out of range (pool holds %d)", i, p.Len())
	}
	return p.strs[i], nil
}

// MustLookup is Lookup for indexes that came from Add on the same pool.
func (p *StringPool) MustLookup(i uint32) string {
	s, err := p.Lookup(i)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of interned strings, excluding the reserved slot.
func (p *StringPool) Len() int { return len(p.strs) - 1 }

// Strings returns the interned strings in index order, excluding the reserved slot.
func (p *StringPool) Strings() []string {
	out := make([]string, p.Len())
	copy(out, p.strs[1:])
	return out
}

// EncodeStringPool serializes sp as a u32 count followed by u32-length-prefixed strings.
func EncodeStringPool(order ByteOrder, sp *StringPool) []byte {
	enc := NewEncoder(order)
	enc.Count(sp.Len())
	for _, s := range sp.strs[1:] {
		enc.LenBytes([]byte(s))
	}
	return enc.Bytes()
}

// DecodeStringPool reads a pool written by EncodeStringPool. base is the
// absolute offset of b inside its container and only affects error messages.
func DecodeStringPool(order ByteOrder, b []byte, base int64) (*StringPool, error) {
	c := NewCursorAt(b, order, base)
	sp, err := ReadStringPool(c)
	if err != nil {
		return nil, err
	}
	if err := c.Done("string pool"); err != nil {
		return nil, err
	}
	return sp, nil
}

// ReadStringPool reads a string pool at the cursor's position.
func ReadStringPool(c *Cursor) (*StringPool, error) {
	n, err := c.Count(4, "string pool")
	if err != nil {
		return nil, err
	}
	sp := NewStringPool()
	for range n {
		at := c.Offset()
		raw, err := c.LenBytes()
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, Malformed(at, "empty string stored in pool")
		}
		if !utf8.Valid(raw) {
			return nil, Malformed(at, "string is not valid UTF-8")
		}
		s := string(raw)
		if _, dup := sp.index[s]; dup {
			return nil, Malformed(at, "duplicate string %q in pool", s)
		}
		sp.Add(s)
	}
	return sp, nil
}
