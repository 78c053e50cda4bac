// SPDX-License-Identifier: MPL-2.0

package poolcodec

import (
	"strings"
)

// Record is the wire form of a resource: a pooled name, a kind and raw content.
type Record struct {
	Name    uint32
	Kind    Kind
	Content []byte
}

// EncodeRecord appends r as name index, kind byte, u32 content length and content.
func EncodeRecord(enc *Encoder, r Record) {
	enc.Uint32(r.Name)
	enc.Uint8(uint8(r.Kind))
	enc.LenBytes(r.Content)
}

// DecodeRecord reads one record and resolves its name against sp.
func DecodeRecord(c *Cursor, sp *StringPool) (Record, error) {
	at := c.Offset()
	name, err := c.Uint32()
	if err != nil {
		return Record{}, err
	}
	if _, err := sp.Lookup(name); err != nil || name == 0 {
		return Record{}, Malformed(at, "record name index %d out of range", name)
	}
	kind, err := ReadKind(c)
	if err != nil {
		return Record{}, err
	}
	content, err := c.LenBytes()
	if err != nil {
		return Record{}, err
	}
	return Record{Name: name, Kind: kind, Content: content}, nil
}

// TableEntry is a resource addressed by its module-qualified path.
type TableEntry struct {
	Path    string
	Kind    Kind
	Content []byte
}

// Module returns the owning module of a "/<module>/<name>" path.
func (e TableEntry) Module() string {
	m, _, _ := strings.Cut(strings.TrimPrefix(e.Path, "/"), "/")
	return m
}

// EncodeTable serializes a self-contained resource table: a string pool
// followed by a u32 record count and the records.
func EncodeTable(order ByteOrder, entries []TableEntry) []byte {
	sp := NewStringPool()
	recs := make([]Record, len(entries))
	for i, e := range entries {
		recs[i] = Record{Name: sp.Add(e.Path), Kind: e.Kind, Content: e.Content}
	}
	enc := NewEncoder(order)
	enc.Raw(EncodeStringPool(order, sp))
	enc.Count(len(recs))
	for _, r := range recs {
		EncodeRecord(enc, r)
	}
	return enc.Bytes()
}

// DecodeTable is the inverse of EncodeTable. Content slices are copied out of b.
func DecodeTable(order ByteOrder, b []byte) ([]TableEntry, error) {
	c := NewCursor(b, order)
	sp, err := ReadStringPool(c)
	if err != nil {
		return nil, err
	}
	n, err := c.Count(9, "record")
	if err != nil {
		return nil, err
	}
	out := make([]TableEntry, 0, n)
	for range n {
		r, err := DecodeRecord(c, sp)
		if err != nil {
			return nil, err
		}
		out = append(out, TableEntry{
			Path:    sp.MustLookup(r.Name),
			Kind:    r.Kind,
			Content: append([]byte(nil), r.Content...),
		})
	}
	if err := c.Done("resource table"); err != nil {
		return nil, err
	}
	return out, nil
}
