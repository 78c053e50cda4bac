// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"encoding/binary"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

// Binary descriptor layout, big-endian:
//
//	magic "MDSC" | u16 version | u8 flags | string pool
//	name | version | main class           (u32 string indexes)
//	requires: count, {name u32, modifiers u8}
//	exports, opens: count, {package u32, target count, targets u32...}
//	uses: count, {service u32}
//	provides: count, {service u32, provider count, providers u32...}
//	packages: count, {package u32}
var descriptorMagic = []byte("MDSC")

const (
	descriptorVersion uint16 = 1
	flagOpen          uint8  = 1 << 0
)

// Encode serializes d into its binary record.
func Encode(d *Descriptor) []byte {
	order := binary.BigEndian
	sp := poolcodec.NewStringPool()

	body := poolcodec.NewEncoder(order)
	body.Uint32(sp.Add(d.Name))
	body.Uint32(sp.Add(d.Version))
	body.Uint32(sp.Add(d.MainClass))

	body.Count(len(d.Requires))
	for _, r := range d.Requires {
		body.Uint32(sp.Add(r.Name))
		body.Uint8(uint8(r.Modifiers))
	}
	for _, list := range [][]Exports{d.Exports, d.Opens} {
		body.Count(len(list))
		for _, e := range list {
			body.Uint32(sp.Add(e.Package))
			body.Count(len(e.Targets))
			for _, t := range e.Targets {
				body.Uint32(sp.Add(t))
			}
		}
	}
	body.Count(len(d.Uses))
	for _, u := range d.Uses {
		body.Uint32(sp.Add(u))
	}
	body.Count(len(d.Provides))
	for _, p := range d.Provides {
		body.Uint32(sp.Add(p.Service))
		body.Count(len(p.Providers))
		for _, impl := range p.Providers {
			body.Uint32(sp.Add(impl))
		}
	}
	body.Count(len(d.Packages))
	for _, p := range d.Packages {
		body.Uint32(sp.Add(p))
	}

	var flags uint8
	if d.Open {
		flags |= flagOpen
	}
	out := poolcodec.NewEncoder(order)
	out.Raw(descriptorMagic)
	out.Uint16(descriptorVersion)
	out.Uint8(flags)
	out.Raw(poolcodec.EncodeStringPool(order, sp))
	out.Raw(body.Bytes())
	return out.Bytes()
}

// Decode parses a binary record produced by Encode. Any structural problem
// is reported as a *poolcodec.MalformedContainerError.
func Decode(b []byte) (*Descriptor, error) {
	c := poolcodec.NewCursor(b, binary.BigEndian)
	if err := c.Expect(descriptorMagic, "descriptor magic"); err != nil {
		return nil, err
	}
	at := c.Offset()
	ver, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	if ver != descriptorVersion {
		return nil, poolcodec.Malformed(at, "unsupported descriptor version %d", ver)
	}
	flags, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	sp, err := poolcodec.ReadStringPool(c)
	if err != nil {
		return nil, err
	}

	r := &reader{c: c, sp: sp}
	d := &Descriptor{Open: flags&flagOpen != 0}
	d.Name = r.str()
	d.Version = r.str()
	d.MainClass = r.str()
	if r.err == nil && d.Name == "" {
		return nil, poolcodec.Malformed(at, "descriptor has no module name")
	}

	for range r.count(5) {
		req := Requires{Name: r.str(), Modifiers: Modifier(r.u8())}
		d.Requires = append(d.Requires, req)
	}
	d.Exports = r.exports()
	d.Opens = r.exports()
	for range r.count(4) {
		d.Uses = append(d.Uses, r.str())
	}
	for range r.count(8) {
		p := Provides{Service: r.str()}
		for range r.count(4) {
			p.Providers = append(p.Providers, r.str())
		}
		d.Provides = append(d.Provides, p)
	}
	for range r.count(4) {
		d.Packages = append(d.Packages, r.str())
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := c.Done("descriptor"); err != nil {
		return nil, err
	}
	return d, nil
}

// reader keeps the first error and turns later reads into no-ops, so the
// decode body reads as a straight list of fields.
type reader struct {
	c   *poolcodec.Cursor
	sp  *poolcodec.StringPool
	err error
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Uint32()
	r.err = err
	return v
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Uint8()
	r.err = err
	return v
}

func (r *reader) str() string {
	at := r.c.Offset()
	i := r.u32()
	if r.err != nil {
		return ""
	}
	s, err := r.sp.Lookup(i)
	if err != nil {
		r.err = poolcodec.Malformed(at, "string index %d out of range", i)
	}
	return s
}

func (r *reader) count(minSize int) int {
	if r.err != nil {
		return 0
	}
	n, err := r.c.Count(minSize, "descriptor list")
	r.err = err
	return n
}

func (r *reader) exports() []Exports {
	var out []Exports
	for range r.count(8) {
		e := Exports{Package: r.str()}
		for range r.count(4) {
			e.Targets = append(e.Targets, r.str())
		}
		out = append(out, e)
	}
	return out
}
