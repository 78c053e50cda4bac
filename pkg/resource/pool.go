// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"iter"
	"slices"
)

// Pool is an immutable, insertion-ordered mapping from path to entry.
type Pool struct {
	entries []*Entry
	byPath  map[string]int
}

// Empty returns a pool without entries.
func Empty() *Pool {
	return &Pool{byPath: map[string]int{}}
}

// Len returns the number of entries.
func (p *Pool) Len() int { return len(p.entries) }

// Find returns the entry stored under path.
func (p *Pool) Find(path string) (*Entry, bool) {
	i, ok := p.byPath[path]
	if !ok {
		return nil, false
	}
	return p.entries[i], true
}

// Entries iterates entries in pool order.
func (p *Pool) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range p.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Slice returns the entries in pool order.
func (p *Pool) Slice() []*Entry {
	return slices.Clone(p.entries)
}

// TotalBytes returns the sum of stored sizes.
func (p *Pool) TotalBytes() uint64 {
	var n uint64
	for _, e := range p.entries {
		n += e.StoredSize()
	}
	return n
}

// Modules returns module names in order of first appearance.
func (p *Pool) Modules() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range p.entries {
		if !seen[e.module] {
			seen[e.module] = true
			out = append(out, e.module)
		}
	}
	return out
}

// Edit returns a builder pre-filled with p's entries. p is unaffected.
func (p *Pool) Edit() *Builder {
	b := NewBuilder()
	for _, e := range p.entries {
		b.Add(e)
	}
	return b
}

// Builder accumulates entries for a new Pool.
type Builder struct {
	entries []*Entry
	byPath  map[string]int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{byPath: map[string]int{}}
}

// Add appends e, or replaces in place an entry with the same path.
func (b *Builder) Add(e *Entry) {
	if i, ok := b.byPath[e.Path()]; ok {
		b.entries[i] = e
		return
	}
	b.byPath[e.Path()] = len(b.entries)
	b.entries = append(b.entries, e)
}

// Has reports whether an entry with path is present.
func (b *Builder) Has(path string) bool {
	_, ok := b.byPath[path]
	return ok
}

// Remove drops the entry with path and reports whether it existed.
func (b *Builder) Remove(path string) bool {
	i, ok := b.byPath[path]
	if !ok {
		return false
	}
	b.entries = slices.Delete(b.entries, i, i+1)
	b.reindex()
	return true
}

// Filter keeps only the entries for which keep returns true.
func (b *Builder) Filter(keep func(*Entry) bool) {
	b.entries = slices.DeleteFunc(b.entries, func(e *Entry) bool { return !keep(e) })
	b.reindex()
}

// SortStableFunc reorders entries with cmp, keeping the order of equal entries.
func (b *Builder) SortStableFunc(cmp func(a, c *Entry) int) {
	slices.SortStableFunc(b.entries, cmp)
	b.reindex()
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int { return len(b.entries) }

// Build returns an immutable pool. The builder may keep being used.
func (b *Builder) Build() *Pool {
	p := &Pool{
		entries: slices.Clone(b.entries),
		byPath:  make(map[string]int, len(b.entries)),
	}
	for i, e := range p.entries {
		p.byPath[e.Path()] = i
	}
	return p
}

func (b *Builder) reindex() {
	clear(b.byPath)
	for i, e := range b.entries {
		b.byPath[e.Path()] = i
	}
}
