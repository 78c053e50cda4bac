// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
)

// Entry is one resource owned by one module. Entries are immutable: the
// content slice must not be modified by anyone after construction.
type Entry struct {
	module      string
	name        string
	kind        poolcodec.Kind
	content     []byte
	compression poolcodec.Compression
	size        uint64
}

// NewEntry returns an uncompressed entry.
func NewEntry(module, name string, kind poolcodec.Kind, content []byte) *Entry {
	return &Entry{
		module:  module,
		name:    name,
		kind:    kind,
		content: content,
		size:    uint64(len(content)),
	}
}

// NewStoredEntry returns an entry whose content is already encoded with c;
// size is the decoded length.
func NewStoredEntry(module, name string, kind poolcodec.Kind, c poolcodec.Compression, stored []byte, size uint64) *Entry {
	return &Entry{
		module:      module,
		name:        name,
		kind:        kind,
		content:     stored,
		compression: c,
		size:        size,
	}
}

// Module returns the owning module name.
func (e *Entry) Module() string { return e.module }

// Name returns the module-relative resource name.
func (e *Entry) Name() string { return e.name }

// Path returns the pool key "/<module>/<name>".
func (e *Entry) Path() string { return Path(e.module, e.name) }

// Kind returns the resource kind.
func (e *Entry) Kind() poolcodec.Kind { return e.kind }

// Compression returns how the stored content is encoded.
func (e *Entry) Compression() poolcodec.Compression { return e.compression }

// Stored returns the content as stored, possibly compressed.
func (e *Entry) Stored() []byte { return e.content }

// StoredSize returns the stored length.
func (e *Entry) StoredSize() uint64 { return uint64(len(e.content)) }

// Size returns the decoded length.
func (e *Entry) Size() uint64 { return e.size }

// Content returns the decoded bytes.
func (e *Entry) Content() ([]byte, error) {
	return poolcodec.Decompress(e.compression, e.content, e.size)
}

// WithContent returns a copy of e carrying new uncompressed content.
func (e *Entry) WithContent(content []byte) *Entry {
	return NewEntry(e.module, e.name, e.kind, content)
}

// WithStored returns a copy of e carrying already-encoded content.
func (e *Entry) WithStored(c poolcodec.Compression, stored []byte, size uint64) *Entry {
	return NewStoredEntry(e.module, e.name, e.kind, c, stored, size)
}

// Path joins a module and a resource name into a pool key.
func Path(module, name string) string {
	return "/" + module + "/" + name
}
