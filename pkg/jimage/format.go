// SPDX-License-Identifier: MPL-2.0

package jimage

import (
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

// Magic identifies an image file.
const Magic uint32 = 0xCAFEDADA

const (
	majorVersion uint8 = 1
	minorVersion uint8 = 0

	headerSize   = 4 + 4 + 4 + 4 + 8*8
	moduleSize   = 4 + 4 + 4
	offsetSize   = 4
	locationSize = 4 + 4 + 1 + 1 + 8 + 8 + 8
)

// Location describes one resource in an image.
type Location struct {
	Module      string
	Name        string
	Kind        poolcodec.Kind
	Compression poolcodec.Compression
	StoredSize  uint64
	Size        uint64
	offset      uint64
}

// Path returns "/<module>/<name>".
func (l Location) Path() string { return resource.Path(l.Module, l.Name) }
