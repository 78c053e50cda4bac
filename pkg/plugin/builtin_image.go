// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jmodlink/jmodlink/pkg/jimage"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

type imageWriterStage struct {
	Info
	order poolcodec.ByteOrder
}

func imageWriterFactory() Factory {
	return Factory{
		Name:        StageImageWriter,
		Category:    CategoryTerminal,
		Description: "Writes the final pool as a runtime image; byte-order is big, little or native and defaults to the link target's order.",
		Options:     []string{"byte-order"},
		New: func(opts Options) (Stage, error) {
			name, err := opts.String("byte-order", "big")
			if err != nil {
				return nil, err
			}
			order, err := ParseByteOrder(name)
			if err != nil {
				return nil, err
			}
			return &imageWriterStage{Info: Info{StageName: StageImageWriter, StageCategory: CategoryTerminal}, order: order}, nil
		},
	}
}

// ParseByteOrder maps "big", "little" or "native" to a byte order.
func ParseByteOrder(name string) (poolcodec.ByteOrder, error) {
	switch name {
	case "big", "":
		return binary.BigEndian, nil
	case "little":
		return binary.LittleEndian, nil
	case "native":
		if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
			return binary.LittleEndian, nil
		}
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("byte-order must be big, little or native, got %q", name)
	}
}

func (s *imageWriterStage) Emit(_ context.Context, in *resource.Pool, w io.Writer) error {
	iw := jimage.NewWriter(s.order)
	if err := iw.AddPool(in); err != nil {
		return err
	}
	_, err := iw.Finalize(w)
	return err
}
