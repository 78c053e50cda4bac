// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

type compressStage struct {
	Info
	level   int
	affects []poolcodec.Kind
}

func compressFactory() Factory {
	return Factory{
		Name:        StageCompress,
		Category:    CategoryCompressor,
		Description: "DEFLATE-compresses resources of the kinds in affects (default CLASS and CONFIG) at level 0-9, keeping the original when compression does not shrink it.",
		Options:     []string{"level", "affects"},
		New: func(opts Options) (Stage, error) {
			level, err := opts.Int("level", poolcodec.DefaultLevel)
			if err != nil {
				return nil, err
			}
			if level < 0 || level > 9 {
				return nil, fmt.Errorf("level %d out of range 0-9", level)
			}
			names, err := opts.Strings("affects", []string{"CLASS", "CONFIG"})
			if err != nil {
				return nil, err
			}
			affects, err := parseKinds(names)
			if err != nil {
				return nil, err
			}
			return &compressStage{
				Info:    Info{StageName: StageCompress, StageCategory: CategoryCompressor},
				level:   level,
				affects: affects,
			}, nil
		},
	}
}

func (s *compressStage) Transform(ctx context.Context, in *resource.Pool) (*resource.Pool, error) {
	b := resource.NewBuilder()
	for e := range in.Entries() {
		if e.Compression() != poolcodec.CompressionNone || e.Size() == 0 || !slices.Contains(s.affects, e.Kind()) {
			b.Add(e)
			continue
		}
		stored, err := poolcodec.Compress(poolcodec.CompressionDeflate, s.level, e.Stored())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Path(), err)
		}
		if len(stored) >= len(e.Stored()) {
			b.Add(e)
			continue
		}
		b.Add(e.WithStored(poolcodec.CompressionDeflate, stored, e.Size()))
	}
	return b.Build(), nil
}
