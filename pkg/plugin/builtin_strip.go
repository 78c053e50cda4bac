// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"strings"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

var debugSuffixes = []string{".pdb", ".map", ".diz", ".debuginfo"}

type stripDebugStage struct{ Info }

func stripDebugFactory() Factory {
	return Factory{
		Name:        StageStripNativeDebug,
		Category:    CategoryTransformer,
		Description: "Removes native debug companions (.pdb, .map, .diz, .debuginfo) from lib/ and bin/.",
		New: func(Options) (Stage, error) {
			return &stripDebugStage{Info{StageName: StageStripNativeDebug, StageCategory: CategoryTransformer}}, nil
		},
	}
}

func (s *stripDebugStage) Transform(_ context.Context, in *resource.Pool) (*resource.Pool, error) {
	b := in.Edit()
	b.Filter(func(e *resource.Entry) bool { return !isNativeDebug(e) })
	return b.Build(), nil
}

func isNativeDebug(e *resource.Entry) bool {
	if e.Kind() != poolcodec.KindNativeLib && e.Kind() != poolcodec.KindNativeCmd {
		return false
	}
	if strings.Contains(e.Name(), ".dSYM/") {
		return true
	}
	for _, suffix := range debugSuffixes {
		if strings.HasSuffix(e.Name(), suffix) {
			return true
		}
	}
	return false
}
