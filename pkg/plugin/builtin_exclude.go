// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

type excludeStage struct {
	Info
	patterns []string
	kinds    []poolcodec.Kind
}

func excludeFactory() Factory {
	return Factory{
		Name:        StageExcludeResources,
		Category:    CategoryTransformer,
		Description: "Drops resources whose /module/name path matches one of the glob patterns, or whose kind is listed in kinds.",
		Options:     []string{"patterns", "kinds"},
		New: func(opts Options) (Stage, error) {
			patterns, err := opts.Strings("patterns", nil)
			if err != nil {
				return nil, err
			}
			for _, p := range patterns {
				if _, err := doublestar.Match(p, ""); err != nil {
					return nil, fmt.Errorf("bad pattern %q: %w", p, err)
				}
			}
			kindNames, err := opts.Strings("kinds", nil)
			if err != nil {
				return nil, err
			}
			kinds, err := parseKinds(kindNames)
			if err != nil {
				return nil, err
			}
			return &excludeStage{
				Info:     Info{StageName: StageExcludeResources, StageCategory: CategoryTransformer},
				patterns: patterns,
				kinds:    kinds,
			}, nil
		},
	}
}

func parseKinds(names []string) ([]poolcodec.Kind, error) {
	kinds := make([]poolcodec.Kind, 0, len(names))
	for _, n := range names {
		k, err := poolcodec.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (s *excludeStage) Transform(_ context.Context, in *resource.Pool) (*resource.Pool, error) {
	if len(s.patterns) == 0 && len(s.kinds) == 0 {
		return in, nil
	}
	b := in.Edit()
	b.Filter(func(e *resource.Entry) bool { return !s.excluded(e) })
	return b.Build(), nil
}

func (s *excludeStage) excluded(e *resource.Entry) bool {
	if slices.Contains(s.kinds, e.Kind()) {
		return true
	}
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, e.Path()); ok {
			return true
		}
	}
	return false
}
