// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/jmodlink/jmodlink/pkg/resource"
)

type sortStage struct {
	Info
	order string
}

func sortFactory() Factory {
	return Factory{
		Name:        StageSortResources,
		Category:    CategorySorter,
		Description: "Orders resources by path (order=name), by kind then path (order=kind), or groups them by module keeping their order (order=module).",
		Options:     []string{"order"},
		New: func(opts Options) (Stage, error) {
			order, err := opts.String("order", "name")
			if err != nil {
				return nil, err
			}
			switch order {
			case "name", "kind", "module":
			default:
				return nil, fmt.Errorf("order must be name, kind or module, got %q", order)
			}
			return &sortStage{Info: Info{StageName: StageSortResources, StageCategory: CategorySorter}, order: order}, nil
		},
	}
}

func (s *sortStage) Transform(_ context.Context, in *resource.Pool) (*resource.Pool, error) {
	b := in.Edit()
	var less func(a, c *resource.Entry) int
	switch s.order {
	case "kind":
		less = func(a, c *resource.Entry) int {
			return cmp.Or(cmp.Compare(a.Kind(), c.Kind()), strings.Compare(a.Path(), c.Path()))
		}
	case "module":
		less = func(a, c *resource.Entry) int { return strings.Compare(a.Module(), c.Module()) }
	default:
		less = func(a, c *resource.Entry) int { return strings.Compare(a.Path(), c.Path()) }
	}
	b.SortStableFunc(less)
	return b.Build(), nil
}
